package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"cassa/internal/core"
)

// MonthArchivedMessage announces one newly archived month. It carries the
// whole summary so consumers need no access to the ledger's storage.
type MonthArchivedMessage struct {
	SummaryID   string          `json:"summaryId"`
	MonthKey    string          `json:"monthKey"`
	MonthLabel  string          `json:"monthLabel"`
	TotalEarned decimal.Decimal `json:"totalEarned"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
	TotalProfit decimal.Decimal `json:"totalProfit"`
	Timestamp   time.Time       `json:"timestamp"`
}

// NewMonthArchivedMessage creates a message for s
func NewMonthArchivedMessage(s core.MonthlySummary) *MonthArchivedMessage {
	return &MonthArchivedMessage{
		SummaryID:   s.ID,
		MonthKey:    string(s.MonthKey),
		MonthLabel:  s.MonthLabel(),
		TotalEarned: s.TotalEarned,
		TotalSpent:  s.TotalSpent,
		TotalProfit: s.TotalProfit,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *MonthArchivedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MonthArchivedMessageFromJSON decodes a message and checks its month key
func MonthArchivedMessageFromJSON(data []byte) (*MonthArchivedMessage, error) {
	var msg MonthArchivedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := core.ParseMonthKey(msg.MonthKey); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Summary rebuilds the archived summary. Profit is recomputed from the totals.
func (m *MonthArchivedMessage) Summary() core.MonthlySummary {
	return core.NewMonthlySummary(m.SummaryID, core.MonthKey(m.MonthKey), m.TotalEarned, m.TotalSpent)
}
