package core

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Persisted record shapes. Amounts are written as JSON numbers and read back
// from either numbers or numeric strings.
type (
	earningRecord struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
	}

	expenditureRecord struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Category    Category        `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description,omitempty"`
	}

	summaryRecord struct {
		ID          string          `json:"id"`
		MonthKey    MonthKey        `json:"monthKey"`
		MonthLabel  string          `json:"monthLabel,omitempty"`
		TotalEarned decimal.Decimal `json:"totalEarned"`
		TotalSpent  decimal.Decimal `json:"totalSpent"`
		TotalProfit decimal.Decimal `json:"totalProfit"`
	}
)

// amountJSON renders an amount as a bare JSON number.
func amountJSON(d decimal.Decimal) json.RawMessage {
	return json.RawMessage(d.String())
}

func (e Earning) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Amount      json.RawMessage `json:"amount"`
	}{e.ID, e.Date, e.Description, amountJSON(e.Amount)})
}

func (e *Earning) UnmarshalJSON(data []byte) error {
	var r earningRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*e = Earning{ID: r.ID, Date: r.Date, Description: r.Description, Amount: r.Amount}
	return nil
}

func (e Expenditure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Category    Category        `json:"category"`
		Amount      json.RawMessage `json:"amount"`
		Description string          `json:"description,omitempty"`
	}{e.ID, e.Date, e.Category(), amountJSON(e.Amount), e.Description()})
}

func (e *Expenditure) UnmarshalJSON(data []byte) error {
	var r expenditureRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	kind, err := NewExpenseKind(r.Category, r.Description)
	if err != nil {
		return fmt.Errorf("expenditure %s: %w", r.ID, err)
	}
	*e = Expenditure{ID: r.ID, Date: r.Date, Amount: r.Amount, Kind: kind}
	return nil
}

func (s MonthlySummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string          `json:"id"`
		MonthKey    MonthKey        `json:"monthKey"`
		MonthLabel  string          `json:"monthLabel"`
		TotalEarned json.RawMessage `json:"totalEarned"`
		TotalSpent  json.RawMessage `json:"totalSpent"`
		TotalProfit json.RawMessage `json:"totalProfit"`
	}{s.ID, s.MonthKey, s.MonthLabel(), amountJSON(s.TotalEarned), amountJSON(s.TotalSpent), amountJSON(s.TotalProfit)})
}

// UnmarshalJSON ignores the stored label and profit; both are derived.
func (s *MonthlySummary) UnmarshalJSON(data []byte) error {
	var r summaryRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	key, err := ParseMonthKey(string(r.MonthKey))
	if err != nil {
		return err
	}
	*s = NewMonthlySummary(r.ID, key, r.TotalEarned, r.TotalSpent)
	return nil
}
