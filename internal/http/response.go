package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"cassa/internal/core"
	"cassa/internal/format"
	"cassa/internal/ledger"
	"cassa/internal/log"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type formattedTotals struct {
	Earned string `json:"earned"`
	Spent  string `json:"spent"`
	Profit string `json:"profit"`
}

type totalsView struct {
	Earned    json.Number     `json:"earned"`
	Spent     json.Number     `json:"spent"`
	Profit    json.Number     `json:"profit"`
	Formatted formattedTotals `json:"formatted"`
}

type monthView struct {
	Month        core.MonthKey      `json:"month"`
	MonthLabel   string             `json:"monthLabel"`
	Currency     string             `json:"currency"`
	Earnings     []core.Earning     `json:"earnings"`
	Expenditures []core.Expenditure `json:"expenditures"`
	Totals       totalsView         `json:"totals"`
}

type summaryView struct {
	ID          string          `json:"id"`
	MonthKey    core.MonthKey   `json:"monthKey"`
	MonthLabel  string          `json:"monthLabel"`
	TotalEarned json.Number     `json:"totalEarned"`
	TotalSpent  json.Number     `json:"totalSpent"`
	TotalProfit json.Number     `json:"totalProfit"`
	Formatted   formattedTotals `json:"formatted"`
}

type summariesView struct {
	Currency  string        `json:"currency"`
	Order     ledger.Order  `json:"order"`
	Summaries []summaryView `json:"summaries"`
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func newTotalsView(m *format.Money, earned, spent, profit decimal.Decimal) totalsView {
	return totalsView{
		Earned: number(earned),
		Spent:  number(spent),
		Profit: number(profit),
		Formatted: formattedTotals{
			Earned: m.Format(earned),
			Spent:  m.Format(spent),
			Profit: m.Format(profit),
		},
	}
}

func newSummaryView(m *format.Money, s core.MonthlySummary) summaryView {
	t := newTotalsView(m, s.TotalEarned, s.TotalSpent, s.TotalProfit)
	return summaryView{
		ID:          s.ID,
		MonthKey:    s.MonthKey,
		MonthLabel:  s.MonthLabel(),
		TotalEarned: t.Earned,
		TotalSpent:  t.Spent,
		TotalProfit: t.Profit,
		Formatted:   t.Formatted,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps ledger errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrAlreadyCompleted),
		errors.Is(err, core.ErrNoData),
		errors.Is(err, core.ErrMonthArchived):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err for the client. Internal failures are logged and
// reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.requestLogger(r).ErrorContext(r.Context(), "Ledger operation failed", log.FieldOperation, op, log.FieldError, err)
		writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}

	body := errorBody{Error: err.Error()}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		body = errorBody{Error: verr.Err.Error(), Field: verr.Field}
	}
	writeJSON(w, status, body)
}
