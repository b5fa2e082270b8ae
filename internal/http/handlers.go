package http

import (
	"net/http"

	"cassa/internal/core"
	"cassa/internal/ledger"
	"cassa/internal/log"
)

func (s *Server) requestLogger(r *http.Request) *log.Logger {
	if _, ok := r.Context().Value(log.LoggerContextKey).(*log.Logger); !ok {
		return s.logger
	}
	return log.FromContext(r.Context())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady is ready once the startup rollover ran and the backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.svc.Initialized() {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "ledger not initialized"})
		return
	}
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.requestLogger(r).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "backend unavailable"})
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]core.Category{"categories": core.Categories})
}

// handleMonth renders the open month: entries and running totals.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	totals := s.svc.CurrentMonthTotals()
	earnings := s.svc.CurrentMonthEarnings()
	expenditures := s.svc.CurrentMonthExpenditures()
	if earnings == nil {
		earnings = []core.Earning{}
	}
	if expenditures == nil {
		expenditures = []core.Expenditure{}
	}

	writeJSON(w, http.StatusOK, monthView{
		Month:        totals.Month,
		MonthLabel:   totals.Month.Label(),
		Currency:     s.money.Code(),
		Earnings:     earnings,
		Expenditures: expenditures,
		Totals:       newTotalsView(s.money, totals.Earned, totals.Spent, totals.Profit),
	})
}

func (s *Server) handleAddEarning(w http.ResponseWriter, r *http.Request) {
	in, err := decodeEarning(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	e, err := s.svc.AddEarning(r.Context(), in)
	if err != nil {
		s.writeError(w, r, log.OpAppend, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	in, err := decodeExpense(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	e, err := s.svc.AddExpense(r.Context(), in)
	if err != nil {
		s.writeError(w, r, log.OpAppend, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleDeleteEarning(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEarning(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpRemove, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpRemove, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteMonth(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.CompleteCurrentMonth(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpComplete, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSummaryView(s.money, summary))
}

// handleSummaries lists archived months, ascending unless ?order=desc.
func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	order, err := ledger.ParseOrder(r.URL.Query().Get("order"))
	if err != nil {
		s.writeError(w, r, "list_summaries", err)
		return
	}

	summaries := s.svc.Summaries(order)
	views := make([]summaryView, 0, len(summaries))
	for _, sum := range summaries {
		views = append(views, newSummaryView(s.money, sum))
	}
	writeJSON(w, http.StatusOK, summariesView{
		Currency:  s.money.Code(),
		Order:     order,
		Summaries: views,
	})
}
