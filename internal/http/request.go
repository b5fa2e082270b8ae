package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"cassa/internal/core"
)

var errBadRequest = errors.New("malformed request body")

// amountField accepts both 12.5 and "12,50".
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	if string(data) == "null" {
		*a = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = amountField(n)
	return nil
}

type earningRequest struct {
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Amount      amountField `json:"amount"`
}

type expenseRequest struct {
	Date        string      `json:"date"`
	Category    string      `json:"category"`
	Amount      amountField `json:"amount"`
	Description string      `json:"description"`
}

// decodeEarning reads an earning from a JSON or form-encoded body.
func decodeEarning(w http.ResponseWriter, r *http.Request) (core.EarningInput, error) {
	var req earningRequest
	if isForm(r) {
		form, err := parseForm(w, r)
		if err != nil {
			return core.EarningInput{}, err
		}
		req = earningRequest{
			Date:        form("date"),
			Description: form("description"),
			Amount:      amountField(form("amount")),
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		return core.EarningInput{}, err
	}
	return core.EarningInput{
		Date:        sanitizeInput(req.Date),
		Description: sanitizeInput(req.Description),
		Amount:      sanitizeInput(string(req.Amount)),
	}, nil
}

// decodeExpense reads an expenditure from a JSON or form-encoded body.
func decodeExpense(w http.ResponseWriter, r *http.Request) (core.ExpenseInput, error) {
	var req expenseRequest
	if isForm(r) {
		form, err := parseForm(w, r)
		if err != nil {
			return core.ExpenseInput{}, err
		}
		req = expenseRequest{
			Date:        form("date"),
			Category:    form("category"),
			Amount:      amountField(form("amount")),
			Description: form("description"),
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		return core.ExpenseInput{}, err
	}
	return core.ExpenseInput{
		Date:        sanitizeInput(req.Date),
		Category:    sanitizeInput(req.Category),
		Amount:      sanitizeInput(string(req.Amount)),
		Description: sanitizeInput(req.Description),
	}, nil
}

func isForm(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/x-www-form-urlencoded"
}

func parseForm(w http.ResponseWriter, r *http.Request) (func(string) string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return r.PostForm.Get, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errBadRequest)
	}
	return nil
}

// sanitizeInput drops control characters other than tab and newlines, and trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
