package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cassa/internal/format"
	"cassa/internal/ledger"
	"cassa/internal/storage/memory"
)

type fixture struct {
	srv *Server
	svc *ledger.Service
	mem *memory.Store
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newSeededFixture(t, nil, opts...)
}

func newSeededFixture(t *testing.T, seed func(*memory.Store), opts ...Option) *fixture {
	t.Helper()
	now := time.Date(2025, time.September, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	n := 0
	ids := func() string {
		n++
		return "id-" + strconv.Itoa(n)
	}

	mem := memory.New()
	if seed != nil {
		seed(mem)
	}
	svc := ledger.NewService(ledger.NewStore(mem, nil), ledger.WithClock(clock), ledger.WithIDFunc(ids))
	_, err := svc.Initialize(context.Background(), now)
	require.NoError(t, err)

	money, err := format.NewMoney("USD", "$", "en")
	require.NoError(t, err)

	srv := NewServer(":0", svc, money, opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &fixture{srv: srv, svc: svc, mem: mem}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReadyRequiresInitializationAndBackend(t *testing.T) {
	money, err := format.NewMoney("USD", "$", "en")
	require.NoError(t, err)
	svc := ledger.NewService(ledger.NewStore(memory.New(), nil))
	srv := NewServer(":0", svc, money)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	f := newFixture(t, WithReadiness(func(context.Context) error { return errors.New("disk gone") }))
	rr = f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "disk gone")
}

func TestAddEntriesAndMonthView(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/api/earnings", `{"date":"2025-09-03","description":"Consulting","amount":1000}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	earning := decodeBody(t, rr)
	assert.Equal(t, "id-1", earning["id"])
	assert.Equal(t, "2025-09-03", earning["date"])

	rr = f.do(t, http.MethodPost, "/api/expenses", `{"date":"2025-09-04","category":"Rent","amount":"400"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "Rent", decodeBody(t, rr)["category"])

	rr = f.do(t, http.MethodGet, "/api/month", "")
	require.Equal(t, http.StatusOK, rr.Code)
	month := decodeBody(t, rr)
	assert.Equal(t, "2025-09", month["month"])
	assert.Equal(t, "September 2025", month["monthLabel"])
	assert.Equal(t, "USD", month["currency"])
	assert.Len(t, month["earnings"], 1)
	assert.Len(t, month["expenditures"], 1)

	totals := month["totals"].(map[string]any)
	assert.Equal(t, float64(1000), totals["earned"])
	assert.Equal(t, float64(400), totals["spent"])
	assert.Equal(t, float64(600), totals["profit"])
	assert.Equal(t, map[string]any{"earned": "$1,000", "spent": "$400", "profit": "$600"}, totals["formatted"])
}

func TestEmptyMonthViewHasEmptyLists(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/api/month", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"earnings":[]`)
	assert.Contains(t, rr.Body.String(), `"expenditures":[]`)
}

func TestAddEarningFromForm(t *testing.T) {
	f := newFixture(t)

	form := url.Values{"date": {"2025-09-05"}, "description": {" Workshop "}, "amount": {"12,50"}}
	req := httptest.NewRequest(http.MethodPost, "/api/earnings", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	assert.Equal(t, "Workshop", body["description"])
	assert.Equal(t, 12.5, body["amount"])
}

func TestValidationErrorsAre422WithField(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name  string
		path  string
		body  string
		field string
	}{
		{"zero amount", "/api/earnings", `{"date":"2025-09-03","description":"x","amount":0}`, "amount"},
		{"missing date", "/api/earnings", `{"description":"x","amount":5}`, "date"},
		{"unknown category", "/api/expenses", `{"date":"2025-09-03","category":"Snacks","amount":5}`, "category"},
		{"product without description", "/api/expenses", `{"date":"2025-09-03","category":"Products & Items","amount":5}`, "description"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := f.do(t, http.MethodPost, tc.path, tc.body)
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
			assert.Equal(t, tc.field, decodeBody(t, rr)["field"])
		})
	}
	assert.Empty(t, f.svc.CurrentMonthEarnings())
	assert.Empty(t, f.svc.CurrentMonthExpenditures())
}

func TestMalformedBodyIs400(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{`{"date":`, `{"date":"2025-09-03","bogus":1}`, `{} {}`} {
		rr := f.do(t, http.MethodPost, "/api/earnings", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestDeleteEntries(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/api/expenses", `{"date":"2025-09-04","category":"Water Bill","amount":35}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decodeBody(t, rr)["id"].(string)

	rr = f.do(t, http.MethodDelete, "/api/expenses/"+id, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, f.svc.CurrentMonthExpenditures())

	rr = f.do(t, http.MethodDelete, "/api/earnings/does-not-exist", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestCompleteMonthAndConflicts(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/api/month/complete", "")
	assert.Equal(t, http.StatusConflict, rr.Code, "nothing to archive yet")

	rr = f.do(t, http.MethodPost, "/api/earnings", `{"date":"2025-09-03","description":"Consulting","amount":1000}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/month/complete", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	summary := decodeBody(t, rr)
	assert.Equal(t, "2025-09", summary["monthKey"])
	assert.Equal(t, "September 2025", summary["monthLabel"])
	assert.Equal(t, float64(1000), summary["totalProfit"])

	rr = f.do(t, http.MethodPost, "/api/month/complete", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/earnings", `{"date":"2025-09-20","description":"Late","amount":5}`)
	assert.Equal(t, http.StatusConflict, rr.Code, "archived month is closed")
}

func TestSummariesOrder(t *testing.T) {
	f := newSeededFixture(t, func(mem *memory.Store) {
		mem.Put(string(ledger.Summaries), []byte(`[
			{"id":"s1","monthKey":"2025-07","totalEarned":500,"totalSpent":100,"totalProfit":400},
			{"id":"s2","monthKey":"2025-08","totalEarned":1000,"totalSpent":1600,"totalProfit":-600}
		]`))
	})

	rr := f.do(t, http.MethodGet, "/api/summaries?order=desc", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "USD", body["currency"])
	assert.Equal(t, "desc", body["order"])

	summaries := body["summaries"].([]any)
	require.Len(t, summaries, 2)
	first := summaries[0].(map[string]any)
	assert.Equal(t, "2025-08", first["monthKey"])
	assert.Equal(t, map[string]any{"earned": "$1,000", "spent": "$1,600", "profit": "-$600"}, first["formatted"])

	rr = f.do(t, http.MethodGet, "/api/summaries?order=sideways", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestPersistFailureIs500WithoutDetail(t *testing.T) {
	f := newFixture(t)
	f.mem.FailSave = errors.New("disk full at /secret/path")

	rr := f.do(t, http.MethodPost, "/api/earnings", `{"date":"2025-09-03","description":"Consulting","amount":1000}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret")
	assert.Empty(t, f.svc.CurrentMonthEarnings())
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/api/month", "")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	f := newFixture(t, WithRateLimit(1))

	rr := f.do(t, http.MethodDelete, "/api/earnings/a", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = f.do(t, http.MethodDelete, "/api/earnings/b", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/month", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUnknownMethodIsRejected(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPut, "/api/earnings", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
