package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/report"
	"spendlens/internal/services"
	"spendlens/internal/storage/memory"
)

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("db down") }

func newTestServer(t *testing.T, opts Options) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	engine := analytics.New(analytics.WithClock(func() time.Time {
		return time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	}))
	expenses := services.NewExpenseService(store, nil, services.NewListCache(16, time.Minute), log.Discard())
	srv := NewServer(":0", Deps{
		Expenses:  expenses,
		Analytics: services.NewAnalyticsService(expenses, store, engine, log.Discard()),
		Insights:  services.NewInsightService(expenses, store, nil, engine, log.Discard()),
		Store:     store,
	}, opts)
	t.Cleanup(srv.limiter.Stop)
	return srv, store
}

func seed(t *testing.T, store *memory.Store) {
	t.Helper()
	_, err := store.ImportExpenses(context.Background(), []core.RawExpense{
		{ID: "e1", UserID: "u1", Category: "Food", Amount: 50.0, Date: "2024-03-01", Description: "groceries"},
		{ID: "e2", UserID: "u1", Category: "Food", Amount: 30.0, Date: "2024-03-15", Description: "lunch"},
		{ID: "e3", UserID: "u1", Category: "Transport", Amount: 20.0, Date: "2024-02-01", Notes: "train"},
		{ID: "e4", UserID: "u1", Category: "Other", Amount: 5.0},
	})
	require.NoError(t, err)
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	}

	srv.store = downStore{}
	rr := do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestCreateExpense(t *testing.T) {
	srv, store := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/expenses",
		`{"userId":"u1","category":"food","amount":"12,50","date":"2024-03-02","description":"  pizza "}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	saved := decode[core.RawExpense](t, rr)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "/api/expenses/"+saved.ID, rr.Header().Get("Location"))
	assert.Equal(t, "pizza", saved.Description)

	got, err := store.GetExpense(context.Background(), saved.ID)
	require.NoError(t, err)
	amount, ok := got.AmountValue()
	require.True(t, ok)
	assert.Equal(t, "12.5", amount.String())

	rr = do(t, srv, http.MethodPost, "/api/expenses",
		`{"userId":"u1","category":"Food","amount":7,"date":"2024-03-03"}`)
	assert.Equal(t, http.StatusCreated, rr.Code, "numeric amounts are accepted")
}

func TestExpenseWritesAreLogged(t *testing.T) {
	var buf bytes.Buffer
	srv, store := newTestServer(t, Options{Logger: log.New(log.Config{Level: slog.LevelInfo, Output: &buf})})
	seed(t, store)

	rr := do(t, srv, http.MethodPost, "/api/expenses",
		`{"userId":"u1","category":"Food","amount":"12.50","date":"2024-03-02"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = do(t, srv, http.MethodDelete, "/api/expenses/e2", "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, `msg="Expense written"`))
	assert.Contains(t, out, "component=expense")
	assert.Contains(t, out, "operation=create")
	assert.Contains(t, out, "amount=12.5")
	assert.Contains(t, out, "operation=delete")
	assert.Contains(t, out, "expense_id=e2")
	assert.Contains(t, out, "request_id=")
}

func TestCreateExpense_Invalid(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"userId":`},
		{"unknown field", `{"userId":"u1","category":"Food","amount":1,"date":"2024-03-01","extra":1}`},
		{"missing amount", `{"userId":"u1","category":"Food","date":"2024-03-01"}`},
		{"negative amount", `{"userId":"u1","category":"Food","amount":"-3","date":"2024-03-01"}`},
		{"bad date", `{"userId":"u1","category":"Food","amount":1,"date":"2024-02-30"}`},
		{"unknown category", `{"userId":"u1","category":"Rent","amount":1,"date":"2024-03-01"}`},
		{"missing user", `{"category":"Food","amount":1,"date":"2024-03-01"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/expenses", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			body := decode[ErrorBody](t, rr)
			assert.NotEmpty(t, body.Error)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	seed(t, store)

	rr := do(t, srv, http.MethodPut, "/api/expenses/e1",
		`{"category":"Shopping","amount":"60","date":"2024-03-01"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[core.RawExpense](t, rr)
	assert.Equal(t, "u1", updated.UserID)
	assert.Equal(t, "Shopping", updated.Category)

	rr = do(t, srv, http.MethodPut, "/api/expenses/missing",
		`{"category":"Food","amount":"1","date":"2024-03-01"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodDelete, "/api/expenses/e1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())

	rr = do(t, srv, http.MethodDelete, "/api/expenses/e1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListExpenses(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	seed(t, store)

	rr := do(t, srv, http.MethodGet, "/api/users/u1/expenses?category=FOOD&sort=desc", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[expenseList](t, rr)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "e2", list.Expenses[0].ID)

	rr = do(t, srv, http.MethodGet, "/api/users/u1/expenses?q=train", "")
	list = decode[expenseList](t, rr)
	require.Len(t, list.Expenses, 1)
	assert.Equal(t, "e3", list.Expenses[0].ID)

	rr = do(t, srv, http.MethodGet, "/api/users/u1/expenses?sort=up", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/users/nobody/expenses", "")
	list = decode[expenseList](t, rr)
	assert.Equal(t, 0, list.Count)
	assert.NotNil(t, list.Expenses)
}

func TestAnalytics(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	seed(t, store)

	rr := do(t, srv, http.MethodGet, "/api/users/u1/analytics?ref=2024-03-20", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	doc := decode[report.Document](t, rr)
	assert.Equal(t, "u1", doc.UserID)
	assert.Equal(t, "2024-03-20", doc.Reference)
	assert.Len(t, doc.Categories, core.NumCategories)
	assert.Equal(t, 80.0, doc.Summary.CurrentMonthTotal)
	assert.Equal(t, 20.0, doc.Summary.LastMonthTotal)
	assert.Equal(t, 300.0, doc.Summary.PercentChange)
	assert.Equal(t, []string{"Food", "Transport", "Other"}, doc.Summary.TopCategories)
	assert.Equal(t, 1, doc.Records.Undated)
	require.Len(t, doc.Trend, 6)
	assert.Equal(t, "Mar 2024", doc.Trend[5].Label)

	rr = do(t, srv, http.MethodGet, "/api/users/u1/analytics", "")
	doc = decode[report.Document](t, rr)
	assert.Equal(t, "2024-03-20", doc.Reference, "defaults to the engine clock")
}

func TestAnalytics_EmptyUser(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/users/ghost/analytics?ref=2024-03-20", "")
	require.Equal(t, http.StatusOK, rr.Code)
	doc := decode[report.Document](t, rr)
	assert.Equal(t, "No data yet", doc.Summary.TopCategoriesLabel)
	assert.Empty(t, doc.Distribution)
	assert.Equal(t, 0.0, doc.Summary.PercentChange)
}

func TestAnalytics_BadQuery(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	for _, q := range []string{"ref=20-03-2024", "from=2024-03-05&to=2024-03-01", "to=tomorrow"} {
		rr := do(t, srv, http.MethodGet, "/api/users/u1/analytics?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestInsights(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	seed(t, store)

	rr := do(t, srv, http.MethodGet, "/api/users/u1/insights", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[insightList](t, rr).Insights)

	rr = do(t, srv, http.MethodPost, "/api/users/u1/insights?ref=2024-03-20", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	generated := decode[insightList](t, rr)
	require.Len(t, generated.Insights, 3)
	for _, in := range generated.Insights {
		assert.Contains(t, []string{"warning", "success", "info"}, in.Type)
	}

	rr = do(t, srv, http.MethodGet, "/api/users/u1/insights", "")
	assert.Len(t, decode[insightList](t, rr).Insights, 3)

	rr = do(t, srv, http.MethodPost, "/api/users/ghost/insights", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRateLimitOnWrites(t *testing.T) {
	srv, store := newTestServer(t, Options{RateLimitPerMinute: 1})
	seed(t, store)

	body := `{"userId":"u1","category":"Food","amount":1,"date":"2024-03-01"}`
	rr := do(t, srv, http.MethodPost, "/api/expenses", body)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/expenses", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Contains(t, decode[ErrorBody](t, rr).Error, "rate limit")

	for i := 0; i < 3; i++ {
		rr = do(t, srv, http.MethodGet, "/api/users/u1/expenses", "")
		assert.Equal(t, http.StatusOK, rr.Code, "reads are not limited")
	}
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t, Options{CORSAllowedOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/expenses", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestNotFoundAndMethod(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "route not found", decode[ErrorBody](t, rr).Error)

	rr = do(t, srv, http.MethodPatch, "/api/expenses/e1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestShutdown(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
