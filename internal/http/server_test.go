package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"detetive/internal/backend"
	"detetive/internal/cache"
	"detetive/internal/middleware/auth"
	"detetive/internal/notify"
	"detetive/internal/ports"
	"detetive/internal/services"
	"detetive/internal/storage/memory"
)

var testNow = time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)

type testServer struct {
	t   *testing.T
	srv *Server
}

func newTestServer(t *testing.T, rpm int) *testServer {
	t.Helper()
	store := memory.New()
	stores := &backend.Stores{
		Users:         store,
		Accounts:      store,
		Categories:    store,
		Transactions:  store,
		Cards:         store,
		Budgets:       store,
		Notifications: store,
		Selection:     backend.AllDomains(backend.MemoryBackend),
		Health:        map[backend.BackendType]ports.Pinger{backend.MemoryBackend: store},
	}
	tokens, err := auth.NewTokens("test-secret-0123456789", time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lru := cache.NewLRUCache[any](100, time.Hour)
	now := func() time.Time { return testNow }

	svc := services.New(services.Deps{
		Stores:     stores,
		Cache:      lru,
		Tokens:     tokens,
		Thresholds: notify.DefaultThresholds(),
		Now:        now,
		Logger:     logger,
	})
	srv := NewServer(Options{
		Addr:         ":0",
		Services:     svc,
		Stores:       stores,
		Tokens:       tokens,
		Cache:        lru,
		RateLimitRPM: rpm,
		Logger:       logger,
		Now:          now,
	})
	t.Cleanup(func() { srv.rateLimiter.Stop() })
	return &testServer{t: t, srv: srv}
}

func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "203.0.113.7:4242"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

// register creates a user and returns its token.
func (ts *testServer) register(email string) string {
	ts.t.Helper()
	rr := ts.do(http.MethodPost, "/api/auth/register", "",
		`{"email":"`+email+`","name":"Teste","password":"segredo123"}`)
	if rr.Code != http.StatusCreated {
		ts.t.Fatalf("register status=%d body=%s", rr.Code, rr.Body.String())
	}
	var session struct {
		Token string `json:"token"`
	}
	decode(ts.t, rr, &session)
	return session.Token
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status=%d want %d body=%s", rr.Code, want, rr.Body.String())
	}
}

func TestHealthReadyAndMetrics(t *testing.T) {
	ts := newTestServer(t, 0)

	rr := ts.do(http.MethodGet, "/healthz", "", "")
	expectStatus(t, rr, http.StatusOK)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	rr = ts.do(http.MethodGet, "/readyz", "", "")
	expectStatus(t, rr, http.StatusOK)
	var ready struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	decode(t, rr, &ready)
	if ready.Status != "ready" || ready.Checks["memory"] != "ok" {
		t.Errorf("unexpected readiness: %+v", ready)
	}

	rr = ts.do(http.MethodGet, "/metrics", "", "")
	expectStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	for _, want := range []string{"http_requests_total", "cache_hits_total", `data_backend_info{domain="accounts",backend="memory"} 1`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestAPIRequiresToken(t *testing.T) {
	ts := newTestServer(t, 0)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(http.MethodGet, "/api/accounts", tt.token, "")
			expectStatus(t, rr, http.StatusUnauthorized)
			var body ErrorBody
			decode(t, rr, &body)
			if body.Error != "unauthorized" {
				t.Errorf("error=%q", body.Error)
			}
		})
	}

	rr := ts.do(http.MethodPost, "/api/auth/login", "", `{"email":"nobody@example.com","password":"whatever1"}`)
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, 0)
	token := ts.register("ana@example.com")

	rr := ts.do(http.MethodPost, "/api/auth/register", "", `{"email":"ana@example.com","name":"Ana","password":"segredo123"}`)
	expectStatus(t, rr, http.StatusConflict)

	rr = ts.do(http.MethodPost, "/api/auth/login", "", `{"email":"ana@example.com","password":"segredo123"}`)
	expectStatus(t, rr, http.StatusOK)

	rr = ts.do(http.MethodGet, "/api/auth/me", token, "")
	expectStatus(t, rr, http.StatusOK)
	var me map[string]any
	decode(t, rr, &me)
	if me["email"] != "ana@example.com" {
		t.Errorf("me=%v", me)
	}
	if _, leaked := me["password_hash"]; leaked {
		t.Error("password hash must not be serialized")
	}
}

func TestAccountEndpoints(t *testing.T) {
	ts := newTestServer(t, 0)
	token := ts.register("ana@example.com")

	rr := ts.do(http.MethodPost, "/api/accounts", token, `{"name":"Corrente","type":"checking","balance":"1500.00"}`)
	expectStatus(t, rr, http.StatusCreated)
	var first map[string]any
	decode(t, rr, &first)
	if first["is_default"] != true || first["balance"] != "1500.00" || first["currency"] != "BRL" {
		t.Errorf("unexpected account: %v", first)
	}
	id := first["id"].(string)

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"malformed json", `{"name":`, http.StatusBadRequest, ""},
		{"wrong field type", `{"name":12}`, http.StatusBadRequest, ""},
		{"invalid type", `{"name":"X","type":"crypto"}`, http.StatusUnprocessableEntity, "type"},
		{"negative balance", `{"name":"X","type":"cash","balance":"-1"}`, http.StatusUnprocessableEntity, "balance"},
		{"bad amount", `{"name":"X","type":"cash","balance":"abc"}`, http.StatusUnprocessableEntity, "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(http.MethodPost, "/api/accounts", token, tt.body)
			expectStatus(t, rr, tt.status)
			var body ErrorBody
			decode(t, rr, &body)
			if body.Field != tt.field {
				t.Errorf("field=%q want %q", body.Field, tt.field)
			}
		})
	}

	rr = ts.do(http.MethodPost, "/api/accounts", token, `{"name":"Poupança","type":"savings"}`)
	expectStatus(t, rr, http.StatusCreated)
	var second map[string]any
	decode(t, rr, &second)

	rr = ts.do(http.MethodPost, "/api/accounts/"+second["id"].(string)+"/default", token, "")
	expectStatus(t, rr, http.StatusOK)

	rr = ts.do(http.MethodGet, "/api/accounts/"+id, token, "")
	expectStatus(t, rr, http.StatusOK)
	var got map[string]any
	decode(t, rr, &got)
	if got["is_default"] != false {
		t.Error("previous default must be cleared")
	}

	rr = ts.do(http.MethodDelete, "/api/accounts/"+id, token, "")
	expectStatus(t, rr, http.StatusNoContent)
	if rr.Body.Len() != 0 {
		t.Errorf("204 with body %q", rr.Body.String())
	}

	rr = ts.do(http.MethodGet, "/api/accounts", token, "")
	var list []map[string]any
	decode(t, rr, &list)
	if len(list) != 1 {
		t.Errorf("active accounts=%d want 1", len(list))
	}
	rr = ts.do(http.MethodGet, "/api/accounts?include_inactive=true", token, "")
	decode(t, rr, &list)
	if len(list) != 2 {
		t.Errorf("all accounts=%d want 2", len(list))
	}

	rr = ts.do(http.MethodGet, "/api/accounts?include_inactive=maybe", token, "")
	expectStatus(t, rr, http.StatusBadRequest)

	other := ts.register("bia@example.com")
	rr = ts.do(http.MethodGet, "/api/accounts/"+id, other, "")
	expectStatus(t, rr, http.StatusNotFound)
}

func TestTransactionsAndDashboard(t *testing.T) {
	ts := newTestServer(t, 0)
	token := ts.register("ana@example.com")

	rr := ts.do(http.MethodPost, "/api/accounts", token, `{"name":"Corrente","type":"checking","balance":"1000.00"}`)
	expectStatus(t, rr, http.StatusCreated)
	var acct map[string]any
	decode(t, rr, &acct)
	accountID := acct["id"].(string)

	rr = ts.do(http.MethodPost, "/api/categories", token, `{"name":"Mercado","kind":"expense","color":"#00aa00"}`)
	expectStatus(t, rr, http.StatusCreated)
	var cat map[string]any
	decode(t, rr, &cat)

	rr = ts.do(http.MethodPost, "/api/transactions", token,
		`{"type":"expense","account_id":"`+accountID+`","category_id":"`+cat["id"].(string)+`","amount":"120.50","description":"Feira","date":"2025-04-05"}`)
	expectStatus(t, rr, http.StatusCreated)
	var tx map[string]any
	decode(t, rr, &tx)

	rr = ts.do(http.MethodPost, "/api/transactions", token,
		`{"type":"income","account_id":"`+accountID+`","amount":"3000","description":"Salário","date":"2025-04-01"}`)
	expectStatus(t, rr, http.StatusCreated)

	rr = ts.do(http.MethodPost, "/api/transactions", token,
		`{"type":"expense","account_id":"`+accountID+`","amount":"10","description":"Café","date":"2025-02-30"}`)
	expectStatus(t, rr, http.StatusUnprocessableEntity)

	rr = ts.do(http.MethodGet, "/api/transactions?type=expense", token, "")
	expectStatus(t, rr, http.StatusOK)
	var txs []map[string]any
	decode(t, rr, &txs)
	if len(txs) != 1 {
		t.Errorf("expenses=%d want 1", len(txs))
	}

	rr = ts.do(http.MethodGet, "/api/transactions?from=2025-04-10&to=2025-04-01", token, "")
	expectStatus(t, rr, http.StatusUnprocessableEntity)

	rr = ts.do(http.MethodGet, "/api/dashboard", token, "")
	expectStatus(t, rr, http.StatusOK)
	var dash struct {
		TotalBalance string `json:"total_balance"`
	}
	decode(t, rr, &dash)
	if dash.TotalBalance != "3879.50" {
		t.Errorf("total balance=%s want 3879.50", dash.TotalBalance)
	}

	rr = ts.do(http.MethodPut, "/api/transactions/"+tx["id"].(string), token,
		`{"type":"expense","account_id":"`+accountID+`","amount":"20.50","description":"Feira","date":"2025-04-05"}`)
	expectStatus(t, rr, http.StatusOK)

	rr = ts.do(http.MethodGet, "/api/dashboard", token, "")
	decode(t, rr, &dash)
	if dash.TotalBalance != "3979.50" {
		t.Errorf("dashboard not refreshed after update: %s", dash.TotalBalance)
	}

	rr = ts.do(http.MethodGet, "/api/dashboard?month=13", token, "")
	expectStatus(t, rr, http.StatusUnprocessableEntity)
	rr = ts.do(http.MethodGet, "/api/dashboard?month=abc", token, "")
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestCardBillPayment(t *testing.T) {
	ts := newTestServer(t, 0)
	token := ts.register("ana@example.com")

	rr := ts.do(http.MethodPost, "/api/accounts", token, `{"name":"Corrente","type":"checking","balance":"500"}`)
	expectStatus(t, rr, http.StatusCreated)

	rr = ts.do(http.MethodPost, "/api/cards", token, `{"name":"Roxinho","brand":"mastercard","limit":"1000","closing_day":25,"due_day":5}`)
	expectStatus(t, rr, http.StatusCreated)
	var card map[string]any
	decode(t, rr, &card)
	cardID := card["id"].(string)

	rr = ts.do(http.MethodPost, "/api/transactions", token,
		`{"type":"expense","card_id":"`+cardID+`","amount":"150","description":"Livros","date":"2025-04-05"}`)
	expectStatus(t, rr, http.StatusCreated)

	rr = ts.do(http.MethodGet, "/api/cards/"+cardID+"/bills", token, "")
	expectStatus(t, rr, http.StatusOK)
	var bills []map[string]any
	decode(t, rr, &bills)
	if len(bills) != 1 || bills[0]["amount"] != "150.00" {
		t.Fatalf("unexpected bills: %v", bills)
	}
	billID := bills[0]["id"].(string)

	rr = ts.do(http.MethodPost, "/api/cards/"+cardID+"/bills/"+billID+"/pay", token, "")
	expectStatus(t, rr, http.StatusOK)
	var paid struct {
		Transaction struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"transaction"`
	}
	decode(t, rr, &paid)
	if paid.Transaction.Type != "payment" {
		t.Errorf("payment type=%q", paid.Transaction.Type)
	}

	rr = ts.do(http.MethodPost, "/api/cards/"+cardID+"/bills/"+billID+"/pay", token, "{}")
	expectStatus(t, rr, http.StatusConflict)

	rr = ts.do(http.MethodDelete, "/api/transactions/"+paid.Transaction.ID, token, "")
	expectStatus(t, rr, http.StatusConflict)

	rr = ts.do(http.MethodPost, "/api/cards/"+cardID+"/bills/unknown/pay", token, "")
	expectStatus(t, rr, http.StatusNotFound)
}

func TestBudgetsAndNotifications(t *testing.T) {
	ts := newTestServer(t, 0)
	token := ts.register("ana@example.com")

	rr := ts.do(http.MethodPost, "/api/accounts", token, `{"name":"Corrente","type":"checking","balance":"10","minimum_balance":"100"}`)
	expectStatus(t, rr, http.StatusCreated)

	rr = ts.do(http.MethodPost, "/api/budgets", token, `{"name":"Abril","amount":"800","period":"monthly","start_date":"2025-04-01"}`)
	expectStatus(t, rr, http.StatusCreated)
	var b map[string]any
	decode(t, rr, &b)

	rr = ts.do(http.MethodGet, "/api/budgets/summary?at=2025-04-10", token, "")
	expectStatus(t, rr, http.StatusOK)
	var summaries []map[string]any
	decode(t, rr, &summaries)
	if len(summaries) != 1 || summaries[0]["budget_id"] != b["id"] {
		t.Errorf("unexpected summaries: %v", summaries)
	}

	rr = ts.do(http.MethodGet, "/api/budgets/"+b["id"].(string)+"/summary", token, "")
	expectStatus(t, rr, http.StatusOK)

	rr = ts.do(http.MethodGet, "/api/budgets/summary?at=10/04/2025", token, "")
	expectStatus(t, rr, http.StatusBadRequest)

	rr = ts.do(http.MethodGet, "/api/notifications/preview", token, "")
	expectStatus(t, rr, http.StatusOK)
	var preview []map[string]any
	decode(t, rr, &preview)
	if len(preview) == 0 {
		t.Fatal("expected a low balance notification in preview")
	}

	rr = ts.do(http.MethodGet, "/api/notifications", token, "")
	var stored []map[string]any
	decode(t, rr, &stored)
	if len(stored) != 0 {
		t.Errorf("preview must not store notifications, got %d", len(stored))
	}

	rr = ts.do(http.MethodPost, "/api/notifications/refresh", token, "")
	expectStatus(t, rr, http.StatusOK)
	var created []map[string]any
	decode(t, rr, &created)
	if len(created) != len(preview) {
		t.Errorf("refresh created %d, preview had %d", len(created), len(preview))
	}

	rr = ts.do(http.MethodPost, "/api/notifications/refresh", token, "")
	decode(t, rr, &created)
	if len(created) != 0 {
		t.Errorf("second refresh created %d duplicates", len(created))
	}

	id := stored0(t, ts, token)
	rr = ts.do(http.MethodPost, "/api/notifications/"+id+"/read", token, "")
	expectStatus(t, rr, http.StatusNoContent)

	rr = ts.do(http.MethodGet, "/api/notifications?unread=true", token, "")
	decode(t, rr, &stored)
	if len(stored) != len(preview)-1 {
		t.Errorf("unread=%d want %d", len(stored), len(preview)-1)
	}

	rr = ts.do(http.MethodPost, "/api/notifications/read-all", token, "")
	expectStatus(t, rr, http.StatusOK)

	rr = ts.do(http.MethodDelete, "/api/notifications/"+id, token, "")
	expectStatus(t, rr, http.StatusNoContent)
}

func stored0(t *testing.T, ts *testServer, token string) string {
	t.Helper()
	rr := ts.do(http.MethodGet, "/api/notifications", token, "")
	var list []map[string]any
	decode(t, rr, &list)
	if len(list) == 0 {
		t.Fatal("no stored notifications")
	}
	return list[0]["id"].(string)
}

func TestRateLimitAndSecurity(t *testing.T) {
	ts := newTestServer(t, 2)

	expectStatus(t, ts.do(http.MethodGet, "/healthz", "", ""), http.StatusOK)
	expectStatus(t, ts.do(http.MethodGet, "/healthz", "", ""), http.StatusOK)
	rr := ts.do(http.MethodGet, "/healthz", "", "")
	expectStatus(t, rr, http.StatusTooManyRequests)
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	ts = newTestServer(t, 0)
	rr = ts.do(http.MethodGet, "/healthz", "", "")
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers not applied")
	}
	rr = ts.do("TRACE", "/healthz", "", "")
	expectStatus(t, rr, http.StatusMethodNotAllowed)
}
