package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arneor/vault-api/handlers"
	"github.com/arneor/vault-api/middleware"
	"github.com/arneor/vault-api/models"
	"github.com/arneor/vault-api/routes"
	"github.com/arneor/vault-api/services"
	"github.com/arneor/vault-api/utils"
)

const testSecret = "handler-test-secret"

type testAPI struct {
	router *gin.Engine
	store  *services.MemoryStore
	ledger *services.LedgerService
	auth   *services.AuthService
	ws     *handlers.WSHandler
	token  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := services.NewMemoryStore()
	retry := services.RetryPolicy{Attempts: 1}
	ledger := services.NewLedgerService(store, services.LedgerOptions{
		Retry: &retry,
		Now:   func() time.Time { return time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC) },
	})
	_, err := ledger.InitializeSheets(context.Background())
	require.NoError(t, err)
	store.Seed(services.PartnersSchema.Sheet, [][]interface{}{
		services.PartnersSchema.Header(),
		{"P1", "Asha", "1000", "", "asha@arneor.com"},
		{"", "", "0"},
		{"P2", "Ravi", "500", "", "ravi@arneor.com"},
	})
	ledger.ClearCache()

	auth := services.NewAuthService(services.NewTokenCache("", nil, nil), services.AuthConfig{
		AllowedEmails: []string{"asha@arneor.com"},
		JWTSecret:     testSecret,
	})
	auth.OnLogout(ledger.ClearCache)

	h := handlers.NewHandler(ledger, auth, handlers.Catalog{
		IncomeCategories:  []string{"Product Sales Revenue"},
		ExpenseCategories: []string{"Team Salaries", "Infrastructure Costs"},
		PaymentMethods:    []string{"UPI"},
	})
	authHandler := handlers.NewAuthHandler(auth, ledger)
	ws := handlers.NewWSHandler()
	ledger.Subscribe(ws.Broadcast)
	t.Cleanup(func() { ws.Close() })

	r := gin.New()
	api := r.Group("/api/v1")
	routes.SetupAuthRoutes(api, authHandler)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(auth))
	routes.SetupSessionRoutes(protected, authHandler, ws)
	routes.SetupLedgerRoutes(protected, h)
	routes.SetupCategorizationRoutes(protected, handlers.NewCategorizationHandler(h))
	routes.SetupAnalyticsRoutes(protected, h)
	routes.SetupAdminRoutes(protected, handlers.NewAdminHandler(h, services.NewAuditService(nil)))

	token, err := utils.GenerateAccessToken([]byte(testSecret), "asha@arneor.com", time.Hour, time.Now())
	require.NoError(t, err)

	return &testAPI{router: r, store: store, ledger: ledger, auth: auth, ws: ws, token: token}
}

func (a *testAPI) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (a *testAPI) partner(t *testing.T, id string) models.Partner {
	t.Helper()
	w := a.do(http.MethodGet, "/api/v1/partners/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p models.Partner
	decode(t, w, &p)
	return p
}

func transactionBody(typ models.TransactionType, amount int, partner string) gin.H {
	return gin.H{
		"date": "2026-02-10", "type": typ, "category": "Product Sales Revenue",
		"amount": amount, "partner_account": partner, "description": "Invoice 9",
	}
}

func TestRoutesRequireSession(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/partners", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"reauth":true`)
}

func TestGetPartnersSkipsPlaceholders(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(http.MethodGet, "/api/v1/partners", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Partners []models.Partner `json:"partners"`
	}
	decode(t, w, &body)
	require.Len(t, body.Partners, 2)
	assert.Equal(t, "Ravi", body.Partners[1].Name)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/partners/P9", nil).Code)
}

func TestTransactionLifecycle(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/transactions", transactionBody(models.TransactionIncome, 250, "P1"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tx models.Transaction
	decode(t, w, &tx)
	assert.Equal(t, "TXN0001", tx.ID)
	assert.Equal(t, "asha@arneor.com", tx.AddedBy)
	assert.True(t, api.partner(t, "P1").CurrentBalance.Equal(decimal.NewFromInt(1250)))

	w = api.do(http.MethodGet, "/api/v1/transactions?type=Income&search=invoice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page models.TransactionPage
	decode(t, w, &page)
	assert.Equal(t, 1, page.Total)

	w = api.do(http.MethodPut, "/api/v1/transactions/TXN0001", transactionBody(models.TransactionExpense, 100, "P2"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, api.partner(t, "P1").CurrentBalance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, api.partner(t, "P2").CurrentBalance.Equal(decimal.NewFromInt(400)))

	w = api.do(http.MethodDelete, "/api/v1/transactions/TXN0001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, api.partner(t, "P2").CurrentBalance.Equal(decimal.NewFromInt(500)))

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/transactions/TXN0001", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/v1/transactions/TXN0001", nil).Code)
}

func TestCreateTransactionErrors(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/transactions", transactionBody(models.TransactionIncome, 0, "P1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	decode(t, w, &body)
	assert.Equal(t, "Validation failed", body.Error)
	assert.Contains(t, body.Fields, "amount")

	w = api.do(http.MethodPost, "/api/v1/transactions", gin.H{"type": "Income"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "binding rejects missing fields")

	w = api.do(http.MethodPost, "/api/v1/transactions", transactionBody(models.TransactionIncome, 10, "P7"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Len(t, api.store.Rows(services.TransactionsSchema.Sheet), 1)
}

func TestTransferEndpoint(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/transfers", gin.H{"from_partner": "P1", "to_partner": "P2", "amount": 200})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	p1, p2 := api.partner(t, "P1"), api.partner(t, "P2")
	assert.True(t, p1.CurrentBalance.Equal(decimal.NewFromInt(800)))
	assert.True(t, p2.CurrentBalance.Equal(decimal.NewFromInt(700)))

	w = api.do(http.MethodPost, "/api/v1/transfers", gin.H{"from_partner": "P1", "to_partner": "P1", "amount": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/v1/transfers", nil)
	var body struct {
		Transfers []models.InterPartnerTransfer `json:"transfers"`
	}
	decode(t, w, &body)
	assert.Len(t, body.Transfers, 1)
}

func TestBudgetEndpoints(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/budgets", gin.H{"category": "Team Salaries", "monthly_budget": 1000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = api.do(http.MethodPost, "/api/v1/budgets", gin.H{"category": "Team Salaries", "monthly_budget": 10})
	assert.Equal(t, http.StatusConflict, w.Code)

	tx := transactionBody(models.TransactionExpense, 900, "P1")
	tx["category"] = "Team Salaries"
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/transactions", tx).Code)

	w = api.do(http.MethodGet, "/api/v1/budgets", nil)
	var overview models.BudgetOverview
	decode(t, w, &overview)
	require.Len(t, overview.Budgets, 1)
	assert.Equal(t, models.BudgetWarning, overview.Budgets[0].Status)

	w = api.do(http.MethodGet, "/api/v1/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Budget almost used")

	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/v1/budgets/Team%20Salaries", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/v1/budgets/Team%20Salaries", nil).Code)
}

func TestAnalyticsEndpoints(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusCreated,
		api.do(http.MethodPost, "/api/v1/transactions", transactionBody(models.TransactionIncome, 300, "P1")).Code)

	for _, path := range []string{
		"/api/v1/dashboard",
		"/api/v1/analytics/health",
		"/api/v1/analytics/monthly?months=12",
		"/api/v1/analytics/categories?type=Income",
		"/api/v1/analytics/cashflow",
		"/api/v1/analytics/pnl?period=quarter",
		"/api/v1/analytics/partners",
		"/api/v1/analytics/category-report",
	} {
		w := api.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path+": "+w.Body.String())
	}

	for _, path := range []string{
		"/api/v1/analytics/monthly?months=40",
		"/api/v1/analytics/categories?type=Refund",
		"/api/v1/analytics/cashflow?months=abc",
		"/api/v1/analytics/pnl?period=fortnight",
		"/api/v1/transactions/recent?limit=0",
	} {
		w := api.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}

	w := api.do(http.MethodGet, "/api/v1/analytics/monthly?months=2", nil)
	var series models.MonthlySeries
	decode(t, w, &series)
	assert.Equal(t, []string{"Jan 2026", "Feb 2026"}, series.Labels)
	assert.True(t, series.Revenue[1].Equal(decimal.NewFromInt(300)))
}

func TestReportDownload(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusCreated,
		api.do(http.MethodPost, "/api/v1/transactions", transactionBody(models.TransactionIncome, 300, "P1")).Code)

	w := api.do(http.MethodGet, "/api/v1/reports/ledger", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="ledger-2026-02-15.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "transaction_id,date,type"))

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/v1/reports/payroll", nil).Code)

	w = api.do(http.MethodGet, "/api/v1/reports", nil)
	assert.Contains(t, w.Body.String(), `"categories"`)
}

func TestSettingsAndSummaries(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPut, "/api/v1/settings/Currency", gin.H{"value": "USD"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = api.do(http.MethodPut, "/api/v1/settings/Tax_Rate", gin.H{"value": "lots"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/v1/settings", nil)
	var body struct {
		Settings map[string]string `json:"settings"`
	}
	decode(t, w, &body)
	assert.Equal(t, "USD", body.Settings["Currency"])
	assert.Equal(t, "Arneor Labs", body.Settings["Company_Name"])

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/summaries", nil).Code)
	w = api.do(http.MethodGet, "/api/v1/summaries", nil)
	assert.Contains(t, w.Body.String(), `"month":"February"`)

	w = api.do(http.MethodGet, "/api/v1/catalog", nil)
	assert.Contains(t, w.Body.String(), "Infrastructure Costs")
}

func TestSuggestCategoryEndpoint(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/transactions/suggest-category", gin.H{"description": "AWS invoice", "type": "Expense"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"description":"AWS invoice","category":"Infrastructure Costs","source":"rules"}`, w.Body.String())

	w = api.do(http.MethodPost, "/api/v1/transactions/suggest-category", gin.H{"description": "x", "type": "Refund"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSpreadsheetFailures(t *testing.T) {
	api := newTestAPI(t)

	api.store.Fail = func(op, rng string) error {
		return &services.RemoteError{Op: op, Status: http.StatusServiceUnavailable, Err: errors.New("backend error")}
	}
	api.ledger.ClearCache()
	w := api.do(http.MethodGet, "/api/v1/partners", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"retryable":true`)

	api.store.Fail = func(op, rng string) error { return services.ErrTokenExpired }
	w = api.do(http.MethodGet, "/api/v1/partners", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"reauth":true`)

	api.store.Fail = nil
	w = api.do(http.MethodGet, "/api/v1/partners", nil)
	assert.Equal(t, http.StatusOK, w.Code, "the ledger recovers once the store does")
}

func TestAdminEndpoints(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.Snapshot
	decode(t, w, &snap)
	assert.Len(t, snap.Partners, 3)

	w = api.do(http.MethodPost, "/api/v1/admin/initialize", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"created":[]}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/admin/audit", nil).Code)
}

func TestSessionEndpoints(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"asha@arneor.com"}`, w.Body.String())

	w = api.do(http.MethodGet, "/api/v1/auth/status", nil)
	assert.JSONEq(t, `{"authenticated":false,"email":""}`, w.Body.String())

	w = api.do(http.MethodPost, "/api/v1/auth/google", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/auth/logout", nil).Code)
}

func TestWebSocketReceivesChanges(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + api.token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.Eventually(t, func() bool { return api.ws.Sessions() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusCreated,
		api.do(http.MethodPost, "/api/v1/transactions", transactionBody(models.TransactionIncome, 42, "P2")).Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev services.ChangeEvent
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "created", ev.Type)
	assert.Equal(t, "transaction", ev.Entity)
	assert.Equal(t, "TXN0001", ev.ID)
	assert.Equal(t, "asha@arneor.com", ev.Actor)
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
