package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"penjualan/backend/internal/domain"
	"penjualan/backend/internal/payments"
	"penjualan/backend/internal/sales"
	"penjualan/backend/internal/service"
	"penjualan/backend/internal/store/memory"
)

const (
	demoPassword   = "demo-pass-123"
	testSecret     = "test-secret-key-with-32-bytes-min!"
	testAdminToken = "test-admin-token-with-32-bytes-min"
)

// newTestAPI builds a full API with a seeded in-memory store, real
// AuthManager and real Service so handler tests exercise the complete
// request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	t.Setenv("SEED_DEMO_PASSWORD", demoPassword)

	logger := zaptest.NewLogger(t)
	repo, err := memory.NewSeeded(logger)
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	gateway := payments.NewGateway(repo, nil, time.Minute, logger)
	engine := sales.NewEngine(repo, gateway, repo, logger)
	svc := service.New(repo, engine, gateway, logger)
	auth := NewAuthManager(testSecret, time.Hour, repo)

	return New(svc, auth, Options{AllowedOrigin: "http://localhost:5173", AdminToken: testAdminToken, Logger: logger})
}

type envelope[T any] struct {
	Status  string `json:"status"`
	Data    T      `json:"data"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func doRequest(t *testing.T, h http.Handler, method string, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, fn := range mutate {
		fn(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return env
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func loginDemo(t *testing.T, h http.Handler) (domain.LoginResponse, []*http.Cookie) {
	t.Helper()
	rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/login", domain.LoginRequest{Username: memory.DemoUsername, Password: demoPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("demo login failed: %d %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	env := decodeEnvelope[domain.LoginResponse](t, rec)
	if env.Data.AccessToken == "" {
		t.Fatalf("expected access token in login response")
	}
	return env.Data, cookies
}

func demoProduct(t *testing.T, h http.Handler, token string, sku string) domain.Product {
	t.Helper()
	rec := doRequest(t, h, http.MethodGet, "/api/v1/products", nil, bearer(token))
	if rec.Code != http.StatusOK {
		t.Fatalf("list products failed: %d %s", rec.Code, rec.Body.String())
	}
	for _, p := range decodeEnvelope[[]domain.Product](t, rec).Data {
		if p.SKU == sku {
			return p
		}
	}
	t.Fatalf("product %s not found in demo catalog", sku)
	return domain.Product{}
}

func TestHandleHealth(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec := doRequest(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := decodeEnvelope[map[string]any](t, rec)
	if env.Status != "success" || env.Code != http.StatusOK || env.Data["ok"] != true {
		t.Fatalf("unexpected health envelope: %+v", env)
	}
}

func TestHandleLogin_SetsSessionCookies(t *testing.T) {
	h := newTestAPI(t).Handler()

	resp, cookies := loginDemo(t, h)
	if resp.User.Username != memory.DemoUsername {
		t.Fatalf("expected demo user in response, got %+v", resp.User)
	}

	var authCookie, csrfCookie *http.Cookie
	for _, c := range cookies {
		switch c.Name {
		case authCookieName:
			authCookie = c
		case csrfCookieName:
			csrfCookie = c
		}
	}
	if authCookie == nil || !authCookie.HttpOnly || authCookie.Value != resp.AccessToken {
		t.Fatalf("expected http-only auth cookie carrying the token, got %+v", authCookie)
	}
	if csrfCookie == nil || csrfCookie.HttpOnly || csrfCookie.Value == "" {
		t.Fatalf("expected readable csrf cookie, got %+v", csrfCookie)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/login", domain.LoginRequest{Username: memory.DemoUsername, Password: "wrongpassword"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope[any](t, rec)
	if env.Status != "error" || env.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected error envelope: %+v", env)
	}
}

func TestHandleRegister(t *testing.T) {
	h := newTestAPI(t).Handler()
	req := domain.RegisterRequest{Username: "sari", Email: "Sari@Example.com", Password: "rahasia123"}

	rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/register", req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	user := decodeEnvelope[map[string]any](t, rec).Data
	if user["email"] != "sari@example.com" {
		t.Fatalf("expected normalized email, got %v", user["email"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatalf("password hash must not be serialized")
	}

	if rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/register", req); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate user, got %d", rec.Code)
	}

	bad := domain.RegisterRequest{Username: "ab", Email: "not-an-email", Password: "short"}
	if rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/register", bad); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for invalid registration, got %d", rec.Code)
	}

	login := doRequest(t, h, http.MethodPost, "/api/v1/auth/login", domain.LoginRequest{Username: "sari", Password: "rahasia123"})
	if login.Code != http.StatusOK {
		t.Fatalf("expected registered user to log in, got %d", login.Code)
	}
}

func TestHandleMe(t *testing.T) {
	h := newTestAPI(t).Handler()
	resp, _ := loginDemo(t, h)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/me", nil, bearer(resp.AccessToken))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeEnvelope[domain.User](t, rec).Data; got.ID != resp.User.ID {
		t.Fatalf("expected profile of %s, got %s", resp.User.ID, got.ID)
	}
}

func TestHandleProducts_RequiresAuth(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec := doRequest(t, h, http.MethodGet, "/api/v1/products", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/v1/products", nil, bearer("not-a-token"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestProductLifecycle(t *testing.T) {
	h := newTestAPI(t).Handler()
	resp, _ := loginDemo(t, h)
	auth := bearer(resp.AccessToken)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/products", map[string]any{"name": "Teh Botol", "price": 4500, "stock": 24}, auth)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	created := decodeEnvelope[domain.Product](t, rec).Data
	if created.SKU == "" {
		t.Fatalf("expected generated SKU")
	}

	rec = doRequest(t, h, http.MethodPatch, "/api/v1/products/"+created.ID, map[string]any{"stock": 30}, auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if got := decodeEnvelope[domain.Product](t, rec).Data; got.Stock != 30 || got.Price != created.Price {
		t.Fatalf("unexpected product after update: %+v", got)
	}

	rec = doRequest(t, h, http.MethodPatch, "/api/v1/products/"+created.ID, map[string]any{}, auth)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty update: expected 422, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodPost, "/api/v1/products", map[string]any{"name": "Murah", "price": 50}, auth)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("low price: expected 422, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodDelete, "/api/v1/products/"+created.ID, nil, auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	rec = doRequest(t, h, http.MethodGet, "/api/v1/products/"+created.ID, nil, auth)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", rec.Code)
	}
}

func TestCreateSale_Scenarios(t *testing.T) {
	h := newTestAPI(t).Handler()
	resp, _ := loginDemo(t, h)
	auth := bearer(resp.AccessToken)
	p1 := demoProduct(t, h, resp.AccessToken, "SKU-KOPI-02")

	cases := []struct {
		name      string
		paid      float64
		status    domain.PaymentStatus
		remaining float64
	}{
		{"fully paid", 30000, domain.PaymentStatusPaid, 0},
		{"partially paid", 10000, domain.PaymentStatusPartial, 20000},
	}
	for _, tc := range cases {
		body := map[string]any{
			"items":       []map[string]any{{"product_id": p1.ID, "quantity": 2, "price": 1}},
			"paid_amount": tc.paid,
		}
		rec := doRequest(t, h, http.MethodPost, "/api/v1/sales", body, auth)
		if rec.Code != http.StatusCreated {
			t.Fatalf("%s: expected 201, got %d (body: %s)", tc.name, rec.Code, rec.Body.String())
		}
		sale := decodeEnvelope[map[string]any](t, rec).Data
		if sale["total_amount"] != float64(30000) {
			t.Fatalf("%s: expected total 30000, got %v", tc.name, sale["total_amount"])
		}
		if sale["remaining_amount"] != tc.remaining {
			t.Fatalf("%s: expected remaining %v, got %v", tc.name, tc.remaining, sale["remaining_amount"])
		}
		if sale["status"] != string(tc.status) {
			t.Fatalf("%s: expected status %s, got %v", tc.name, tc.status, sale["status"])
		}
	}
}

func TestCreateSale_Rejections(t *testing.T) {
	h := newTestAPI(t).Handler()
	resp, _ := loginDemo(t, h)
	auth := bearer(resp.AccessToken)
	p1 := demoProduct(t, h, resp.AccessToken, "SKU-KOPI-02")
	items := []map[string]any{{"product_id": p1.ID, "quantity": 1}}

	cases := []struct {
		name string
		body map[string]any
		code int
	}{
		{"empty order", map[string]any{"items": []any{}, "paid_amount": 0}, http.StatusUnprocessableEntity},
		{"negative payment", map[string]any{"items": items, "paid_amount": -1}, http.StatusUnprocessableEntity},
		{"fractional quantity", map[string]any{"items": []map[string]any{{"product_id": p1.ID, "quantity": 1.5}}}, http.StatusUnprocessableEntity},
		{"unknown product", map[string]any{"items": []map[string]any{{"product_id": "prd_missing", "quantity": 1}}}, http.StatusNotFound},
		{"inactive method", map[string]any{"items": items, "payment_method_id": "pm_credit"}, http.StatusUnprocessableEntity},
		{"missing method", map[string]any{"items": items, "payment_method_id": "pm_nope"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := doRequest(t, h, http.MethodPost, "/api/v1/sales", tc.body, auth)
		if rec.Code != tc.code {
			t.Fatalf("%s: expected %d, got %d (body: %s)", tc.name, tc.code, rec.Code, rec.Body.String())
		}
	}

	rec := doRequest(t, h, http.MethodGet, "/api/v1/sales", nil, auth)
	if got := decodeEnvelope[[]domain.Sale](t, rec).Data; len(got) != 0 {
		t.Fatalf("rejected requests must not persist sales, found %d", len(got))
	}
}

func TestSalesReadEndpoints(t *testing.T) {
	h := newTestAPI(t).Handler()
	resp, _ := loginDemo(t, h)
	auth := bearer(resp.AccessToken)
	p1 := demoProduct(t, h, resp.AccessToken, "SKU-KOPI-02")

	rec := doRequest(t, h, http.MethodPost, "/api/v1/sales", map[string]any{
		"items":             []map[string]any{{"product_id": p1.ID, "quantity": 2}},
		"paid_amount":       10000,
		"payment_method_id": "pm_cash",
		"notes":             "titip dulu",
	}, auth)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create sale: %d %s", rec.Code, rec.Body.String())
	}
	created := decodeEnvelope[domain.Sale](t, rec).Data

	rec = doRequest(t, h, http.MethodGet, "/api/v1/sales/"+created.ID, nil, auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("get sale: expected 200, got %d", rec.Code)
	}
	got := decodeEnvelope[domain.Sale](t, rec).Data
	if got.PaymentMethod == nil || got.PaymentMethod.ID != "pm_cash" {
		t.Fatalf("expected payment method snapshot, got %+v", got.PaymentMethod)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/v1/sales/balance", nil, auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("balance: expected 200, got %d", rec.Code)
	}
	balance := decodeEnvelope[map[string]any](t, rec).Data
	if balance["sale_count"] != float64(1) || balance["remaining_amount"] != float64(20000) {
		t.Fatalf("unexpected balance: %v", balance)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/v1/sales/sale_missing", nil, auth)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing sale: expected 404, got %d", rec.Code)
	}
}

func adminToken(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set(adminHeaderName, token)
	}
}

func TestCreateSale_AcceptsClientHints(t *testing.T) {
	h := newTestAPI(t).Handler()
	resp, _ := loginDemo(t, h)
	auth := bearer(resp.AccessToken)
	p1 := demoProduct(t, h, resp.AccessToken, "SKU-KOPI-02")

	cases := []struct {
		name string
		line map[string]any
	}{
		{"price and discount", map[string]any{"product_id": p1.ID, "quantity": 2, "price": 15000, "discount": 500}},
		{"sub-cent price", map[string]any{"product_id": p1.ID, "quantity": 2, "price": 14999.999}},
		{"tampered price", map[string]any{"product_id": p1.ID, "quantity": 2, "price": "1"}},
	}
	for _, tc := range cases {
		body := map[string]any{"items": []map[string]any{tc.line}, "paid_amount": 0}
		rec := doRequest(t, h, http.MethodPost, "/api/v1/sales", body, auth)
		if rec.Code != http.StatusCreated {
			t.Fatalf("%s: expected 201, got %d (body: %s)", tc.name, rec.Code, rec.Body.String())
		}
		sale := decodeEnvelope[domain.Sale](t, rec).Data
		if sale.TotalAmount != p1.Price*2 || sale.Items[0].Price != p1.Price {
			t.Fatalf("%s: expected stored price to win, got %+v", tc.name, sale)
		}
	}
}

func TestAdminTogglePaymentMethod(t *testing.T) {
	h := newTestAPI(t).Handler()
	resp, _ := loginDemo(t, h)
	auth := bearer(resp.AccessToken)
	admin := adminToken(testAdminToken)
	p1 := demoProduct(t, h, resp.AccessToken, "SKU-KOPI-02")
	sale := map[string]any{
		"items":             []map[string]any{{"product_id": p1.ID, "quantity": 1}},
		"payment_method_id": "pm_qris",
	}

	if rec := doRequest(t, h, http.MethodPost, "/api/v1/sales", sale, auth); rec.Code != http.StatusCreated {
		t.Fatalf("sale with active method: %d", rec.Code)
	}

	rec := doRequest(t, h, http.MethodPatch, "/api/v1/admin/payment-methods/pm_qris", map[string]any{"is_active": false}, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	if rec := doRequest(t, h, http.MethodPost, "/api/v1/sales", sale, auth); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("sale with deactivated method: expected 422, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodPatch, "/api/v1/admin/payment-methods/pm_unknown", map[string]any{"is_active": true}, admin)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("toggle unknown: expected 404, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodPatch, "/api/v1/admin/payment-methods/pm_cash", map[string]any{}, admin)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("toggle without is_active: expected 422, got %d", rec.Code)
	}
	rec = doRequest(t, h, http.MethodGet, "/api/v1/admin/payment-methods", nil, admin)
	for _, m := range decodeEnvelope[[]domain.PaymentMethod](t, rec).Data {
		if m.ID == "pm_cash" && !m.IsActive {
			t.Fatalf("empty toggle body must not deactivate the method")
		}
	}

	rec = doRequest(t, h, http.MethodPost, "/api/v1/admin/payment-methods", map[string]any{"name": "Dompet Digital"}, admin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestTenantCannotChangePaymentMethods(t *testing.T) {
	h := newTestAPI(t).Handler()
	demo, _ := loginDemo(t, h)
	p1 := demoProduct(t, h, demo.AccessToken, "SKU-KOPI-02")

	register := domain.RegisterRequest{Username: "mallory", Email: "mallory@penjualan.local", Password: "rahasia123"}
	if rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/register", register); rec.Code != http.StatusCreated {
		t.Fatalf("register: %d", rec.Code)
	}
	login := doRequest(t, h, http.MethodPost, "/api/v1/auth/login", domain.LoginRequest{Username: "mallory", Password: "rahasia123"})
	if login.Code != http.StatusOK {
		t.Fatalf("login: %d", login.Code)
	}
	other := bearer(decodeEnvelope[domain.LoginResponse](t, login).Data.AccessToken)

	attempts := []struct {
		method string
		path   string
		body   any
		auth   []func(*http.Request)
	}{
		{http.MethodPatch, "/api/v1/payment-methods/pm_cash", map[string]any{"is_active": false}, []func(*http.Request){other}},
		{http.MethodPost, "/api/v1/payment-methods", map[string]any{"name": "Palsu"}, []func(*http.Request){other}},
		{http.MethodPatch, "/api/v1/admin/payment-methods/pm_cash", map[string]any{"is_active": false}, []func(*http.Request){other}},
		{http.MethodPatch, "/api/v1/admin/payment-methods/pm_cash", map[string]any{"is_active": false}, []func(*http.Request){other, adminToken("wrong-token")}},
	}
	for _, a := range attempts {
		rec := doRequest(t, h, a.method, a.path, a.body, a.auth...)
		if rec.Code < http.StatusBadRequest {
			t.Fatalf("%s %s: expected rejection, got %d", a.method, a.path, rec.Code)
		}
	}

	sale := map[string]any{
		"items":             []map[string]any{{"product_id": p1.ID, "quantity": 1}},
		"payment_method_id": "pm_cash",
	}
	if rec := doRequest(t, h, http.MethodPost, "/api/v1/sales", sale, bearer(demo.AccessToken)); rec.Code != http.StatusCreated {
		t.Fatalf("demo sale with pm_cash: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestAdminRoutesDisabledWithoutToken(t *testing.T) {
	api := newTestAPI(t)
	api.adminToken = ""
	h := api.Handler()

	rec := doRequest(t, h, http.MethodPatch, "/api/v1/admin/payment-methods/pm_cash", map[string]any{"is_active": false}, adminToken(""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 while admin token is unset, got %d", rec.Code)
	}
}

func TestHandleLogoutClearsCookies(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/logout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cleared := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 && c.Value == "" {
			cleared[c.Name] = true
		}
	}
	if !cleared[authCookieName] || !cleared[csrfCookieName] {
		t.Fatalf("expected both session cookies to be cleared, got %v", cleared)
	}
}
