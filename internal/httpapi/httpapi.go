package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"penjualan/backend/internal/domain"
	"penjualan/backend/internal/logging"
	"penjualan/backend/internal/service"
)

type Options struct {
	AllowedOrigin string
	CookieSecure  bool
	// AdminToken enables the payment method admin routes. Empty disables them.
	AdminToken string
	Logger     *zap.Logger
}

type API struct {
	service       *service.Service
	auth          *AuthManager
	logger        *zap.Logger
	allowedOrigin string
	cookieSecure  bool
	adminToken    string
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service:       svc,
		auth:          auth,
		logger:        logger,
		allowedOrigin: opts.AllowedOrigin,
		cookieSecure:  opts.CookieSecure,
		adminToken:    opts.AdminToken,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(a.securityHeaders)
	r.Use(a.cors)
	r.Use(limitRequestBody)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no route for %s", req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/auth/register", a.handleRegister)
		api.Post("/auth/login", a.handleLogin)
		api.Post("/auth/logout", a.handleLogout)
		api.Get("/auth/csrf-token", a.handleCSRFToken)

		api.Group(func(private chi.Router) {
			private.Use(a.requireAuth)

			private.Get("/me", a.handleMe)

			private.Get("/products", a.handleListProducts)
			private.Post("/products", a.handleCreateProduct)
			private.Get("/products/{productID}", a.handleGetProduct)
			private.Patch("/products/{productID}", a.handleUpdateProduct)
			private.Delete("/products/{productID}", a.handleDeleteProduct)

			private.Get("/payment-methods", a.handleListPaymentMethods)

			private.Get("/sales", a.handleListSales)
			private.Post("/sales", a.handleCreateSale)
			private.Get("/sales/balance", a.handleSalesBalance)
			private.Get("/sales/{saleID}", a.handleGetSale)
		})

		// Payment methods are global; writes take the operator token.
		api.Route("/admin", func(admin chi.Router) {
			admin.Use(a.requireAdmin)
			admin.Get("/payment-methods", a.handleListPaymentMethods)
			admin.Post("/payment-methods", a.handleCreatePaymentMethod)
			admin.Patch("/payment-methods/{methodID}", a.handleTogglePaymentMethod)
		})
	})

	return r
}

// requireAuth accepts a bearer token or the session cookie. Cookie sessions
// must echo the csrf_token cookie in X-CSRF-Token on mutating requests.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, fromCookie := credentialFromRequest(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		if fromCookie && isMutating(r.Method) && !validCSRF(r) {
			a.writeServiceError(w, r, errCSRFMismatch)
			return
		}

		ctx := service.WithActor(r.Context(), actor)
		logger := logging.FromContext(ctx, a.logger).With(zap.String("user_id", actor.UserID))
		next.ServeHTTP(w, r.WithContext(logging.WithLogger(ctx, logger)))
	})
}

// requireAdmin checks X-Admin-Token against the configured operator token.
// The routes answer 404 while no token is configured.
func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.adminToken == "" {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no route for %s", r.URL.Path))
			return
		}
		provided := strings.TrimSpace(r.Header.Get(adminHeaderName))
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(a.adminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "admin credential required")
			return
		}
		logger := logging.FromContext(r.Context(), a.logger).With(zap.Bool("admin", true))
		next.ServeHTTP(w, r.WithContext(logging.WithLogger(r.Context(), logger)))
	})
}

func validCSRF(r *http.Request) bool {
	header := strings.TrimSpace(r.Header.Get(csrfHeaderName))
	cookie, err := r.Cookie(csrfCookieName)
	if header == "" || err != nil || cookie.Value == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) == 1
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.auth.Register(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	csrfToken, err := newCSRFToken()
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	a.setSessionCookies(w, resp.AccessToken, csrfToken)
	writeSuccess(w, http.StatusOK, resp)
}

func (a *API) handleLogout(w http.ResponseWriter, _ *http.Request) {
	a.clearSessionCookies(w)
	writeSuccess(w, http.StatusOK, map[string]any{"logged_out": true})
}

// handleCSRFToken rotates the csrf_token cookie and returns the new value.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	csrfToken, err := newCSRFToken()
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	a.setCSRFCookie(w, csrfToken)
	writeSuccess(w, http.StatusOK, map[string]string{"csrf_token": csrfToken})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := service.ActorFromContext(r.Context())
	if !ok {
		a.writeServiceError(w, r, service.ErrUnauthorized)
		return
	}
	user, err := a.auth.Profile(r.Context(), actor.UserID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, user)
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListProducts(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, products)
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := a.service.CreateProduct(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, product)
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, product)
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := a.service.UpdateProduct(r.Context(), chi.URLParam(r, "productID"), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, product)
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if err := a.service.DeleteProduct(r.Context(), productID); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"deleted": productID})
}

func (a *API) handleListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := a.service.ListPaymentMethods(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, methods)
}

func (a *API) handleCreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentMethodCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	method, err := a.service.CreatePaymentMethod(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, method)
}

func (a *API) handleTogglePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentMethodToggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := service.Validate(a.auth.validate, req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	method, err := a.service.SetPaymentMethodActive(r.Context(), chi.URLParam(r, "methodID"), *req.IsActive)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, method)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := a.service.ListSales(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, sales)
}

func (a *API) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sale, err := a.service.CreateSale(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, sale)
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), chi.URLParam(r, "saleID"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, sale)
}

func (a *API) handleSalesBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := a.service.Balance(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, balance)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

type successEnvelope struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
	Code   int    `json:"code"`
}

type errorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Status: "success", Data: data, Code: status})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{Status: "error", Message: message, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
