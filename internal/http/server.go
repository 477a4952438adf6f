package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"detetive/internal/backend"
	"detetive/internal/cache"
	"detetive/internal/core"
	applog "detetive/internal/log"
	"detetive/internal/middleware/auth"
	"detetive/internal/middleware/ratelimit"
	"detetive/internal/middleware/security"
	"detetive/internal/middleware/trace"
	"detetive/internal/services"
)

// Options wires the server to the application.
type Options struct {
	Addr         string
	Services     *services.Services
	Stores       *backend.Stores
	Tokens       *auth.Tokens
	Cache        *cache.LRUCache[any]
	RateLimitRPM int
	Logger       *slog.Logger
	Now          func() time.Time
}

type Server struct {
	http.Server
	svc    *services.Services
	stores *backend.Stores
	tokens *auth.Tokens
	cache  *cache.LRUCache[any]
	logger *applog.Logger
	now    func() time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	headers          *security.HeadersMiddleware

	started      time.Time
	shutdownOnce sync.Once
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := applog.Wrap(opts.Logger, applog.ComponentHTTP)
	detector := security.NewDetector(logger.Logger)

	s := &Server{
		svc:              opts.Services,
		stores:           opts.Stores,
		tokens:           opts.Tokens,
		cache:            opts.Cache,
		logger:           logger,
		now:              opts.Now,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger.Logger, detector.ExtractClientIP),
		headers:          security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		started:          time.Now(),
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// routes builds the mux and wraps it in the middleware chain. Outermost
// first: trace, request logger, security detection, security headers, rate
// limit.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/auth/me", s.handleMe)

	protected.HandleFunc("GET /api/accounts", s.handleListAccounts)
	protected.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	protected.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	protected.HandleFunc("PUT /api/accounts/{id}", s.handleUpdateAccount)
	protected.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	protected.HandleFunc("POST /api/accounts/{id}/default", s.handleSetDefaultAccount)

	protected.HandleFunc("GET /api/categories", s.handleListCategories)
	protected.HandleFunc("POST /api/categories", s.handleCreateCategory)
	protected.HandleFunc("GET /api/categories/{id}", s.handleGetCategory)
	protected.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	protected.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	protected.HandleFunc("GET /api/transactions", s.handleListTransactions)
	protected.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	protected.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	protected.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	protected.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	protected.HandleFunc("GET /api/cards", s.handleListCards)
	protected.HandleFunc("POST /api/cards", s.handleCreateCard)
	protected.HandleFunc("GET /api/cards/{id}", s.handleGetCard)
	protected.HandleFunc("PUT /api/cards/{id}", s.handleUpdateCard)
	protected.HandleFunc("DELETE /api/cards/{id}", s.handleDeleteCard)
	protected.HandleFunc("GET /api/cards/{id}/bills", s.handleListBills)
	protected.HandleFunc("POST /api/cards/{id}/bills/{billID}/pay", s.handlePayBill)

	protected.HandleFunc("GET /api/budgets", s.handleListBudgets)
	protected.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	protected.HandleFunc("GET /api/budgets/summary", s.handleBudgetSummaries)
	protected.HandleFunc("GET /api/budgets/{id}", s.handleGetBudget)
	protected.HandleFunc("PUT /api/budgets/{id}", s.handleUpdateBudget)
	protected.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)
	protected.HandleFunc("GET /api/budgets/{id}/summary", s.handleBudgetSummary)

	protected.HandleFunc("GET /api/notifications", s.handleListNotifications)
	protected.HandleFunc("GET /api/notifications/preview", s.handlePreviewNotifications)
	protected.HandleFunc("POST /api/notifications/refresh", s.handleRefreshNotifications)
	protected.HandleFunc("POST /api/notifications/read-all", s.handleReadAllNotifications)
	protected.HandleFunc("POST /api/notifications/{id}/read", s.handleReadNotification)
	protected.HandleFunc("DELETE /api/notifications/{id}", s.handleDeleteNotification)

	protected.HandleFunc("GET /api/dashboard", s.handleDashboard)

	mux.Handle("/api/", s.tokens.Middleware(protected))

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})(h)
	h = s.headers.Middleware(h)
	h = s.securityDetector.Middleware(h)
	h = applog.Middleware(s.logger, trace.RequestID)(h)
	h = s.traceMiddleware.Middleware(h)
	return h
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// userID returns the authenticated user. Routes under /api/ are behind the
// auth middleware, so a missing id is a wiring bug reported as 401.
func userID(r *http.Request) (string, bool) {
	return auth.UserID(r.Context())
}

// requireUser returns the authenticated user id, answering 401 when the
// request carries none.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := userID(r)
	if !ok {
		s.fail(w, r, core.ErrUnauthorized)
	}
	return uid, ok
}

// respond writes v as JSON, or the mapped error when err is not nil.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewResponse().Status(status).JSON(v).Write(w)
}

// fail writes the mapped error response and logs server-side failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	resp := FromError(err)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).LogError(r.Context(), "Request failed", err,
			r.Method+" "+r.Pattern, applog.ErrorTypeInternal, nil)
	}
	resp.Write(w)
}
