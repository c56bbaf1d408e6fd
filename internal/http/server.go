package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "smartexpense/internal/log"
	"smartexpense/internal/middleware/ratelimit"
	"smartexpense/internal/middleware/security"
	"smartexpense/internal/middleware/trace"
	"smartexpense/internal/ports"
)

// Options tunes the server. Zero values pick defaults.
type Options struct {
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	Logger             *applog.Logger
	// TrustedProxies are CIDRs, beyond loopback and private ranges, whose
	// X-Forwarded-For header is believed.
	TrustedProxies []string
}

// Metrics is a snapshot of request and rate limiter counters.
type Metrics struct {
	trace.Metrics
	RateLimited   int64
	ActiveClients int
}

type Server struct {
	http.Server
	backend  ports.Backend
	expenses ports.ExpenseCreator
	logger   *applog.Logger

	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. Every route is served both at the root and under /api.
func NewServer(addr string, backend ports.Backend, expenses ports.ExpenseCreator, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	ips := security.NewClientIPResolver()
	for _, cidr := range opts.TrustedProxies {
		if err := ips.AddTrustedProxy(cidr); err != nil {
			logger.WarnContext(context.Background(), "Ignoring trusted proxy", applog.FieldError, err.Error())
		}
	}
	s := &Server{
		backend:  backend,
		expenses: expenses,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:   trace.NewMiddleware(ips.ClientIP, logger),
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /users", s.handleListUsers)
	api.HandleFunc("POST /users", s.handleCreateUser)
	api.HandleFunc("DELETE /users/{id}", s.handleDeleteUser)
	api.HandleFunc("GET /categories", s.handleListCategories)
	api.HandleFunc("POST /categories", s.handleCreateCategory)
	api.HandleFunc("DELETE /categories/{id}", s.handleDeleteCategory)
	api.HandleFunc("GET /expenses", s.handleListExpenses)
	api.HandleFunc("POST /expenses", s.handleCreateExpense)
	api.HandleFunc("GET /expenses/export.xlsx", s.handleExportExpenses)
	api.HandleFunc("GET /reports/monthly_summary", s.handleMonthlySummary)
	api.HandleFunc("GET /reports/monthly_summary.pdf", s.handleMonthlySummaryPDF)

	limited := s.limiter.Middleware(ips.ClientIP, ratelimit.IsWrite, handleRateLimited)(api)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("/api/", http.StripPrefix("/api", limited))
	mux.Handle("/", limited)

	var handler http.Handler = mux
	handler = withTimeout(opts.RequestTimeout)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = security.Recover(handlePanic)(handler)
	handler = applog.Middleware(logger, trace.GetRequestID)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       opts.RequestTimeout + 5*time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops accepting requests, drains in-flight ones and releases
// the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics exposes request and rate limiting counters for the process.
func (s *Server) Metrics() Metrics {
	return Metrics{
		Metrics:       s.tracer.GetMetrics(),
		RateLimited:   s.limiter.Rejected(),
		ActiveClients: s.limiter.ActiveClients(),
	}
}

func withTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports 503 while the database cannot be reached.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.backend.Ping(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err.Error())
		NewJSONResponse().Status(http.StatusServiceUnavailable).Body(map[string]string{"status": "unavailable"}).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Request was throttled.").Write(w)
}

func handlePanic(w http.ResponseWriter, r *http.Request) {
	InternalServerError().Write(w)
}
