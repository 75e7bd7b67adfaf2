package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"spendsmart/internal/core"
	applog "spendsmart/internal/log"
	"spendsmart/internal/middleware/ratelimit"
	"spendsmart/internal/middleware/security"
	"spendsmart/internal/middleware/trace"
	"spendsmart/internal/services"
	"spendsmart/internal/session"
	appweb "spendsmart/web"
)

// Authenticator registers and verifies users.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (core.User, error)
	Authenticate(ctx context.Context, email, password string) (core.User, error)
}

// Ledger is the transaction API behind the JSON endpoints.
type Ledger interface {
	List(ctx context.Context, userID int64) ([]core.Transaction, error)
	Add(ctx context.Context, userID int64, in services.TransactionInput) (int64, error)
	Update(ctx context.Context, userID, id int64, ch services.TransactionChanges) (core.Transaction, error)
	Delete(ctx context.Context, userID, id int64) error
}

// Budgets is the budget API behind the JSON endpoints.
type Budgets interface {
	Set(ctx context.Context, userID int64, category, limit string) (int64, error)
	GetAll(ctx context.Context, userID int64) (map[string]float64, error)
	List(ctx context.Context, userID int64) ([]core.Budget, error)
	Delete(ctx context.Context, userID, id int64) error
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Auth    Authenticator
	Ledger  Ledger
	Budgets Budgets
	Gate    *session.Gate
	DB      Pinger
	Logger  *applog.Logger

	// AuthRateLimitPerMinute caps POST /login and POST /register per client IP.
	AuthRateLimitPerMinute int

	// TrustedProxies are CIDRs whose forwarded-for headers are believed.
	TrustedProxies []string
}

type Server struct {
	http.Server
	templates *template.Template

	auth    Authenticator
	ledger  Ledger
	budgets Budgets
	gate    *session.Gate
	db      Pinger
	logger  *applog.Logger

	authLimiter *ratelimit.Limiter
	clientIP    *security.ClientIPResolver
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		auth:     deps.Auth,
		ledger:   deps.Ledger,
		budgets:  deps.Budgets,
		gate:     deps.Gate,
		db:       deps.DB,
		logger:   logger,
		clientIP: security.NewClientIPResolver(),
		authLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.AuthRateLimitPerMinute,
		}),
		started: time.Now(),
	}

	for _, cidr := range deps.TrustedProxies {
		if err := s.clientIP.AddTrustedProxy(cidr); err != nil {
			logger.WarnContext(context.Background(), "Ignoring trusted proxy", "error", err)
		}
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.ErrorContext(context.Background(), "Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.WarnContext(context.Background(), "Failed to mount embedded static FS", "error", err)
	}

	limitAuth := s.authLimiter.Middleware(s.clientIP.ClientIP, writeRateLimited)
	requireUser := session.RequireUser(writeUnauthorized)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// Pages
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.Handle("POST /register", limitAuth(http.HandlerFunc(s.handleRegister)))
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.Handle("POST /login", limitAuth(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("GET /dashboard", s.handleDashboard)

	// Transactions
	mux.HandleFunc("GET /get_transactions", s.handleListTransactions)
	mux.Handle("POST /add_transaction", requireUser(http.HandlerFunc(s.handleAddTransaction)))
	mux.Handle("PUT /update_transaction/{id}", requireUser(http.HandlerFunc(s.handleUpdateTransaction)))
	mux.Handle("DELETE /delete_transaction/{id}", requireUser(http.HandlerFunc(s.handleDeleteTransaction)))

	// Budgets
	mux.Handle("POST /set_budget", requireUser(http.HandlerFunc(s.handleSetBudget)))
	mux.HandleFunc("GET /get_budget", s.handleGetBudgets)
	mux.HandleFunc("GET /get_budgets", s.handleGetBudgets)
	mux.HandleFunc("GET /budgets", s.handleListBudgets)
	mux.Handle("DELETE /delete_budget/{id}", requireUser(http.HandlerFunc(s.handleDeleteBudget)))

	var handler http.Handler = mux
	if s.gate != nil {
		handler = s.gate.Middleware(handler)
	}
	handler = security.NoStore(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = applog.RequestIDMiddleware(trace.GetRequestID)(handler)
	handler = applog.Middleware(logger)(handler)
	handler = trace.NewMiddleware(s.clientIP.ClientIP, logger).Middleware(handler)
	s.Handler = handler

	return s
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.authLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if session.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		Field("status", "ok").
		Field("uptime", time.Since(s.started).Round(time.Second).String()).
		Write(w)
}

// handleReady reports 503 until the database answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"database": "ok", "templates": "ok"}

	if s.db == nil {
		checks["database"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else if err := s.db.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "Readiness check failed", "error", err)
		checks["database"] = "failed"
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	if s.templates == nil {
		checks["templates"] = "failed"
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	NewJSONResponse().
		Status(code).
		Field("status", status).
		Field("checks", checks).
		Write(w)
}
