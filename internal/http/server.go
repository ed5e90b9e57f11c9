package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"orcamentos/internal/auth"
	"orcamentos/internal/cache"
	"orcamentos/internal/config"
	applog "orcamentos/internal/log"
	"orcamentos/internal/middleware/cors"
	"orcamentos/internal/middleware/ratelimit"
	"orcamentos/internal/middleware/security"
	"orcamentos/internal/middleware/trace"
	"orcamentos/internal/services"
	appweb "orcamentos/web"
)

const (
	maxBodyBytes      = 64 << 10
	staticMaxAge      = 3600
	readyCheckTimeout = 5 * time.Second
)

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheStats exposes list cache effectiveness for /metrics.
type CacheStats interface {
	Stats() cache.Stats
}

// Dependencies are the collaborators the handlers call into.
type Dependencies struct {
	Accounts *services.AccountService
	Budgets  *services.BudgetService
	Sessions *auth.SessionManager
	// Store is pinged by /readyz.
	Store Pinger
	// ListCache and Caches are optional.
	ListCache CacheStats
	Caches    *cache.Manager
	Logger    *applog.Logger
}

// Application metrics for monitoring
type appMetrics struct {
	budgetsCreated  int64
	usersRegistered int64
	loginFailures   int64
	uptime          time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	logger    *applog.Logger

	accounts  *services.AccountService
	budgets   *services.BudgetService
	sessions  *auth.SessionManager
	store     Pinger
	listCache CacheStats
	caches    *cache.Manager

	limiter         *ratelimit.Limiter
	detector        *security.Detector
	traceMiddleware *trace.Middleware

	cookieSecure bool
	appMetrics   *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Accounts == nil || deps.Budgets == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("http server needs accounts, budgets and sessions")
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	tmpl, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	detector := security.NewDetector()
	for _, cidr := range cfg.GetTrustedProxies() {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		Server: http.Server{
			Addr:              ":" + cfg.Port,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		templates: tmpl,
		logger:    logger,
		accounts:  deps.Accounts,
		budgets:   deps.Budgets,
		sessions:  deps.Sessions,
		store:     deps.Store,
		listCache: deps.ListCache,
		caches:    deps.Caches,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
		detector:        detector,
		traceMiddleware: trace.NewMiddleware(logger, detector.ExtractClientIP),
		cookieSecure:    cfg.CookieSecure,
		appMetrics:      &appMetrics{uptime: time.Now()},
	}

	s.Handler = s.routes(cfg.GetCORSAllowedOrigins(), static)
	return s, nil
}

func (s *Server) routes(corsOrigins []string, static fs.FS) http.Handler {
	r := chi.NewRouter()

	r.Use(s.traceMiddleware.Middleware)
	r.Use(trace.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(cors.Middleware(cors.DefaultConfig(corsOrigins)))
	r.Use(chimiddleware.CleanPath)
	r.Use(chimiddleware.RequestSize(maxBodyBytes))
	r.Use(s.viewMiddleware)

	jsonLimit := s.limiter.Middleware(s.detector.ExtractClientIP, s.jsonRateLimited)
	formLimit := s.limiter.Middleware(s.detector.ExtractClientIP, s.formRateLimited)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)
	r.With(security.StaticAssetMiddleware(staticMaxAge)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// JSON API
	r.With(jsonLimit).Post("/register", s.handleAPIRegister)
	r.With(jsonLimit).Post("/login", s.handleAPILogin)
	r.Post("/logout", s.handleAPILogout)
	r.Get("/me", s.handleAPIMe)
	r.Get("/orcamentos", s.handleAPIListBudgets)
	r.With(jsonLimit).Post("/orcamentos", s.handleAPICreateBudget)

	// Pages and htmx partials
	r.Get("/", s.handleIndex)
	r.Get("/painel", s.handlePainel)
	r.Route("/ui", func(r chi.Router) {
		r.With(formLimit).Post("/register", s.handleUIRegister)
		r.With(formLimit).Post("/login", s.handleUILogin)
		r.Post("/logout", s.handleUILogout)
		r.Get("/orcamentos", s.handleBudgetRows)
		r.With(formLimit).Post("/orcamentos", s.handleUICreateBudget)
		r.Post("/preferencias/tema", s.handleToggleTheme)
		r.Post("/preferencias/fonte", s.handleAdjustFont)
	})

	return r
}

func (s *Server) jsonRateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "muitas requisições, tente novamente mais tarde"})
}

func (s *Server) formRateLimited(w http.ResponseWriter, r *http.Request) {
	TooManyRequestsError("Muitas requisições. Tente novamente mais tarde.").Write(w)
}

// render executes a template into a buffer first so a failure never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldOperation, applog.OpRender,
			"template", name,
			applog.FieldError, err)
		http.Error(w, "erro ao renderizar a página", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Shutdown stops background routines and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		if s.caches != nil {
			s.caches.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
