package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"saldo/internal/log"
	"saldo/internal/middleware/ratelimit"
	"saldo/internal/middleware/security"
	"saldo/internal/middleware/trace"
	"saldo/internal/services"
)

// Options tunes the server. The zero value is usable.
type Options struct {
	Logger    *log.Logger
	RateLimit ratelimit.Config
	Headers   *security.HeadersConfig
	// TrustedProxies are extra CIDRs whose forwarding headers are honoured.
	TrustedProxies []string
}

// Server is the JSON API.
type Server struct {
	http.Server
	templates   *services.TemplateService
	projections *services.ProjectionService
	tracer      *trace.Middleware
	rateLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, templates *services.TemplateService, projections *services.ProjectionService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{Component: log.ComponentHTTP})
	}
	headers := security.APIHeadersConfig()
	if opts.Headers != nil {
		headers = *opts.Headers
	}
	clientIP := security.NewClientIP()
	for _, cidr := range opts.TrustedProxies {
		if err := clientIP.AddTrustedProxy(cidr); err != nil {
			opts.Logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		templates:   templates,
		projections: projections,
		tracer:      trace.NewMiddleware(),
		rateLimiter: ratelimit.NewLimiter(opts.RateLimit),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimiter.Middleware(clientIP.Extract, writeRateLimited,
		http.MethodPost, http.MethodPut, http.MethodDelete))

	api.HandleFunc("/templates", s.handleListTemplates).Methods(http.MethodGet)
	api.HandleFunc("/templates", s.handleCreateTemplate).Methods(http.MethodPost)
	api.HandleFunc("/templates/{id}", s.handleGetTemplate).Methods(http.MethodGet)
	api.HandleFunc("/templates/{id}", s.handleUpdateTemplate).Methods(http.MethodPut)
	api.HandleFunc("/templates/{id}", s.handleDeleteTemplate).Methods(http.MethodDelete)
	api.HandleFunc("/templates/{id}/overrides/{month}", s.handleSetOverride).Methods(http.MethodPut)
	api.HandleFunc("/templates/{id}/overrides/{month}", s.handleClearOverride).Methods(http.MethodDelete)
	api.HandleFunc("/templates/{id}/styles", s.handleSetStyle).Methods(http.MethodPut)
	api.HandleFunc("/templates/{id}/styles", s.handleClearStyle).Methods(http.MethodDelete)
	api.HandleFunc("/templates/{id}/styles/{month}", s.handleSetStyle).Methods(http.MethodPut)
	api.HandleFunc("/templates/{id}/styles/{month}", s.handleClearStyle).Methods(http.MethodDelete)
	api.HandleFunc("/templates/{id}/split", s.handleSplit).Methods(http.MethodPost)
	api.HandleFunc("/templates/{id}/reconcile", s.handleToggleReconciled).Methods(http.MethodPost)

	api.HandleFunc("/payment-methods", s.handleListPaymentMethods).Methods(http.MethodGet)
	api.HandleFunc("/payment-methods/{name}", s.handleSavePaymentMethod).Methods(http.MethodPut)
	api.HandleFunc("/payment-methods/{name}", s.handleDeletePaymentMethod).Methods(http.MethodDelete)

	api.HandleFunc("/projection", s.handleProjection).Methods(http.MethodGet)
	api.HandleFunc("/months/{month}/occurrences", s.handleOccurrences).Methods(http.MethodGet)
	api.HandleFunc("/statements/{month}", s.handleStatements).Methods(http.MethodGet)
	api.HandleFunc("/statements/{month}/{method}/reconciliation", s.handleReconciliation).Methods(http.MethodGet)

	api.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)

	// Subrouters do not inherit these from the root router.
	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError("no such route").Write(w)
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = methodNotAllowed
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = methodNotAllowed

	// Outermost first: trace assigns the ID the logger reads.
	var h http.Handler = r
	h = security.NewHeadersMiddleware(headers).Middleware(h)
	h = log.Middleware(opts.Logger, trace.GetRequestID, clientIP.Extract)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Metrics reports request counts and rate-limit rejections.
func (s *Server) Metrics() (trace.Metrics, ratelimit.Metrics) {
	return s.tracer.GetMetrics(), s.rateLimiter.GetMetrics()
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func writeRateLimited(w http.ResponseWriter, _ *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	rev, err := s.projections.Revision(ctx)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
		ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"status": "ready", "revision": rev}).Write(w)
}
