// Package api provides the HTTP server for indexdash.
//
// It serves the dashboard page, a websocket channel that reruns the
// dashboard on every widget change, and a small JSON API over the same
// data sources.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phuslu/log"

	"github.com/seenimoa/indexdash/internal/config"
	"github.com/seenimoa/indexdash/internal/dashboard"
	"github.com/seenimoa/indexdash/internal/datasource"
	"github.com/seenimoa/indexdash/internal/report"
	"github.com/seenimoa/indexdash/pkg/models"
	"github.com/seenimoa/indexdash/pkg/utils"
	"github.com/seenimoa/indexdash/web"
)

// SessionCookie carries the dashboard session id.
const SessionCookie = "indexdash_session"

// cycleTimeout bounds one dashboard cycle, including every upstream call.
const cycleTimeout = 120 * time.Second

// pruneInterval is how often idle sessions are swept.
const pruneInterval = time.Minute

// Options are the server's collaborators. Quotes and News may be nil.
type Options struct {
	Data    dashboard.MarketData
	Quotes  dashboard.QuoteSource
	News    dashboard.HeadlineSource
	Logger  *log.Logger
	Version string
}

// Server is the HTTP server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	data     dashboard.MarketData
	dash     *dashboard.Dashboard
	sessions *dashboard.Sessions
	renderer *report.Renderer
	wsHub    *WSHub
	log      *log.Logger
	version  string
	now      func() time.Time
}

// NewServer creates a configured server with all routes and middleware.
func NewServer(cfg *config.Config, opts Options) (*Server, error) {
	if opts.Data == nil {
		return nil, errors.New("api: market data source is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = &log.DefaultLogger
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("template setup failed: %w", err)
	}

	dash := dashboard.New(opts.Data, opts.Quotes, opts.News, dashboard.Options{
		DefaultIndex:    models.IndexID(cfg.Dashboard.DefaultIndex),
		StrictLineItems: cfg.Dashboard.StrictLineItems,
		HeadlineLimit:   cfg.Dashboard.HeadlineLimit,
		Logger:          logger,
	})

	version := opts.Version
	if version == "" {
		version = "dev"
	}

	srv := &Server{
		cfg:      cfg,
		data:     opts.Data,
		dash:     dash,
		sessions: dashboard.NewSessions(time.Duration(cfg.Dashboard.SessionIdleMinutes) * time.Minute),
		renderer: renderer,
		wsHub:    NewWSHub(),
		log:      logger,
		version:  version,
		now:      time.Now,
	}
	srv.router = srv.buildRouter()
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down gracefully on
// SIGINT or SIGTERM.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(done)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go s.pruneSessions(janitorCtx, pruneInterval)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-done:
	}
	s.log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// pruneSessions drops idle sessions every interval until ctx is done.
func (s *Server) pruneSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Prune(); n > 0 {
				s.log.Debug().Int("pruned", n).Int("live", s.sessions.Len()).Msg("idle sessions dropped")
			}
		}
	}
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	// Dashboard page and its assets
	r.With(middleware.Timeout(cycleTimeout)).Get("/", s.handlePage)
	r.Get("/ws", s.handleWebSocket)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.StaticFS())))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		origins := []string{"*"}
		if len(s.cfg.Server.CORSOrigins) > 0 {
			origins = s.cfg.Server.CORSOrigins
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
		r.Use(middleware.Timeout(cycleTimeout))

		// Health (also available at /health)
		r.Get("/health", s.handleHealth)

		// Index table and constituents
		r.Get("/indices", s.handleIndices)
		r.Get("/symbols/{index}", s.handleSymbols)

		// Market data
		r.Get("/history/{ticker}", s.handleHistory)
		r.Get("/financials/{index}/{ticker}", s.handleFinancials)

		// One dashboard cycle as JSON
		r.Post("/render", s.handleRender)

		// Configuration
		r.Get("/config", s.handleGetConfig)
	})

	return r
}

// requestLogger logs every request once it has been served.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("took", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SymbolsResponse is the body of GET /api/v1/symbols/{index}.
type SymbolsResponse struct {
	Index   models.IndexID `json:"index"`
	Count   int            `json:"count"`
	Symbols []string       `json:"symbols"`
}

// FinancialsResponse is the body of GET /api/v1/financials/{index}/{ticker}.
// Warnings lists partial failures; whatever loaded is still returned.
type FinancialsResponse struct {
	*models.Financials
	Warnings []string `json:"warnings,omitempty"`
}

// ============================================================
// Dashboard page
// ============================================================

// session returns the caller's session, setting the cookie when a new one
// is created.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*dashboard.Session, bool) {
	sess, cookie := s.lookupSession(r)
	if cookie != nil {
		http.SetCookie(w, cookie)
	}
	return sess, cookie != nil
}

// lookupSession finds the session named by the request cookie. The returned
// cookie is non-nil when a new session had to be created.
func (s *Server) lookupSession(r *http.Request) (*dashboard.Session, *http.Cookie) {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.sessions.Get(id)
	if !created {
		return sess, nil
	}
	return sess, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func inputFromQuery(r *http.Request) (dashboard.Input, bool) {
	q := r.URL.Query()
	in := dashboard.Input{
		Index:  q.Get("index"),
		Ticker: q.Get("ticker"),
		Start:  q.Get("start"),
		End:    q.Get("end"),
	}
	return in, q.Has("index") || q.Has("ticker") || q.Has("start") || q.Has("end")
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, created := s.session(w, r)
	in, submitted := inputFromQuery(r)

	// A bare reload shows the last result instead of re-fetching.
	v := sess.Last()
	if created || submitted || v == nil {
		v = s.dash.Run(r.Context(), sess, in)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if err := s.renderer.RenderPage(w, v); err != nil {
		s.log.Error().Err(err).Str("session", sess.ID).Msg("rendering page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

// ============================================================
// JSON handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	markets := make(map[models.IndexID]string, len(models.Indices))
	for _, ix := range models.Indices {
		markets[ix.ID] = utils.HoursFor(ix.ID).StatusAt(now)
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":        "ok",
			"version":       s.version,
			"sessions":      s.sessions.Len(),
			"ws_clients":    s.wsHub.ClientCount(),
			"market_status": markets,
		},
	})
}

func (s *Server) handleIndices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: models.Indices})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	ix, ok := s.resolveIndex(w, chi.URLParam(r, "index"))
	if !ok {
		return
	}

	symbols, err := s.data.ListSymbols(r.Context(), ix)
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    SymbolsResponse{Index: ix.ID, Count: len(symbols), Symbols: symbols},
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeSymbol(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	ix, ok := s.resolveIndex(w, r.URL.Query().Get("index"))
	if !ok {
		return
	}

	rng, err := utils.ParseDateRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	symbols, err := s.data.ListSymbols(r.Context(), ix)
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	listed, ok := dashboard.FindSymbol(symbols, ticker)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s is not in the %s list", ticker, ix.Name))
		return
	}

	series, err := s.data.GetPriceHistory(r.Context(), ix, listed, rng)
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: series})
}

func (s *Server) handleFinancials(w http.ResponseWriter, r *http.Request) {
	ix, ok := s.resolveIndex(w, chi.URLParam(r, "index"))
	if !ok {
		return
	}
	ticker := utils.NormalizeSymbol(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	fin, err := s.data.GetFinancials(r.Context(), ix, ticker)
	if fin == nil {
		if err == nil {
			err = datasource.ErrTickerNotFound
		}
		s.upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    FinancialsResponse{Financials: fin, Warnings: datasource.Describe(err)},
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var in dashboard.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, _ := s.session(w, r)
	v := s.dash.Run(r.Context(), sess, in)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: v})
}

// resolveIndex writes a 404 and returns false for an unknown index key.
func (s *Server) resolveIndex(w http.ResponseWriter, key string) (models.Index, bool) {
	ix, err := s.dash.ResolveIndex(key)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return models.Index{}, false
	}
	return ix, true
}

// upstreamError maps a data source failure to an HTTP status.
func (s *Server) upstreamError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, datasource.ErrTickerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	s.log.Warn().Err(err).Str("kind", string(datasource.KindOf(err))).Msg("upstream request failed")
	writeError(w, status, strings.Join(datasource.Describe(err), "; "))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
