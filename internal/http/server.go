package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"stocktrack/internal/cache"
	"stocktrack/internal/core"
	"stocktrack/internal/log"
	"stocktrack/internal/reports"
	"stocktrack/internal/services"
	appweb "stocktrack/web"
)

// Report cache keys are namespaced by projection kind.
const (
	cacheKindDaily   = "daily"
	cacheKindYearly  = "yearly"
	cacheKindDiagram = "diagram"
	cacheKindTotals  = "totals"
)

type Server struct {
	http.Server
	templates   *template.Template
	tracker     *services.TrackerService
	engine      *reports.Engine
	defaultUser string
	rateLimiter *rateLimiter
	slogger     *log.StructuredLogger

	// LRU caches for report projections, invalidated on writes
	seriesCache  *cache.LRUCache[core.Series]
	totalsCache  *cache.LRUCache[core.Totals]
	cacheManager *cache.Manager

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, tracker *services.TrackerService, engine *reports.Engine, defaultUser string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		tracker:      tracker,
		engine:       engine,
		defaultUser:  defaultUser,
		rateLimiter:  newRateLimiter(),
		slogger:      log.NewStructuredLogger(log.New(log.Config{Component: log.ComponentHTTP})),
		seriesCache:  cache.NewLRUCache[core.Series](200, 5*time.Minute),
		totalsCache:  cache.NewLRUCache[core.Totals](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
		startedAt:    time.Now(),
	}

	s.cacheManager.Register(s.seriesCache)
	s.cacheManager.Register(s.totalsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Tiny cache for static assets
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/{$}", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("GET /months/{year}/{month}", s.withSecurityHeaders(s.handleMonthPage))
	mux.HandleFunc("POST /days", s.withSecurityHeaders(s.handleDayInput))
	mux.HandleFunc("POST /entries", s.withSecurityHeaders(s.handleRecordEntry))
	mux.HandleFunc("GET /stocks", s.withSecurityHeaders(s.handleListStocks))
	mux.HandleFunc("POST /stocks", s.withSecurityHeaders(s.handleCreateStock))

	mux.HandleFunc("GET /reports/daily", s.withSecurityHeaders(s.handleDailyReport))
	mux.HandleFunc("GET /reports/yearly", s.withSecurityHeaders(s.handleYearlyReport))
	mux.HandleFunc("GET /reports/diagram", s.withSecurityHeaders(s.handleDiagramReport))
	mux.HandleFunc("GET /reports/totals", s.withSecurityHeaders(s.handleTotalsReport))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()

		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		// Generate request ID for tracing
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		s.slogger.LogHTTPStart(ctx, r, clientIP)

		// Apply rate limiting to write requests
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Create a custom response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.slogger.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) reportCacheKey(kind string, userID int64, year, month int, stock string) string {
	return kind + ":" + strconv.FormatInt(userID, 10) + ":" + strconv.Itoa(year) + "-" + strconv.Itoa(month) + ":" + stock
}

// invalidateReports drops cached projections touched by a write to the
// given user, period and stock. The yearly projection is keyed on month 0,
// the cross-stock projections on an empty stock name.
func (s *Server) invalidateReports(userID int64, year, month int, stock string) {
	s.seriesCache.Delete(s.reportCacheKey(cacheKindDaily, userID, year, month, stock))
	s.seriesCache.Delete(s.reportCacheKey(cacheKindYearly, userID, year, 0, stock))
	s.seriesCache.Delete(s.reportCacheKey(cacheKindDiagram, userID, year, month, ""))
	s.totalsCache.Delete(s.reportCacheKey(cacheKindTotals, userID, year, month, ""))
}
