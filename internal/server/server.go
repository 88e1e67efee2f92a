// Package server exposes the intake pipeline over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-intake/internal/integration"
	"github.com/sells-group/invoice-intake/internal/ledger"
	"github.com/sells-group/invoice-intake/internal/pipeline"
	"github.com/sells-group/invoice-intake/internal/store"
)

// Deps are the collaborators the HTTP surface needs. Deliveries may be nil,
// in which case the delivery log route reports an empty list.
type Deps struct {
	Pipeline    *pipeline.Pipeline
	Settings    *integration.ConfigStore
	Ledger      *ledger.Writer
	Deliveries  store.Store
	MaxUpload   int64
	CORSOrigins []string
}

// Server holds the HTTP handlers.
type Server struct {
	deps Deps
	now  func() time.Time
}

// New creates a Server.
func New(deps Deps) *Server {
	if deps.MaxUpload <= 0 {
		deps.MaxUpload = 16 << 20
	}
	if len(deps.CORSOrigins) == 0 {
		deps.CORSOrigins = []string{"*"}
	}
	return &Server{deps: deps, now: time.Now}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)

	r.Post("/upload", s.handleUpload)
	r.Post("/api/extract", s.handleAPIExtract)
	r.Get("/api/deliveries", s.handleDeliveries)
	r.Get("/api/deliveries/stats", s.handleDeliveryStats)

	r.Get("/webhook-config", s.handleGetConfig)
	r.Post("/webhook-config", s.handleSaveConfig)

	r.Get("/download-csv", s.handleDownloadCSV)
	r.Get("/download-xlsx", s.handleDownloadXLSX)

	return r
}

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			zap.L().Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}
