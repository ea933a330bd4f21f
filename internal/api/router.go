package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/quarterhill/stratus/internal/config"
	"github.com/quarterhill/stratus/internal/inventory"
	"github.com/quarterhill/stratus/internal/logging"
	"github.com/quarterhill/stratus/internal/middleware"
	"github.com/quarterhill/stratus/internal/version"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type apiServer struct {
	store  *inventory.Store
	gdb    *gorm.DB
	logger logging.Logger
}

type statusRecorder struct {
	http.ResponseWriter
	code  int
	bytes int64
}

func (sr *statusRecorder) WriteHeader(statusCode int) {
	sr.code = statusCode
	sr.ResponseWriter.WriteHeader(statusCode)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

func Router(cfg *config.Config, logger logging.Logger, store *inventory.Store, gdb *gorm.DB) http.Handler {
	s := &apiServer{store: store, gdb: gdb, logger: logger}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	// request id + structured request log
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.NewString()
			w.Header().Set("X-Request-Id", id)
			started := time.Now()
			rec := &statusRecorder{ResponseWriter: w, code: 200}
			next.ServeHTTP(rec, r)
			logger.Info("http_request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.code,
				"durationMs", float64(time.Since(started))/1e6,
				"requestId", id,
				"bytesOut", rec.bytes,
			)
		})
	})
	r.Use(func(next http.Handler) http.Handler {
		return middleware.Recoverer(next, logger)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, map[string]string{"name": "stratus", "version": version.Version})
		})
		r.Route("/v1", func(r chi.Router) {
			r.Use(s.requireToken)
			s.register(r)
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
