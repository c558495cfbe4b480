package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/worldlink/pkg/sync"
)

// newAdminRouter builds the read-only status surface around a running
// sync.Manager: health, stats, and the currently registered schemas.
func newAdminRouter(manager *sync.Manager) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{
			"status":    "ok",
			"connected": manager.IsConnected(),
		})
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, manager.GetStats())
	})

	r.Get("/schemas", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, manager.GetSchemaRegistry().GetAll())
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logrus.WithFields(logrus.Fields{
			"component": "admin_http",
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"duration":  time.Since(start),
		}).Info("admin request")
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logrus.WithError(err).Warn("admin response encode failed")
	}
}
