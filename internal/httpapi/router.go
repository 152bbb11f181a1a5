// Package httpapi is the thin HTTP adapter over the intake service,
// grounded on the teacher's walletserver/routes+controllers split but
// using chi instead of the teacher's gorilla/mux router
// (spec §6 "HTTP surface").
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"paymentproc/internal/config"
	"paymentproc/internal/intake"
	"paymentproc/internal/observability"
	"paymentproc/internal/store"
	"paymentproc/internal/version"
)

// NewRouter assembles the full HTTP surface.
func NewRouter(svc *intake.Service, st store.Store, cfg *config.Config, metrics *observability.Metrics, log *logrus.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	h := &handlers{svc: svc, store: st, cfg: cfg}

	r.Get("/health/version", h.healthVersion)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/payments", h.createPayment)
		r.Get("/payments/{id}", h.getPayment)
		r.Post("/payments/{id}/cancel", h.cancelPayment)
		r.Post("/payment-batches", h.createBatch)
	})
	r.Handle("/metrics", metrics.Handler())

	return r
}

// requestLogger mirrors the teacher's middleware.Logger but through
// logrus with structured fields instead of Infof string interpolation.
func requestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": time.Since(start),
			}).Info("http request")
		})
	}
}

// versionResponse is the /health/version body, richer than the bare
// spec.md response per the original's api/version.rs.
type versionResponse struct {
	Version string `json:"version"`
	Network string `json:"network"`
}

func (h *handlers) healthVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, versionResponse{Version: version.Version, Network: h.cfg.Network})
}
