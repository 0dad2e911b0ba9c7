package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/mailguard/internal/pkg/logger"
)

// SetupRoutes builds the router.
func SetupRoutes(h *Handlers, hc *HealthChecker, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if hc != nil {
		r.Get("/health", hc.HandleHealth)
		r.Get("/health/live", hc.HandleLiveness)
		r.Get("/health/ready", hc.HandleReadiness)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/verify", h.VerifyEmail)
		r.Post("/verify/batch", h.VerifyBatch)

		r.Post("/eligibility", h.FilterEligible)
		r.Route("/leads/{id}", func(r chi.Router) {
			r.Get("/eligibility", h.LeadEligibility)
			r.Post("/engagement", h.RecordEngagement)
		})

		r.Route("/bounces", func(r chi.Router) {
			r.Post("/soft", h.SoftBounce)
			r.Post("/hard", h.HardBounce)
			r.Get("/due", h.DueRetries)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/thresholds", h.Thresholds)
			r.Post("/health", h.CampaignHealthSweep)
			r.Post("/{id}/health", h.CampaignHealth)
		})

		r.Route("/deliverability", func(r chi.Router) {
			r.Get("/score", h.Score)
			r.Get("/snapshots", h.Snapshots)
		})

		r.Route("/domains", func(r chi.Router) {
			r.Get("/auth", h.DomainAuth)
			r.Post("/{name}/refresh", h.RefreshDomainAuth)
		})

		r.Post("/send", h.Send)
		r.Get("/ratelimit", h.RateLimit)
		r.Post("/content/preview", h.Preview)
	})

	return r
}

// requestLogger logs one line per request through the structured logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
