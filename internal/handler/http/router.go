package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HarshMishra-Git/Only-Thing-sub001/internal/service"
	"github.com/HarshMishra-Git/Only-Thing-sub001/pkg/health"
	"github.com/HarshMishra-Git/Only-Thing-sub001/pkg/middleware"
)

// NewRouter creates a chi router with all payment gateway routes registered.
// Webhook routes skip the JSON content-type gate: providers sign the raw
// body and set their own headers.
func NewRouter(
	paymentService *service.PaymentService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("payment-gateway"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	paymentHandler := NewPaymentHandler(paymentService, logger)
	webhookHandler := NewWebhookHandler(paymentService, logger)

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/intents", paymentHandler.CreateIntent)
		r.Get("/intents/{id}", paymentHandler.GetIntent)
		r.Post("/intents/{id}/confirm", paymentHandler.ConfirmIntent)
		r.Post("/intents/{id}/capture", paymentHandler.CaptureIntent)
		r.Post("/refunds", paymentHandler.Refund)
		r.Get("/methods", paymentHandler.SupportedMethods)
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookHandler.Stripe)
		r.Post("/razorpay", webhookHandler.Razorpay)
	})

	return r
}
