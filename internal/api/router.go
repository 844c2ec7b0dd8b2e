package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackgods/steammaster-scheduling/internal/appointment"
	"github.com/hackgods/steammaster-scheduling/internal/auth"
	"github.com/hackgods/steammaster-scheduling/internal/booking"
	"github.com/hackgods/steammaster-scheduling/internal/catalog"
	"github.com/hackgods/steammaster-scheduling/internal/logging"
	"github.com/hackgods/steammaster-scheduling/internal/loyalty"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Catalog      *catalog.Catalog
	Booking      *booking.Service
	Loyalty      *loyalty.Service
	OTP          *auth.OTPService
	Tokens       *auth.Tokens
	Checks       []HealthCheck
	Gatherer     prometheus.Gatherer
	Logger       *logging.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	health := NewHealthHandler(cfg.Checks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/otp", requestOTPHandler(cfg.OTP))
		r.Post("/otp/verify", verifyOTPHandler(cfg.OTP))
	})

	r.Route("/catalog", func(r chi.Router) {
		r.Get("/categories", listCategoriesHandler(cfg.Catalog))
		r.Get("/services", listServicesHandler(cfg.Catalog))
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Get("/slots", listSlotsHandler(cfg.Booking))
		r.Post("/", createBookingHandler(cfg.Catalog, cfg.Booking))
	})

	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/appointments", listDashboardHandler(cfg.Appointments))
		r.Get("/summary", summaryHandler(cfg.Appointments))
		r.Get("/kanban", kanbanHandler(cfg.Appointments))
		r.Get("/export", exportHandler(cfg.Appointments))
		r.Patch("/appointments/{id}/status", updateStatusHandler(cfg.Appointments))
		r.Post("/appointments/{id}/select", selectAppointmentHandler(cfg.Appointments))
		r.Delete("/selection", clearSelectionHandler(cfg.Appointments))
	})

	r.Route("/me", func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.Tokens))
		r.Get("/bookings", myBookingsHandler(cfg.Appointments))
		r.Get("/loyalty", myLoyaltyHandler(cfg.Loyalty))
		r.Delete("/loyalty", resetLoyaltyHandler(cfg.Loyalty))
		r.Post("/loyalty/redeem", redeemHandler(cfg.Loyalty))
		r.Post("/loyalty/invite", inviteHandler(cfg.Loyalty))
	})

	return r
}
