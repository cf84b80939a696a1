package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/FACorreiaa/go-travel-booking-agent/internal/api/profile"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/api/trip"
)

// Config carries the handlers and middleware the router wires together.
// Server-wide middleware (request ID, logger, recoverer) is applied in
// main.go before this router is mounted.
type Config struct {
	TripHandler            trip.Handler
	ProfileHandler         profile.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter builds the application route tree. Everything under /api/v1
// requires a gateway-signed bearer token; /ping and /swagger are public.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Route("/trips", func(r chi.Router) {
				r.Post("/", cfg.TripHandler.CreateTripHandler)
				r.Get("/", cfg.TripHandler.ListTripsHandler)
				r.Route("/{tripID}", func(r chi.Router) {
					r.Get("/", cfg.TripHandler.GetTripHandler)
					r.Post("/approve", cfg.TripHandler.ApproveTripHandler)
					r.Post("/book", cfg.TripHandler.BookTripHandler)
					r.Get("/bookings", cfg.TripHandler.ListBookingsHandler)
				})
			})

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", cfg.ProfileHandler.GetProfileHandler)
				r.Post("/", cfg.ProfileHandler.UpsertProfileHandler)
			})
		})
	})

	return r
}
