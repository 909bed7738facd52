package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/hotel-web/pkg/guard"
	mw "github.com/diagnosis/hotel-web/pkg/middleware"
)

const bookingReplayWindow = 10 * time.Minute

// Routes mounts the gateway pages. Every page except logout and the session
// endpoint goes through the route guard. authLimit throttles login and signup.
func (h *Handlers) Routes(idempotency mw.IdempotencyStore, authLimit func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(h.Session)

	r.Post("/auth/logout", h.Logout)
	r.Get("/auth/session", h.SessionInfo)

	r.Group(func(r chi.Router) {
		r.Use(guard.Middleware(h.AuthState))

		r.With(authLimit).Post("/auth/login", h.Login)
		r.With(authLimit).Post("/auth/register", h.Register)

		r.Get("/rooms", h.ListRooms)
		r.Get("/rooms/{id}", h.GetRoom)
		r.With(mw.Idempotency(idempotency, bookingReplayWindow, h.IdempotencyScope)).
			Post("/booking/{id}", h.Book)

		r.Get("/dashboard", h.Dashboard)
		r.Get("/dashboard/bookings", h.MyBookings)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/", h.AdminSummary)
			r.Route("/rooms", func(r chi.Router) {
				r.Get("/", h.AdminRooms)
				r.Post("/", h.CreateRoom)
				r.Get("/{id}", h.AdminRoom)
				r.Put("/{id}", h.UpdateRoom)
				r.Delete("/{id}", h.DeleteRoom)
			})
			r.Get("/reservations", h.Reservations)
			r.Post("/reservations/{id}/{status}", h.SetReservationStatus)
		})
	})
	return r
}
