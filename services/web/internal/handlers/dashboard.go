package handlers

import (
	"net/http"

	"github.com/diagnosis/hotel-web/internal/http/response"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
	"github.com/diagnosis/hotel-web/pkg/views"
)

type dashboardResponse struct {
	User          *hotelapi.User             `json:"user"`
	Stats         views.BookingStats         `json:"stats"`
	Upcoming      []hotelapi.BookingWithRoom `json:"upcoming"`
	Notifications []views.Notification       `json:"notifications"`
}

type bookingsResponse struct {
	Page          hotelapi.Page[hotelapi.BookingWithRoom] `json:"page"`
	Bookings      []hotelapi.BookingWithRoom              `json:"bookings"`
	Notifications []views.Notification                    `json:"notifications"`
}

// Dashboard is the customer landing page: stats and upcoming stays from the
// first page of bookings.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	rs := state(r)
	v := views.NewBookingsView(rs.client, h.viewOptions(rs)...)
	v.Load(r.Context(), 0)

	upcoming := v.Upcoming(h.now())
	if upcoming == nil {
		upcoming = []hotelapi.BookingWithRoom{}
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		User:          rs.auth.User,
		Stats:         v.Stats(),
		Upcoming:      upcoming,
		Notifications: rs.inbox.Drain(),
	})
}

func (h *Handlers) MyBookings(w http.ResponseWriter, r *http.Request) {
	rs := state(r)
	page, ok := pageParam(r)
	if !ok {
		response.BadRequest(w, "page must be a non-negative integer")
		return
	}
	status, ok := statusParam(r)
	if !ok {
		response.BadRequest(w, "unknown status")
		return
	}

	v := views.NewBookingsView(rs.client, h.viewOptions(rs)...)
	v.Load(r.Context(), page)
	writeJSON(w, http.StatusOK, bookingsResponse{
		Page:          v.Page(),
		Bookings:      v.Filter(r.URL.Query().Get("q"), status),
		Notifications: rs.inbox.Drain(),
	})
}
