package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/hotel-web/internal/http/response"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
	"github.com/diagnosis/hotel-web/pkg/views"
)

type roomsResponse struct {
	Page          hotelapi.Page[hotelapi.Room] `json:"page"`
	Rooms         []hotelapi.Room              `json:"rooms"`
	Query         string                       `json:"q,omitempty"`
	Notifications []views.Notification         `json:"notifications"`
}

type roomResponse struct {
	Room          *hotelapi.Room       `json:"room"`
	Estimate      *float64             `json:"estimate,omitempty"`
	Notifications []views.Notification `json:"notifications"`
}

type bookRequest struct {
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
	Guests   int    `json:"guests"`
}

type bookResponse struct {
	Booked        bool                 `json:"booked"`
	Estimate      float64              `json:"estimate,omitempty"`
	Redirect      string               `json:"redirect,omitempty"`
	Notifications []views.Notification `json:"notifications"`
}

// ListRooms is the public catalogue. checkIn, checkOut and capacity narrow it
// server-side; q filters the loaded page.
func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	rs := state(r)
	page, ok := pageParam(r)
	if !ok {
		response.BadRequest(w, "page must be a non-negative integer")
		return
	}

	v := views.NewRoomsView(rs.client, h.viewOptions(rs)...)
	v.Query = roomQuery(r)
	v.Load(r.Context(), page)

	q := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, roomsResponse{
		Page:          v.Page(),
		Rooms:         v.Filter(q),
		Query:         q,
		Notifications: rs.inbox.Drain(),
	})
}

// GetRoom shows one room. With checkIn and checkOut it also prices the stay.
func (h *Handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	rs := state(r)
	room, err := rs.client.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAPIError(w, r, err, "Failed to load room details. Please try again.")
		return
	}
	if room == nil {
		response.NotFound(w, "Room not found")
		return
	}

	out := roomResponse{Room: room, Notifications: rs.inbox.Drain()}
	q := r.URL.Query()
	if in, err := hotelapi.ParseDate(q.Get("checkIn")); err == nil {
		if outDate, err := hotelapi.ParseDate(q.Get("checkOut")); err == nil {
			total := views.EstimateTotal(*room, in, outDate)
			out.Estimate = &total
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Book reserves room {id} for the caller. Failures are reported as
// notifications with 422.
func (h *Handlers) Book(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rs := state(r)
	roomID := chi.URLParam(r, "id")

	var req bookRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.Guests == 0 {
		req.Guests = 1
	}

	// empty or unparseable dates are left zero for the view to report
	in, _ := hotelapi.ParseDate(req.CheckIn)
	out, _ := hotelapi.ParseDate(req.CheckOut)
	booking := hotelapi.BookingRequest{RoomID: roomID, CheckIn: in, CheckOut: out, Guests: req.Guests}

	v := views.NewBookingsView(rs.client, h.viewOptions(rs)...)
	if !v.Book(ctx, booking) {
		writeJSON(w, http.StatusUnprocessableEntity, bookResponse{Notifications: rs.inbox.Drain()})
		return
	}

	resp := bookResponse{Booked: true, Redirect: "/dashboard"}
	if room, err := rs.client.GetRoom(ctx, roomID); err == nil && room != nil {
		resp.Estimate = views.EstimateTotal(*room, in, out)
	}
	resp.Notifications = rs.inbox.Drain()
	writeJSON(w, http.StatusCreated, resp)
}

func roomQuery(r *http.Request) *hotelapi.RoomQuery {
	q := r.URL.Query()
	rq := hotelapi.RoomQuery{
		CheckIn:  strings.TrimSpace(q.Get("checkIn")),
		CheckOut: strings.TrimSpace(q.Get("checkOut")),
	}
	if n, err := strconv.Atoi(q.Get("capacity")); err == nil && n > 0 {
		rq.Capacity = n
	}
	if rq == (hotelapi.RoomQuery{}) {
		return nil
	}
	return &rq
}
