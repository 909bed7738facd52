package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/hotel-web/internal/http/response"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
	"github.com/diagnosis/hotel-web/pkg/views"
)

type summaryResponse struct {
	Summary       *views.AdminSummary  `json:"summary"`
	Notifications []views.Notification `json:"notifications"`
}

type reservationsResponse struct {
	Page          hotelapi.Page[hotelapi.BookingWithRoom] `json:"page"`
	Reservations  []hotelapi.BookingWithRoom              `json:"reservations"`
	Notifications []views.Notification                    `json:"notifications"`
}

type mutationResponse struct {
	OK            bool                 `json:"ok"`
	Notifications []views.Notification `json:"notifications"`
}

type roomForm struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Description   string   `json:"description"`
	Capacity      int      `json:"capacity"`
	PricePerNight float64  `json:"pricePerNight"`
	Amenities     []string `json:"amenities"`
	Images        []string `json:"images"`
	Available     *bool    `json:"available"`
}

func (f roomForm) input() hotelapi.RoomInput {
	available := true
	if f.Available != nil {
		available = *f.Available
	}
	return hotelapi.RoomInput{
		Name:          f.Name,
		Type:          f.Type,
		Description:   f.Description,
		Capacity:      f.Capacity,
		PricePerNight: f.PricePerNight,
		Amenities:     f.Amenities,
		Images:        f.Images,
		Available:     available,
	}
}

// AdminSummary is the admin landing page.
func (h *Handlers) AdminSummary(w http.ResponseWriter, r *http.Request) {
	rs := state(r)
	s := views.LoadAdminSummary(r.Context(), rs.client, h.now(), h.viewOptions(rs)...)
	writeJSON(w, http.StatusOK, summaryResponse{Summary: s, Notifications: rs.inbox.Drain()})
}

func (h *Handlers) AdminRooms(w http.ResponseWriter, r *http.Request) {
	rs := state(r)
	page, ok := pageParam(r)
	if !ok {
		response.BadRequest(w, "page must be a non-negative integer")
		return
	}

	v := views.NewAdminRoomsView(rs.client, h.viewOptions(rs)...)
	v.Load(r.Context(), page)

	q := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, roomsResponse{
		Page:          v.Page(),
		Rooms:         v.Filter(q),
		Query:         q,
		Notifications: rs.inbox.Drain(),
	})
}

func (h *Handlers) AdminRoom(w http.ResponseWriter, r *http.Request) {
	rs := state(r)
	room, err := rs.client.GetAdminRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAPIError(w, r, err, "Failed to load room details. Please try again.")
		return
	}
	if room == nil {
		response.NotFound(w, "Room not found")
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{Room: room, Notifications: rs.inbox.Drain()})
}

func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	h.saveRoom(w, r, "", http.StatusCreated)
}

func (h *Handlers) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	h.saveRoom(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *Handlers) saveRoom(w http.ResponseWriter, r *http.Request, id string, okStatus int) {
	rs := state(r)
	var form roomForm
	if err := decodeBody(r, &form); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if !views.SaveRoom(r.Context(), rs.client, id, form.input(), h.viewOptions(rs)...) {
		writeJSON(w, http.StatusUnprocessableEntity, mutationResponse{Notifications: rs.inbox.Drain()})
		return
	}
	writeJSON(w, okStatus, mutationResponse{OK: true, Notifications: rs.inbox.Drain()})
}

// DeleteRoom deletes a room and answers with the refreshed page it was on.
func (h *Handlers) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	rs := state(r)
	page, ok := pageParam(r)
	if !ok {
		response.BadRequest(w, "page must be a non-negative integer")
		return
	}

	ctx := r.Context()
	v := views.NewAdminRoomsView(rs.client, h.viewOptions(rs)...)
	// the view refetches its current page after the delete, so that page
	// has to load first
	if page > 0 && !v.Load(ctx, page) {
		writeJSON(w, http.StatusUnprocessableEntity, roomsResponse{
			Page:          v.Page(),
			Rooms:         v.Filter(""),
			Notifications: rs.inbox.Drain(),
		})
		return
	}
	deleted := v.DeleteRoom(ctx, chi.URLParam(r, "id"))

	status := http.StatusOK
	if !deleted {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, roomsResponse{
		Page:          v.Page(),
		Rooms:         v.Filter(""),
		Notifications: rs.inbox.Drain(),
	})
}

func (h *Handlers) Reservations(w http.ResponseWriter, r *http.Request) {
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

	v := views.NewReservationsView(rs.client, h.viewOptions(rs)...)
	v.Load(r.Context(), page)
	writeJSON(w, http.StatusOK, reservationsResponse{
		Page:          v.Page(),
		Reservations:  v.Filter(r.URL.Query().Get("q"), status),
		Notifications: rs.inbox.Drain(),
	})
}

// SetReservationStatus approves or rejects a reservation. {status} accepts
// the same vocabulary as the backend's listings.
func (h *Handlers) SetReservationStatus(w http.ResponseWriter, r *http.Request) {
	rs := state(r)
	status, ok := hotelapi.ParseBookingStatus(chi.URLParam(r, "status"))
	if !ok || status == hotelapi.StatusPending {
		response.BadRequest(w, "status must be APPROVED or REJECTED")
		return
	}
	page, ok := pageParam(r)
	if !ok {
		response.BadRequest(w, "page must be a non-negative integer")
		return
	}

	ctx := r.Context()
	v := views.NewReservationsView(rs.client, h.viewOptions(rs)...)
	if page > 0 && !v.Load(ctx, page) {
		writeJSON(w, http.StatusUnprocessableEntity, reservationsResponse{
			Page:          v.Page(),
			Reservations:  v.Filter("", ""),
			Notifications: rs.inbox.Drain(),
		})
		return
	}
	changed := v.ChangeStatus(ctx, chi.URLParam(r, "id"), status)

	code := http.StatusOK
	if !changed {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, reservationsResponse{
		Page:          v.Page(),
		Reservations:  v.Filter("", ""),
		Notifications: rs.inbox.Drain(),
	})
}
