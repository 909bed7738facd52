package views

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/hotel-web/pkg/events"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
)

type ReservationsAPI interface {
	ListReservations(ctx context.Context, page int) (hotelapi.Page[hotelapi.BookingWithRoom], error)
	UpdateReservationStatus(ctx context.Context, id string, status hotelapi.BookingStatus) error
}

type ReservationsView struct {
	pager[hotelapi.BookingWithRoom]
	api  ReservationsAPI
	opts options
}

func NewReservationsView(api ReservationsAPI, opts ...Option) *ReservationsView {
	return &ReservationsView{api: api, opts: buildOptions(opts)}
}

func (v *ReservationsView) Load(ctx context.Context, n int) bool {
	page, err := v.api.ListReservations(ctx, n)
	if err != nil {
		v.opts.failure(ctx, "Error", "Failed to load reservations. Please try again.", err)
		return false
	}
	v.set(page)
	return true
}

func (v *ReservationsView) Next(ctx context.Context) bool {
	n, ok := v.next()
	return ok && v.Load(ctx, n)
}

func (v *ReservationsView) Previous(ctx context.Context) bool {
	n, ok := v.previous()
	return ok && v.Load(ctx, n)
}

func (v *ReservationsView) Page() hotelapi.Page[hotelapi.BookingWithRoom] {
	p, _ := v.get()
	return p
}

// Filter keeps reservations whose room name or id contains q and whose
// status equals status. Empty arguments match everything.
func (v *ReservationsView) Filter(q string, status hotelapi.BookingStatus) []hotelapi.BookingWithRoom {
	return filterBookings(v.items(), q, status)
}

// ChangeStatus approves or rejects, then refetches the current page.
func (v *ReservationsView) ChangeStatus(ctx context.Context, id string, status hotelapi.BookingStatus) bool {
	if err := v.api.UpdateReservationStatus(ctx, id, status); err != nil {
		v.opts.failure(ctx, "Error", "Failed to update reservation status. Please try again.", err)
		return false
	}
	v.opts.success(ctx, "Status updated", fmt.Sprintf("Reservation status has been updated to %s.", status))
	v.opts.publish(ctx, events.ReservationStatusSet, events.ReservationStatusEvent{
		ReservationID: id,
		Status:        string(status),
		ActorID:       v.opts.actorID,
		ChangedAt:     time.Now().UTC(),
	})
	v.Load(ctx, v.current())
	return true
}

func filterBookings(items []hotelapi.BookingWithRoom, q string, status hotelapi.BookingStatus) []hotelapi.BookingWithRoom {
	q = normalizeQuery(q)
	out := make([]hotelapi.BookingWithRoom, 0, len(items))
	for _, b := range items {
		if status != "" && b.Status != status {
			continue
		}
		if q != "" && !contains(b.Room.Name, q) && !contains(b.ID, q) {
			continue
		}
		out = append(out, b)
	}
	return out
}
