package views

import (
	"context"
	"time"

	"github.com/diagnosis/hotel-web/pkg/events"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
)

type RoomLister interface {
	ListRooms(ctx context.Context, page int, q *hotelapi.RoomQuery) (hotelapi.Page[hotelapi.Room], error)
}

type AdminRoomsAPI interface {
	ListAdminRooms(ctx context.Context, page int) (hotelapi.Page[hotelapi.Room], error)
	DeleteRoom(ctx context.Context, id string) error
}

// RoomsView lists rooms for customers or, built with NewAdminRoomsView,
// for administrators with delete.
type RoomsView struct {
	pager[hotelapi.Room]
	opts   options
	fetch  func(ctx context.Context, page int) (hotelapi.Page[hotelapi.Room], error)
	delete func(ctx context.Context, id string) error

	// Query narrows the customer listing server-side.
	Query *hotelapi.RoomQuery
}

func NewRoomsView(api RoomLister, opts ...Option) *RoomsView {
	v := &RoomsView{opts: buildOptions(opts)}
	v.fetch = func(ctx context.Context, page int) (hotelapi.Page[hotelapi.Room], error) {
		return api.ListRooms(ctx, page, v.Query)
	}
	return v
}

func NewAdminRoomsView(api AdminRoomsAPI, opts ...Option) *RoomsView {
	return &RoomsView{
		opts:   buildOptions(opts),
		fetch:  api.ListAdminRooms,
		delete: api.DeleteRoom,
	}
}

// Load fetches page n and reports whether it replaced the current page.
func (v *RoomsView) Load(ctx context.Context, n int) bool {
	page, err := v.fetch(ctx, n)
	if err != nil {
		v.opts.failure(ctx, "Error", "Failed to load rooms. Please try again.", err)
		return false
	}
	v.set(page)
	return true
}

func (v *RoomsView) Next(ctx context.Context) bool {
	n, ok := v.next()
	return ok && v.Load(ctx, n)
}

func (v *RoomsView) Previous(ctx context.Context) bool {
	n, ok := v.previous()
	return ok && v.Load(ctx, n)
}

func (v *RoomsView) Page() hotelapi.Page[hotelapi.Room] {
	p, _ := v.get()
	return p
}

// Filter matches q against name, description and id, case-insensitively,
// within the loaded page.
func (v *RoomsView) Filter(q string) []hotelapi.Room {
	rooms := v.items()
	q = normalizeQuery(q)
	out := make([]hotelapi.Room, 0, len(rooms))
	for _, r := range rooms {
		if q == "" || contains(r.Name, q) || contains(r.Description, q) || contains(r.ID, q) {
			out = append(out, r)
		}
	}
	return out
}

// DeleteRoom removes a room and refetches the current page.
func (v *RoomsView) DeleteRoom(ctx context.Context, id string) bool {
	if v.delete == nil {
		v.opts.failure(ctx, "Error", "Rooms cannot be deleted from this view.", nil)
		return false
	}
	if err := v.delete(ctx, id); err != nil {
		v.opts.failure(ctx, "Error", "Failed to delete room. Please try again.", err)
		return false
	}
	v.opts.success(ctx, "Room deleted", "The room has been deleted successfully.")
	v.opts.publish(ctx, events.RoomDeleted, events.RoomChangedEvent{
		RoomID:    id,
		ActorID:   v.opts.actorID,
		ChangedAt: time.Now().UTC(),
	})
	v.Load(ctx, v.current())
	return true
}

// EstimateTotal prices a stay before booking.
func EstimateTotal(room hotelapi.Room, checkIn, checkOut hotelapi.Date) float64 {
	return float64(hotelapi.Nights(checkIn, checkOut)) * room.PricePerNight
}
