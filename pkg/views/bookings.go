package views

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/diagnosis/hotel-web/pkg/events"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
)

type BookingsAPI interface {
	ListUserBookings(ctx context.Context, page int) (hotelapi.Page[hotelapi.BookingWithRoom], error)
	CreateBooking(ctx context.Context, req hotelapi.BookingRequest) (*hotelapi.Booking, error)
}

// BookingsView is the customer's own bookings.
type BookingsView struct {
	pager[hotelapi.BookingWithRoom]
	api  BookingsAPI
	opts options
}

func NewBookingsView(api BookingsAPI, opts ...Option) *BookingsView {
	return &BookingsView{api: api, opts: buildOptions(opts)}
}

func (v *BookingsView) Load(ctx context.Context, n int) bool {
	page, err := v.api.ListUserBookings(ctx, n)
	if err != nil {
		v.opts.failure(ctx, "Error", "Failed to load your bookings. Please try again.", err)
		return false
	}
	v.set(page)
	return true
}

func (v *BookingsView) Next(ctx context.Context) bool {
	n, ok := v.next()
	return ok && v.Load(ctx, n)
}

func (v *BookingsView) Previous(ctx context.Context) bool {
	n, ok := v.previous()
	return ok && v.Load(ctx, n)
}

func (v *BookingsView) Page() hotelapi.Page[hotelapi.BookingWithRoom] {
	p, _ := v.get()
	return p
}

func (v *BookingsView) Filter(q string, status hotelapi.BookingStatus) []hotelapi.BookingWithRoom {
	return filterBookings(v.items(), q, status)
}

// Book validates the dates, creates the booking and refetches the current
// page of bookings.
func (v *BookingsView) Book(ctx context.Context, req hotelapi.BookingRequest) bool {
	switch {
	case req.CheckIn.IsZero() || req.CheckOut.IsZero():
		v.opts.failure(ctx, "Missing dates", "Please select check-in and check-out dates", nil)
		return false
	case !req.CheckOut.After(req.CheckIn.Time):
		v.opts.failure(ctx, "Invalid dates", "Check-out date must be after check-in date", nil)
		return false
	}

	if _, err := v.api.CreateBooking(ctx, req); err != nil {
		if errors.Is(err, hotelapi.ErrSessionAbsent) {
			v.opts.failure(ctx, "Authentication required", "Please login to book a room", nil)
			return false
		}
		v.opts.failure(ctx, "Booking failed", "Failed to book the room. Please try again.", err)
		return false
	}

	v.opts.success(ctx, "Booking successful", "Your room has been booked successfully")
	v.opts.publish(ctx, events.BookingCreated, events.BookingCreatedEvent{
		RoomID:    req.RoomID,
		UserID:    v.opts.actorID,
		CheckIn:   req.CheckIn.String(),
		CheckOut:  req.CheckOut.String(),
		Guests:    req.Guests,
		CreatedAt: time.Now().UTC(),
	})
	v.Load(ctx, v.current())
	return true
}

// Upcoming lists approved stays on the loaded page that start after now,
// soonest first.
func (v *BookingsView) Upcoming(now time.Time) []hotelapi.BookingWithRoom {
	var out []hotelapi.BookingWithRoom
	for _, b := range v.items() {
		if b.Status == hotelapi.StatusApproved && b.CheckIn.After(now) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CheckIn.Before(out[j].CheckIn.Time)
	})
	return out
}

type BookingStats struct {
	Total          int     `json:"total"`
	TotalEstimated bool    `json:"totalEstimated"`
	Approved       int     `json:"approved"`
	Pending        int     `json:"pending"`
	Spent          float64 `json:"spent"`
}

// Stats summarises the loaded page; Total is the server's count across pages.
func (v *BookingsView) Stats() BookingStats {
	page, _ := v.get()
	st := BookingStats{Total: page.TotalElements, TotalEstimated: page.TotalEstimated}
	for _, b := range page.Content {
		switch b.Status {
		case hotelapi.StatusApproved:
			st.Approved++
		case hotelapi.StatusPending:
			st.Pending++
		}
		st.Spent += b.TotalPrice
	}
	return st
}
