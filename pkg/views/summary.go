package views

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/hotel-web/pkg/hotelapi"
)

type SummaryAPI interface {
	ListAdminRooms(ctx context.Context, page int) (hotelapi.Page[hotelapi.Room], error)
	ListReservations(ctx context.Context, page int) (hotelapi.Page[hotelapi.BookingWithRoom], error)
}

// AdminSummary is the admin landing page. Figures other than the totals
// come from the first page of each collection only.
type AdminSummary struct {
	TotalRooms                 int                            `json:"totalRooms"`
	TotalRoomsEstimated        bool                           `json:"totalRoomsEstimated"`
	AvailableRooms             int                            `json:"availableRooms"`
	TotalReservations          int                            `json:"totalReservations"`
	TotalReservationsEstimated bool                           `json:"totalReservationsEstimated"`
	ByStatus                   map[hotelapi.BookingStatus]int `json:"byStatus"`
	Revenue                    float64                        `json:"revenue"`
	OccupiedRooms              int                            `json:"occupiedRooms"`
	ActiveGuests               int                            `json:"activeGuests"`
	RecentReservations         []hotelapi.BookingWithRoom     `json:"recentReservations"`
}

// LoadAdminSummary fetches both first pages concurrently. On failure it
// notifies and returns nil.
func LoadAdminSummary(ctx context.Context, api SummaryAPI, now time.Time, opts ...Option) *AdminSummary {
	o := buildOptions(opts)

	var (
		rooms        hotelapi.Page[hotelapi.Room]
		reservations hotelapi.Page[hotelapi.BookingWithRoom]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rooms, err = api.ListAdminRooms(gctx, 0)
		return err
	})
	g.Go(func() error {
		var err error
		reservations, err = api.ListReservations(gctx, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		o.failure(ctx, "Error", "Failed to load dashboard data. Please try again.", err)
		return nil
	}

	s := &AdminSummary{
		TotalRooms:                 rooms.TotalElements,
		TotalRoomsEstimated:        rooms.TotalEstimated,
		TotalReservations:          reservations.TotalElements,
		TotalReservationsEstimated: reservations.TotalEstimated,
		ByStatus:                   map[hotelapi.BookingStatus]int{hotelapi.StatusPending: 0, hotelapi.StatusApproved: 0, hotelapi.StatusRejected: 0},
		RecentReservations:         reservations.Content,
	}
	for _, r := range rooms.Content {
		if r.Available {
			s.AvailableRooms++
		}
	}
	for _, b := range reservations.Content {
		s.ByStatus[b.Status]++
		if b.Status != hotelapi.StatusApproved {
			continue
		}
		s.Revenue += b.TotalPrice
		if !b.CheckIn.After(now) && !b.CheckOut.Before(now) {
			s.OccupiedRooms++
			s.ActiveGuests += b.Guests
		}
	}
	return s
}
