package hotelapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/go-querystring/query"
)

// ListRooms fetches one page of rooms open for booking.
func (c *Client) ListRooms(ctx context.Context, page int, q *RoomQuery) (Page[Room], error) {
	const op = "list rooms"
	path, err := pagePath("/api/customer/rooms", page)
	if err != nil {
		return Page[Room]{}, fmt.Errorf("hotelapi: %s: %w", op, err)
	}

	var values url.Values
	if q != nil {
		values, err = query.Values(q)
		if err != nil {
			return Page[Room]{}, fmt.Errorf("hotelapi: %s: encode query: %w", op, err)
		}
	}

	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: path, query: values, auth: authOptional})
	if err != nil {
		return Page[Room]{}, err
	}
	return decodePageBody(op, body, page, roomPageSize, roomFromWire)
}

// GetRoom fetches a single room. A nil room with a nil error means the
// backend answered 2xx without a body.
func (c *Client) GetRoom(ctx context.Context, id string) (*Room, error) {
	return c.getRoom(ctx, "get room", "/api/customer/get-room/", id, authOptional)
}

// CreateBooking books a room for the logged-in user. The user id always
// comes from the stored session. A nil booking with a nil error is the
// backend's bodiless "accepted".
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (*Booking, error) {
	const op = "create booking"
	if req.RoomID == "" || req.CheckIn.IsZero() || req.CheckOut.IsZero() || !req.CheckOut.After(req.CheckIn.Time) || req.Guests < 1 {
		return nil, fmt.Errorf("hotelapi: %s: %w: room, guests and a check-out after check-in are required", op, ErrInvalidInput)
	}
	sess, ok := c.current(ctx)
	if !ok {
		return nil, fmt.Errorf("hotelapi: %s: %w", op, ErrSessionAbsent)
	}

	payload := map[string]any{
		"roomId":   req.RoomID,
		"checkIn":  req.CheckIn,
		"checkOut": req.CheckOut,
		// the reservation DTO on the backend reads these names
		"checkInDate":  req.CheckIn,
		"checkOutDate": req.CheckOut,
		"guests":       req.Guests,
		"userId":       sess.UserID,
	}
	body, err := c.do(ctx, call{op: op, method: http.MethodPost, path: "/api/customer/book", body: payload, auth: authRequired})
	if err != nil {
		return nil, err
	}
	if isJSONBool(body) {
		return nil, nil
	}

	var w bookingWire
	ok, err = decode(op, body, &w)
	if err != nil || !ok {
		return nil, err
	}
	b, err := w.toBookingWithRoom()
	if err != nil {
		return nil, fmt.Errorf("hotelapi: %s: %w", op, err)
	}
	return &b.Booking, nil
}

// ListUserBookings fetches one page of the logged-in user's bookings.
func (c *Client) ListUserBookings(ctx context.Context, page int) (Page[BookingWithRoom], error) {
	const op = "list user bookings"
	sess, ok := c.current(ctx)
	if !ok {
		return Page[BookingWithRoom]{}, fmt.Errorf("hotelapi: %s: %w", op, ErrSessionAbsent)
	}
	path, err := pagePath("/api/customer/bookings/"+url.PathEscape(sess.UserID), page)
	if err != nil {
		return Page[BookingWithRoom]{}, fmt.Errorf("hotelapi: %s: %w", op, err)
	}

	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: path, auth: authRequired})
	if err != nil {
		return Page[BookingWithRoom]{}, err
	}
	return decodePageBody(op, body, page, reservationPageSize, bookingFromWire)
}

func (c *Client) getRoom(ctx context.Context, op, prefix, id string, mode authMode) (*Room, error) {
	if id == "" {
		return nil, fmt.Errorf("hotelapi: %s: %w: room id is required", op, ErrInvalidInput)
	}
	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: prefix + url.PathEscape(id), auth: mode})
	if err != nil {
		return nil, err
	}
	var w roomWire
	ok, err := decode(op, body, &w)
	if err != nil || !ok {
		return nil, err
	}
	r := w.toRoom()
	return &r, nil
}

// Page sizes the backend uses when its envelope does not say.
const (
	roomPageSize        = 6
	reservationPageSize = 4
)

func decodePageBody[W any, T any](op string, body []byte, page, pageSize int, convert func(W) (T, error)) (Page[T], error) {
	if len(body) == 0 {
		return NewPage[T](nil, page, 0, 0, pageSize), nil
	}
	p, err := decodePage(body, page, pageSize, convert)
	if err != nil {
		return Page[T]{}, fmt.Errorf("hotelapi: %s: %w", op, err)
	}
	return p, nil
}
