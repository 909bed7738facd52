package hotelapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) ListAdminRooms(ctx context.Context, page int) (Page[Room], error) {
	const op = "list admin rooms"
	path, err := pagePath("/api/admin/rooms", page)
	if err != nil {
		return Page[Room]{}, fmt.Errorf("hotelapi: %s: %w", op, err)
	}
	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: path, auth: authRequired})
	if err != nil {
		return Page[Room]{}, err
	}
	return decodePageBody(op, body, page, roomPageSize, roomFromWire)
}

func (c *Client) GetAdminRoom(ctx context.Context, id string) (*Room, error) {
	return c.getRoom(ctx, "get admin room", "/api/admin/get-room/", id, authRequired)
}

// CreateRoom posts a new room. The backend usually answers with an empty
// body, in which case the room is nil.
func (c *Client) CreateRoom(ctx context.Context, in RoomInput) (*Room, error) {
	return c.writeRoom(ctx, "create room", http.MethodPost, "/api/admin/room", in)
}

func (c *Client) UpdateRoom(ctx context.Context, id string, in RoomInput) (*Room, error) {
	if id == "" {
		return nil, fmt.Errorf("hotelapi: update room: %w: room id is required", ErrInvalidInput)
	}
	return c.writeRoom(ctx, "update room", http.MethodPut, "/api/admin/room/"+url.PathEscape(id), in)
}

func (c *Client) DeleteRoom(ctx context.Context, id string) error {
	const op = "delete room"
	if id == "" {
		return fmt.Errorf("hotelapi: %s: %w: room id is required", op, ErrInvalidInput)
	}
	_, err := c.do(ctx, call{op: op, method: http.MethodDelete, path: "/api/admin/room/" + url.PathEscape(id), auth: authRequired})
	return err
}

func (c *Client) ListReservations(ctx context.Context, page int) (Page[BookingWithRoom], error) {
	const op = "list reservations"
	path, err := pagePath("/api/admin/reservations", page)
	if err != nil {
		return Page[BookingWithRoom]{}, fmt.Errorf("hotelapi: %s: %w", op, err)
	}
	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: path, auth: authRequired})
	if err != nil {
		return Page[BookingWithRoom]{}, err
	}
	return decodePageBody(op, body, page, reservationPageSize, bookingFromWire)
}

// UpdateReservationStatus approves or rejects a reservation. Only APPROVED
// and REJECTED are valid targets; PENDING is refused without a request.
func (c *Client) UpdateReservationStatus(ctx context.Context, id string, status BookingStatus) error {
	const op = "update reservation status"
	var action string
	switch status {
	case StatusApproved:
		action = "Approve"
	case StatusRejected:
		action = "Reject"
	default:
		return fmt.Errorf("hotelapi: %s: %w: got %q", op, ErrInvalidStatus, status)
	}
	if id == "" {
		return fmt.Errorf("hotelapi: %s: %w: reservation id is required", op, ErrInvalidInput)
	}
	path := "/api/admin/reservation/" + url.PathEscape(id) + "/" + action
	_, err := c.do(ctx, call{op: op, method: http.MethodGet, path: path, auth: authRequired})
	return err
}

func (c *Client) writeRoom(ctx context.Context, op, method, path string, in RoomInput) (*Room, error) {
	if in.Name == "" || in.PricePerNight < 0 || in.Capacity < 0 {
		return nil, fmt.Errorf("hotelapi: %s: %w: name is required and numbers must not be negative", op, ErrInvalidInput)
	}
	body, err := c.do(ctx, call{op: op, method: method, path: path, body: roomInputToWire(in), auth: authRequired})
	if err != nil {
		return nil, err
	}
	if isJSONBool(body) {
		return nil, nil
	}
	var w roomWire
	ok, err := decode(op, body, &w)
	if err != nil || !ok {
		return nil, err
	}
	r := w.toRoom()
	return &r, nil
}
