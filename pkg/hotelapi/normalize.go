package hotelapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// The backend has shipped several shapes for the same resources. The wire
// types below accept all of them and convert into the canonical model.

// flexID accepts ids sent as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s", data)
	}
	*f = flexID(n.String())
	return nil
}

type roomWire struct {
	ID            flexID   `json:"id"`
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Description   string   `json:"description"`
	Capacity      *int     `json:"capacity"`
	MaxOccupancy  *int     `json:"maxOccupancy"`
	PricePerNight *float64 `json:"pricePerNight"`
	Price         *float64 `json:"price"`
	Amenities     []string `json:"amenities"`
	Images        []string `json:"images"`
	Available     *bool    `json:"available"`
}

func (w roomWire) toRoom() Room {
	r := Room{
		ID:          string(w.ID),
		Name:        w.Name,
		Type:        w.Type,
		Description: w.Description,
		Amenities:   w.Amenities,
		Images:      w.Images,
		Available:   true,
	}
	switch {
	case w.Capacity != nil:
		r.Capacity = *w.Capacity
	case w.MaxOccupancy != nil:
		r.Capacity = *w.MaxOccupancy
	}
	switch {
	case w.PricePerNight != nil:
		r.PricePerNight = *w.PricePerNight
	case w.Price != nil:
		r.PricePerNight = *w.Price
	}
	if w.Available != nil {
		r.Available = *w.Available
	}
	if r.Amenities == nil {
		r.Amenities = []string{}
	}
	if r.Images == nil {
		r.Images = []string{}
	}
	return r
}

type bookingWire struct {
	ID                flexID    `json:"id"`
	RoomID            flexID    `json:"roomId"`
	UserID            flexID    `json:"userId"`
	UserName          string    `json:"userName"`
	CheckIn           *Date     `json:"checkIn"`
	CheckInDate       *Date     `json:"checkInDate"`
	CheckOut          *Date     `json:"checkOut"`
	CheckOutDate      *Date     `json:"checkOutDate"`
	Guests            int       `json:"guests"`
	Status            string    `json:"status"`
	ReservationStatus string    `json:"reservationStatus"`
	TotalPrice        *float64  `json:"totalPrice"`
	Price             *float64  `json:"price"`
	Room              *roomWire `json:"room"`
	RoomName          string    `json:"roomName"`
	RoomType          string    `json:"roomType"`
}

func (w bookingWire) toBookingWithRoom() (BookingWithRoom, error) {
	raw := w.Status
	if raw == "" {
		raw = w.ReservationStatus
	}
	status, ok := ParseBookingStatus(raw)
	if !ok {
		return BookingWithRoom{}, fmt.Errorf("%w: unknown reservation status %q", ErrMalformed, raw)
	}

	b := Booking{
		ID:     string(w.ID),
		RoomID: string(w.RoomID),
		UserID: string(w.UserID),
		Guests: w.Guests,
		Status: status,
	}
	switch {
	case w.CheckIn != nil:
		b.CheckIn = *w.CheckIn
	case w.CheckInDate != nil:
		b.CheckIn = *w.CheckInDate
	}
	switch {
	case w.CheckOut != nil:
		b.CheckOut = *w.CheckOut
	case w.CheckOutDate != nil:
		b.CheckOut = *w.CheckOutDate
	}
	switch {
	case w.TotalPrice != nil:
		b.TotalPrice = *w.TotalPrice
	case w.Price != nil:
		b.TotalPrice = *w.Price
	}

	var room Room
	if w.Room != nil {
		room = w.Room.toRoom()
	} else {
		room = Room{ID: b.RoomID, Name: w.RoomName, Type: w.RoomType, Amenities: []string{}, Images: []string{}}
	}
	if b.RoomID == "" {
		b.RoomID = room.ID
	}
	if room.ID == "" {
		room.ID = b.RoomID
	}
	return BookingWithRoom{Booking: b, Room: room, UserName: w.UserName}, nil
}

type pageWire struct {
	Content            json.RawMessage `json:"content"`
	RoomDtoList        json.RawMessage `json:"roomDtoList"`
	ReservationDtoList json.RawMessage `json:"reservationDtoList"`
	Number             *int            `json:"number"`
	PageNumber         *int            `json:"pageNumber"`
	TotalPages         int             `json:"totalPages"`
	TotalElements      *int            `json:"totalElements"`
	Size               *int            `json:"size"`
}

func (p pageWire) items() json.RawMessage {
	for _, raw := range []json.RawMessage{p.Content, p.RoomDtoList, p.ReservationDtoList} {
		if len(raw) > 0 && string(raw) != "null" {
			return raw
		}
	}
	return nil
}

// decodePage reads any known page envelope. requested and pageSize stand in
// for the page number and size when the server leaves them out.
func decodePage[W any, T any](body []byte, requested, pageSize int, convert func(W) (T, error)) (Page[T], error) {
	var env pageWire
	if err := json.Unmarshal(body, &env); err != nil {
		return Page[T]{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var wires []W
	if raw := env.items(); raw != nil {
		if err := json.Unmarshal(raw, &wires); err != nil {
			return Page[T]{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	content := make([]T, 0, len(wires))
	for _, w := range wires {
		item, err := convert(w)
		if err != nil {
			return Page[T]{}, err
		}
		content = append(content, item)
	}

	number := requested
	switch {
	case env.Number != nil:
		number = *env.Number
	case env.PageNumber != nil:
		number = *env.PageNumber
	}

	size := pageSize
	if env.Size != nil {
		size = *env.Size
	}
	if size <= 0 {
		size = len(content)
	}

	total, estimated := 0, false
	switch {
	case env.TotalElements != nil:
		total = *env.TotalElements
	case env.TotalPages == 0:
		total = 0
	case number >= env.TotalPages-1:
		// on the last page every earlier page was full
		total = number*size + len(content)
	default:
		total, estimated = env.TotalPages*size, true
	}

	page := NewPage(content, number, env.TotalPages, total, size)
	page.TotalEstimated = estimated
	return page, nil
}

func roomFromWire(w roomWire) (Room, error) {
	return w.toRoom(), nil
}

func bookingFromWire(w bookingWire) (BookingWithRoom, error) {
	return w.toBookingWithRoom()
}

// extractMessage pulls a human message out of an error body.
func extractMessage(body []byte, status int) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return genericMessage(status)
	}
	if trimmed[0] == '{' {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if err := json.Unmarshal(trimmed, &payload); err == nil {
			switch {
			case payload.Message != "":
				return payload.Message
			case payload.Error != "":
				return payload.Error
			}
		}
		return genericMessage(status)
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil && s != "" {
			return s
		}
	}
	// short plain-text bodies such as "User Already Exists!"
	text := string(trimmed)
	if len(text) <= 200 && !strings.ContainsAny(text, "<>") && !strings.Contains(text, "\n") {
		return text
	}
	return genericMessage(status)
}

type roomInputWire struct {
	Name          string   `json:"name"`
	Type          string   `json:"type,omitempty"`
	Description   string   `json:"description"`
	Capacity      int      `json:"capacity"`
	PricePerNight float64  `json:"pricePerNight"`
	Price         float64  `json:"price"`
	Amenities     []string `json:"amenities"`
	Images        []string `json:"images"`
	Available     bool     `json:"available"`
}

func roomInputToWire(in RoomInput) roomInputWire {
	w := roomInputWire{
		Name:          in.Name,
		Type:          in.Type,
		Description:   in.Description,
		Capacity:      in.Capacity,
		PricePerNight: in.PricePerNight,
		Price:         in.PricePerNight,
		Amenities:     in.Amenities,
		Images:        in.Images,
		Available:     in.Available,
	}
	if w.Amenities == nil {
		w.Amenities = []string{}
	}
	if w.Images == nil {
		w.Images = []string{}
	}
	return w
}
