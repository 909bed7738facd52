package hotelapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/hotel-web/pkg/session"
)

type User struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Email string       `json:"email"`
	Role  session.Role `json:"role"`
}

type Room struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Type          string   `json:"type,omitempty"`
	Description   string   `json:"description"`
	Capacity      int      `json:"capacity"`
	PricePerNight float64  `json:"pricePerNight"`
	Amenities     []string `json:"amenities"`
	Images        []string `json:"images"`
	Available     bool     `json:"available"`
}

type BookingStatus string

const (
	StatusPending  BookingStatus = "PENDING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
)

// ParseBookingStatus folds the vocabularies seen across backend revisions
// onto PENDING/APPROVED/REJECTED.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PENDING":
		return StatusPending, true
	case "APPROVED", "APPROVE", "CONFIRMED", "COMPLETED":
		return StatusApproved, true
	case "REJECTED", "REJECT", "CANCELLED", "CANCELED":
		return StatusRejected, true
	default:
		return "", false
	}
}

type Booking struct {
	ID         string        `json:"id"`
	RoomID     string        `json:"roomId"`
	UserID     string        `json:"userId"`
	CheckIn    Date          `json:"checkIn"`
	CheckOut   Date          `json:"checkOut"`
	Guests     int           `json:"guests"`
	Status     BookingStatus `json:"status"`
	TotalPrice float64       `json:"totalPrice"`
}

// BookingWithRoom pairs a booking with the room snapshot the backend sent
// alongside it.
type BookingWithRoom struct {
	Booking
	Room     Room   `json:"room"`
	UserName string `json:"userName,omitempty"`
}

// Page is one immutable page of a server-side collection. Build it with
// NewPage so the boundary flags always agree with Number and Content.
type Page[T any] struct {
	Content       []T  `json:"content"`
	TotalPages    int  `json:"totalPages"`
	TotalElements int  `json:"totalElements"`
	Size          int  `json:"size"`
	Number        int  `json:"number"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
	Empty         bool `json:"empty"`
	// TotalEstimated marks a TotalElements derived from TotalPages*Size
	// because the server sent no count; it is an upper bound.
	TotalEstimated bool `json:"totalEstimated,omitempty"`
}

func NewPage[T any](content []T, number, totalPages, totalElements, size int) Page[T] {
	if content == nil {
		content = []T{}
	}
	return Page[T]{
		Content:       content,
		TotalPages:    totalPages,
		TotalElements: totalElements,
		Size:          size,
		Number:        number,
		First:         number == 0,
		Last:          number == totalPages-1,
		Empty:         len(content) == 0,
	}
}

// HasNext is false on the last page and past the end of an empty collection.
func (p Page[T]) HasNext() bool {
	return !p.Last && p.Number+1 < p.TotalPages
}

func (p Page[T]) HasPrevious() bool {
	return !p.First
}

const dateLayout = "2006-01-02"

// Date is a calendar day as the backend exchanges it ("2006-01-02").
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{t}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}, nil
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Jackson without the JSR-310 module writes LocalDate as [y,m,d]
		var parts []int
		if err2 := json.Unmarshal(data, &parts); err2 != nil || len(parts) != 3 {
			if string(data) == "null" {
				*d = Date{}
				return nil
			}
			return fmt.Errorf("invalid date %s", data)
		}
		*d = Date{time.Date(parts[0], time.Month(parts[1]), parts[2], 0, 0, 0, 0, time.UTC)}
		return nil
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Nights counts the nights between check-in and check-out, never negative.
func Nights(checkIn, checkOut Date) int {
	n := int(checkOut.Sub(checkIn.Time).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RoomQuery narrows the customer room listing; zero fields are omitted.
type RoomQuery struct {
	CheckIn  string `url:"checkIn,omitempty"`
	CheckOut string `url:"checkOut,omitempty"`
	Capacity int    `url:"capacity,omitempty"`
}

type BookingRequest struct {
	RoomID   string
	CheckIn  Date
	CheckOut Date
	Guests   int
}

type RoomInput struct {
	Name          string
	Type          string
	Description   string
	Capacity      int
	PricePerNight float64
	Amenities     []string
	Images        []string
	Available     bool
}

// LoginResult is what a successful login leaves behind.
type LoginResult struct {
	Session session.Session
	User    User
}
