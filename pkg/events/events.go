package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/diagnosis/hotel-web/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url, nats.Name("hotel-web"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Nop drops every event. Used when no NATS url is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, interface{}) error { return nil }
func (Nop) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

func (r *Recorder) Publish(_ context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{
		Subject:   subject,
		Data:      payload,
		Timestamp: time.Now(),
		ID:        fmt.Sprintf("%d", len(r.Messages)+1),
	})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Subjects returns the subjects published so far, in order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = m.Subject
	}
	return out
}

// Connect returns a NATS publisher for url, or Nop when url is empty.
func Connect(url string) (Publisher, error) {
	if url == "" {
		return Nop{}, nil
	}
	bus, err := NewNATSEventBus(url)
	if err != nil {
		return nil, err
	}
	return bus, nil
}

// Event types and subjects
const (
	BookingCreated       = "booking.created"
	RoomCreated          = "room.created"
	RoomUpdated          = "room.updated"
	RoomDeleted          = "room.deleted"
	ReservationStatusSet = "reservation.status_changed"
	UserLoggedIn         = "user.logged_in"
	UserLoggedOut        = "user.logged_out"
)

// Event payloads
type BookingCreatedEvent struct {
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	CheckIn   string    `json:"check_in"`
	CheckOut  string    `json:"check_out"`
	Guests    int       `json:"guests"`
	CreatedAt time.Time `json:"created_at"`
}

type RoomChangedEvent struct {
	RoomID    string    `json:"room_id"`
	Name      string    `json:"name,omitempty"`
	ActorID   string    `json:"actor_id"`
	ChangedAt time.Time `json:"changed_at"`
}

type ReservationStatusEvent struct {
	ReservationID string    `json:"reservation_id"`
	Status        string    `json:"status"`
	ActorID       string    `json:"actor_id"`
	ChangedAt     time.Time `json:"changed_at"`
}

type SessionEvent struct {
	UserID string    `json:"user_id"`
	Role   string    `json:"role"`
	At     time.Time `json:"at"`
}

// Subjects lists every subject the front ends publish.
var Subjects = []string{
	BookingCreated,
	RoomCreated,
	RoomUpdated,
	RoomDeleted,
	ReservationStatusSet,
	UserLoggedIn,
	UserLoggedOut,
}
