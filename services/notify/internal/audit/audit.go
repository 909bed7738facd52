// Package audit keeps a bounded in-memory trail of the events the front ends
// publish and serves it over HTTP.
package audit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/hotel-web/internal/http/response"
	"github.com/diagnosis/hotel-web/pkg/events"
	"github.com/diagnosis/hotel-web/pkg/logger"
)

type Entry struct {
	ID         string          `json:"id"`
	Subject    string          `json:"subject"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Log is a ring of the last max entries plus running per-subject counts.
type Log struct {
	mu      sync.RWMutex
	max     int
	entries []Entry
	counts  map[string]int
}

func New(max int) *Log {
	if max <= 0 {
		max = 500
	}
	return &Log{max: max, counts: make(map[string]int)}
}

// Record is an events.Subscriber handler.
func (l *Log) Record(msg *events.Message) {
	payload := json.RawMessage(msg.Data)
	if !json.Valid(payload) {
		logger.Warn("Dropping malformed event", "subject", msg.Subject)
		return
	}
	logger.Info("Event received", "subject", msg.Subject, "payload", string(msg.Data))

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{
		ID:         msg.ID,
		Subject:    msg.Subject,
		ReceivedAt: msg.Timestamp,
		Payload:    payload,
	})
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	l.counts[msg.Subject]++
}

// Recent returns up to limit entries, newest first. An empty subject
// matches everything.
func (l *Log) Recent(subject string, limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []Entry{}
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if subject == "" || l.entries[i].Subject == subject {
			out = append(out, l.entries[i])
		}
	}
	return out
}

// Counts includes events already rotated out of the ring.
func (l *Log) Counts() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

func (l *Log) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/events", l.listEvents)
	r.Get("/events/counts", l.countEvents)
	return r
}

func (l *Log) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			response.BadRequest(w, "limit must be a positive number")
			return
		}
		limit = n
	}
	response.JSON(w, http.StatusOK, l.Recent(r.URL.Query().Get("subject"), limit))
}

func (l *Log) countEvents(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, l.Counts())
}
