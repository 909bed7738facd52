package audit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diagnosis/hotel-web/pkg/events"
)

func message(i int, subject string) *events.Message {
	return &events.Message{
		Subject:   subject,
		Data:      []byte(fmt.Sprintf(`{"n":%d}`, i)),
		Timestamp: time.Now(),
		ID:        fmt.Sprint(i),
	}
}

func TestLog_RingAndCounts(t *testing.T) {
	l := New(3)
	for i := 1; i <= 5; i++ {
		subject := events.BookingCreated
		if i%2 == 0 {
			subject = events.UserLoggedIn
		}
		l.Record(message(i, subject))
	}
	l.Record(&events.Message{Subject: events.RoomCreated, Data: []byte("not json")})

	recent := l.Recent("", 10)
	if len(recent) != 3 || recent[0].ID != "5" || recent[2].ID != "3" {
		t.Fatalf("recent = %+v", recent)
	}
	if got := l.Recent(events.UserLoggedIn, 10); len(got) != 1 || got[0].ID != "4" {
		t.Errorf("filtered = %+v", got)
	}

	counts := l.Counts()
	if counts[events.BookingCreated] != 3 || counts[events.UserLoggedIn] != 2 {
		t.Errorf("counts = %v", counts)
	}
	if _, ok := counts[events.RoomCreated]; ok {
		t.Error("malformed events must not be counted")
	}
}

func TestRoutes(t *testing.T) {
	l := New(10)
	l.Record(message(1, events.BookingCreated))
	l.Record(message(2, events.RoomDeleted))
	srv := httptest.NewServer(l.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/events?subject=" + events.RoomDeleted)
	if err != nil {
		t.Fatal(err)
	}
	var entries []Entry
	json.NewDecoder(resp.Body).Decode(&entries)
	resp.Body.Close()
	if len(entries) != 1 || string(entries[0].Payload) != `{"n":2}` {
		t.Errorf("entries = %+v", entries)
	}

	resp, err = http.Get(srv.URL + "/events?limit=zero")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/events/counts")
	if err != nil {
		t.Fatal(err)
	}
	var counts map[string]int
	json.NewDecoder(resp.Body).Decode(&counts)
	resp.Body.Close()
	if counts[events.BookingCreated] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
