package mockapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRooms_LegacyEnvelope(t *testing.T) {
	s := New("secret", time.Hour)
	if err := s.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/customer/rooms/1", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		RoomDtoList []map[string]interface{} `json:"roomDtoList"`
		PageNumber  int                      `json:"pageNumber"`
		TotalPages  int                      `json:"totalPages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.PageNumber != 1 || body.TotalPages != 2 || len(body.RoomDtoList) != 1 {
		t.Fatalf("unexpected envelope %+v", body)
	}
	if _, ok := body.RoomDtoList[0]["price"]; !ok {
		t.Errorf("rooms carry price, not pricePerNight: %v", body.RoomDtoList[0])
	}
}

func TestAdmin_RequiresAdminToken(t *testing.T) {
	s := New("secret", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/rooms/0", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without token, got %d", rec.Code)
	}
}

func TestSignup_ConflictIsPlainText(t *testing.T) {
	s := New("secret", time.Hour)
	h := s.Routes()
	body := `{"email":"a@example.com","password":"pw","name":"A"}`

	for i, want := range []int{http.StatusOK, http.StatusNotAcceptable} {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("attempt %d: expected %d, got %d", i, want, rec.Code)
		}
		if want == http.StatusNotAcceptable && rec.Body.String() != "User Already Exists!" {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
	}
}

func TestStore_StatusChangeAndPricing(t *testing.T) {
	st := newStore()
	u, err := st.createUser("A", "a@example.com", "pw", roleCustomer)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	r := st.putRoom(room{Name: "R", Price: 100, Available: true})

	in := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := st.book(u.ID, r.ID, in, in.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if res.Price != 300 || res.Status != "PENDING" {
		t.Fatalf("unexpected reservation %+v", res)
	}

	if err := st.setStatus(res.ID, "anything"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	rows, _ := st.reservationPage(0, 0)
	if rows[0].Status != "REJECTED" {
		t.Errorf("non-Approve actions reject, got %s", rows[0].Status)
	}
	if got, _ := st.room(r.ID); got.Available {
		t.Errorf("status change marks the room unavailable")
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		page, size, wantLen, wantPages int
	}{
		{0, 2, 2, 3},
		{2, 2, 1, 3},
		{3, 2, 0, 3},
		{0, 10, 5, 1},
	}
	for _, tt := range tests {
		got, pages := paginate(items, tt.page, tt.size)
		if len(got) != tt.wantLen || pages != tt.wantPages {
			t.Errorf("paginate(page=%d,size=%d) = %d items / %d pages, want %d / %d", tt.page, tt.size, len(got), pages, tt.wantLen, tt.wantPages)
		}
	}
}
