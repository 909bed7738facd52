package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/diagnosis/hotel-web/pkg/events"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
	mw "github.com/diagnosis/hotel-web/pkg/middleware"
	"github.com/diagnosis/hotel-web/pkg/mockapi"
	"github.com/diagnosis/hotel-web/pkg/session"
	"github.com/diagnosis/hotel-web/pkg/views"
)

// clock lets a test move the gateway's notion of now while its server
// goroutines read it.
type clock struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.offset += d
	c.mu.Unlock()
}

type gateway struct {
	t         *testing.T
	url       string
	clock     *clock
	recorder  *events.Recorder
	newClient func() *http.Client
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	return newGatewayWith(t, nil)
}

// newGatewayWith lets a test put middleware in front of the stub backend.
func newGatewayWith(t *testing.T, wrap func(http.Handler) http.Handler) *gateway {
	t.Helper()
	backend := mockapi.New("test-secret", time.Hour)
	if err := backend.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var routes http.Handler = backend.Routes()
	if wrap != nil {
		routes = wrap(routes)
	}
	api := httptest.NewServer(routes)
	t.Cleanup(api.Close)

	rec := &events.Recorder{}
	clk := &clock{}
	h := New(hotelapi.New(api.URL, nil), session.NewMemoryKeyspace(), rec, CookieConfig{Name: "hotel_sid", TTL: time.Hour})
	h.now = clk.now
	limit := mw.RateLimit(mw.NewMemoryRateCounter(), mw.RateLimitConfig{Requests: 5, Window: time.Minute})
	web := httptest.NewServer(h.Routes(mw.NewMemoryIdempotencyStore(), limit))
	t.Cleanup(web.Close)

	return &gateway{
		t:        t,
		url:      web.URL,
		clock:    clk,
		recorder: rec,
		newClient: func() *http.Client {
			jar, _ := cookiejar.New(nil)
			return &http.Client{
				Jar: jar,
				CheckRedirect: func(*http.Request, []*http.Request) error {
					return http.ErrUseLastResponse
				},
			}
		},
	}
}

func (g *gateway) do(c *http.Client, method, path, body string, headers ...string) (*http.Response, []byte) {
	g.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, g.url+path, reader)
	if err != nil {
		g.t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := c.Do(req)
	if err != nil {
		g.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func (g *gateway) login(c *http.Client, email string) authResponse {
	g.t.Helper()
	resp, body := g.do(c, http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"password"}`)
	if resp.StatusCode != http.StatusOK {
		g.t.Fatalf("login %s: %d %s", email, resp.StatusCode, body)
	}
	var out authResponse
	if err := json.Unmarshal(body, &out); err != nil {
		g.t.Fatalf("decode login: %v", err)
	}
	return out
}

func decodeInto(t *testing.T, body []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}

func TestGuard_AnonymousIsSentToLogin(t *testing.T) {
	g := newGateway(t)
	c := g.newClient()

	tests := []struct {
		path     string
		location string
	}{
		{"/dashboard", "/auth/login?redirect=%2Fdashboard"},
		{"/dashboard/bookings", "/auth/login?redirect=%2Fdashboard%2Fbookings"},
		{"/admin", "/auth/login"},
		{"/admin/reservations", "/auth/login"},
	}
	for _, tt := range tests {
		resp, _ := g.do(c, http.MethodGet, tt.path, "")
		if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != tt.location {
			t.Errorf("%s: expected 303 to %s, got %d %s", tt.path, tt.location, resp.StatusCode, resp.Header.Get("Location"))
		}
	}

	resp, body := g.do(c, http.MethodGet, "/rooms", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rooms are public, got %d %s", resp.StatusCode, body)
	}
	var rooms roomsResponse
	decodeInto(t, body, &rooms)
	if len(rooms.Rooms) != 6 || rooms.Page.TotalPages != 2 || !rooms.Page.HasNext() {
		t.Errorf("unexpected first page %+v", rooms.Page)
	}
}

func TestLogin_SetsCookieAndRedirectsByRole(t *testing.T) {
	g := newGateway(t)

	customer := g.newClient()
	out := g.login(customer, "user@example.com")
	if out.Redirect != "/dashboard" || out.User == nil || out.User.Role != session.RoleCustomer {
		t.Fatalf("unexpected login response %+v", out)
	}
	if len(out.Notifications) != 1 || out.Notifications[0].Title != "Login successful" {
		t.Errorf("unexpected notifications %+v", out.Notifications)
	}

	resp, body := g.do(customer, http.MethodGet, "/auth/session", "")
	var info sessionResponse
	decodeInto(t, body, &info)
	if resp.StatusCode != http.StatusOK || !info.Authenticated || info.Home != "/dashboard" || info.ExpiresAt == nil {
		t.Fatalf("unexpected session %+v", info)
	}

	// logged-in users never see the auth pages
	resp, _ = g.do(customer, http.MethodPost, "/auth/login", `{"email":"user@example.com","password":"password"}`)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/dashboard" {
		t.Errorf("expected redirect to /dashboard, got %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}

	// customers cannot reach admin pages
	resp, _ = g.do(customer, http.MethodGet, "/admin", "")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/auth/login" {
		t.Errorf("expected admin redirect, got %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}

	admin := g.newClient()
	if out := g.login(admin, "admin@example.com"); out.Redirect != "/admin" {
		t.Errorf("expected /admin home, got %q", out.Redirect)
	}

	if s := g.recorder.Subjects(); len(s) != 2 || s[0] != events.UserLoggedIn {
		t.Errorf("unexpected events %v", s)
	}
}

func TestLogin_HonoursLocalRedirectOnly(t *testing.T) {
	g := newGateway(t)
	body := `{"email":"user@example.com","password":"password"}`

	_, data := g.do(g.newClient(), http.MethodPost, "/auth/login?redirect=%2Fbooking%2F3", body)
	var out authResponse
	decodeInto(t, data, &out)
	if out.Redirect != "/booking/3" {
		t.Errorf("expected local redirect, got %q", out.Redirect)
	}

	_, data = g.do(g.newClient(), http.MethodPost, "/auth/login?redirect=https%3A%2F%2Fevil.example", body)
	decodeInto(t, data, &out)
	if out.Redirect != "/dashboard" {
		t.Errorf("expected fallback to role home, got %q", out.Redirect)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	g := newGateway(t)
	resp, body := g.do(g.newClient(), http.MethodPost, "/auth/login", `{"email":"user@example.com","password":"nope"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "Incorrect username or password") {
		t.Errorf("expected server message, got %s", body)
	}
	if len(resp.Cookies()) != 0 {
		t.Errorf("failed login must not set a cookie")
	}

	resp, _ = g.do(g.newClient(), http.MethodPost, "/auth/login", `{"email":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing fields, got %d", resp.StatusCode)
	}
}

func TestLogin_Throttled(t *testing.T) {
	g := newGateway(t)
	for i := 0; i < 5; i++ {
		resp, _ := g.do(g.newClient(), http.MethodPost, "/auth/login", `{"email":"user@example.com","password":"nope"}`)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, resp.StatusCode)
		}
	}
	resp, body := g.do(g.newClient(), http.MethodPost, "/auth/login", `{"email":"user@example.com","password":"password"}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d %s", resp.StatusCode, body)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After")
	}
}

func TestRegister(t *testing.T) {
	g := newGateway(t)
	c := g.newClient()
	body := `{"name":"Ann","email":"ann@example.com","password":"pw"}`

	resp, _ := g.do(c, http.MethodPost, "/auth/register", `{"name":"Ann","email":"ann@localhost","password":"pw"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad email, got %d", resp.StatusCode)
	}

	resp, data := g.do(c, http.MethodPost, "/auth/register", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", resp.StatusCode, data)
	}
	var out authResponse
	decodeInto(t, data, &out)
	if out.Redirect != "/auth/login" {
		t.Errorf("registration sends users to login, got %q", out.Redirect)
	}

	// registration never logs in
	_, data = g.do(c, http.MethodGet, "/auth/session", "")
	var info sessionResponse
	decodeInto(t, data, &info)
	if info.Authenticated {
		t.Errorf("expected anonymous session after register")
	}

	resp, data = g.do(c, http.MethodPost, "/auth/register", body)
	if resp.StatusCode != http.StatusConflict || !strings.Contains(string(data), "User Already Exists!") {
		t.Errorf("expected 409 conflict, got %d %s", resp.StatusCode, data)
	}
}

func TestBooking_FlowAndReplay(t *testing.T) {
	g := newGateway(t)
	c := g.newClient()
	g.login(c, "user@example.com")

	_, data := g.do(c, http.MethodGet, "/rooms?q=ocean", "")
	var rooms roomsResponse
	decodeInto(t, data, &rooms)
	if len(rooms.Rooms) != 1 {
		t.Fatalf("expected one ocean room, got %+v", rooms.Rooms)
	}
	room := rooms.Rooms[0]

	_, data = g.do(c, http.MethodGet, "/rooms/"+room.ID+"?checkIn=2026-11-01&checkOut=2026-11-04", "")
	var detail roomResponse
	decodeInto(t, data, &detail)
	if detail.Estimate == nil || *detail.Estimate != room.PricePerNight*3 {
		t.Errorf("unexpected estimate %+v", detail.Estimate)
	}

	body := `{"checkIn":"2026-11-01","checkOut":"2026-11-04","guests":2}`
	resp, first := g.do(c, http.MethodPost, "/booking/"+room.ID, body, "Idempotency-Key", "book-1")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", resp.StatusCode, first)
	}
	var booked bookResponse
	decodeInto(t, first, &booked)
	if !booked.Booked || booked.Estimate != room.PricePerNight*3 || booked.Redirect != "/dashboard" {
		t.Errorf("unexpected booking response %+v", booked)
	}

	resp, second := g.do(c, http.MethodPost, "/booking/"+room.ID, body, "Idempotency-Key", "book-1")
	if resp.Header.Get("Idempotent-Replayed") != "true" || string(second) != string(first) {
		t.Errorf("expected replayed response, got %s", second)
	}

	_, data = g.do(c, http.MethodGet, "/dashboard", "")
	var dash dashboardResponse
	decodeInto(t, data, &dash)
	if dash.Stats.Total != 1 || dash.Stats.Pending != 1 || len(dash.Upcoming) != 0 {
		t.Errorf("expected a single pending booking, got %+v", dash)
	}

	_, data = g.do(c, http.MethodGet, "/dashboard/bookings?status=approved", "")
	var mine bookingsResponse
	decodeInto(t, data, &mine)
	if len(mine.Page.Content) != 1 || len(mine.Bookings) != 0 {
		t.Errorf("status filter applies to the loaded page, got %+v", mine)
	}

	if s := g.recorder.Subjects(); len(s) != 2 || s[1] != events.BookingCreated {
		t.Errorf("unexpected events %v", s)
	}
}

func TestBooking_InvalidDates(t *testing.T) {
	g := newGateway(t)
	c := g.newClient()
	g.login(c, "user@example.com")

	tests := []struct {
		body  string
		title string
	}{
		{`{"checkIn":"","checkOut":""}`, "Missing dates"},
		{`{"checkIn":"2026-11-04","checkOut":"2026-11-01"}`, "Invalid dates"},
	}
	for _, tt := range tests {
		resp, data := g.do(c, http.MethodPost, "/booking/1", tt.body)
		var out bookResponse
		decodeInto(t, data, &out)
		if resp.StatusCode != http.StatusUnprocessableEntity || out.Booked || len(out.Notifications) != 1 || out.Notifications[0].Title != tt.title {
			t.Errorf("%s: unexpected %d %+v", tt.body, resp.StatusCode, out)
		}
	}
}

func TestAdmin_ReservationsAndRooms(t *testing.T) {
	g := newGateway(t)
	customer := g.newClient()
	g.login(customer, "user@example.com")

	_, data := g.do(customer, http.MethodGet, "/rooms?q=garden", "")
	var available roomsResponse
	decodeInto(t, data, &available)
	if len(available.Rooms) != 1 {
		t.Fatalf("expected the garden room, got %+v", available.Rooms)
	}
	resp, data := g.do(customer, http.MethodPost, "/booking/"+available.Rooms[0].ID, `{"checkIn":"2026-11-01","checkOut":"2026-11-03"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected the booking to succeed, got %d %s", resp.StatusCode, data)
	}

	admin := g.newClient()
	g.login(admin, "admin@example.com")

	_, data = g.do(admin, http.MethodGet, "/admin", "")
	var summary summaryResponse
	decodeInto(t, data, &summary)
	if summary.Summary == nil || summary.Summary.TotalReservations != 1 || summary.Summary.AvailableRooms != 6 || summary.Summary.ByStatus[hotelapi.StatusPending] != 1 {
		t.Fatalf("unexpected summary %+v", summary.Summary)
	}

	_, data = g.do(admin, http.MethodGet, "/admin/reservations?status=PENDING", "")
	var list reservationsResponse
	decodeInto(t, data, &list)
	if len(list.Reservations) != 1 {
		t.Fatalf("expected one pending reservation, got %+v", list)
	}
	id := list.Reservations[0].ID

	resp, data = g.do(admin, http.MethodPost, "/admin/reservations/"+id+"/approve", "")
	decodeInto(t, data, &list)
	if resp.StatusCode != http.StatusOK || list.Reservations[0].Status != hotelapi.StatusApproved {
		t.Fatalf("unexpected status change %d %+v", resp.StatusCode, list)
	}
	if n := list.Notifications; len(n) != 1 || n[0].Message != "Reservation status has been updated to APPROVED." {
		t.Errorf("unexpected notifications %+v", n)
	}

	resp, _ = g.do(admin, http.MethodPost, "/admin/reservations/"+id+"/pending", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("PENDING is not a target status, got %d", resp.StatusCode)
	}

	resp, data = g.do(admin, http.MethodPost, "/admin/rooms", `{"name":"Attic","description":"","pricePerNight":70,"capacity":2}`)
	var mut mutationResponse
	decodeInto(t, data, &mut)
	if resp.StatusCode != http.StatusUnprocessableEntity || mut.Notifications[0].Message != "Room description is required" {
		t.Errorf("expected validation failure, got %d %+v", resp.StatusCode, mut)
	}

	resp, _ = g.do(admin, http.MethodPost, "/admin/rooms", `{"name":"Attic","description":"under the roof","pricePerNight":70,"capacity":2}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	_, data = g.do(admin, http.MethodGet, "/admin/rooms?page=1&q=attic", "")
	var rooms roomsResponse
	decodeInto(t, data, &rooms)
	if len(rooms.Rooms) != 1 {
		t.Fatalf("expected the new room on page 1, got %+v", rooms)
	}

	resp, data = g.do(admin, http.MethodDelete, "/admin/rooms/"+rooms.Rooms[0].ID+"?page=1", "")
	decodeInto(t, data, &rooms)
	if resp.StatusCode != http.StatusOK || rooms.Page.Number != 1 || len(rooms.Page.Content) != 1 {
		t.Errorf("expected refreshed page 1 after delete, got %d %+v", resp.StatusCode, rooms.Page)
	}

	resp, _ = g.do(admin, http.MethodGet, "/admin/rooms/999", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestLogout_ClearsSession(t *testing.T) {
	g := newGateway(t)
	c := g.newClient()
	g.login(c, "user@example.com")

	resp, _ := g.do(c, http.MethodPost, "/auth/logout", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp, _ = g.do(c, http.MethodGet, "/dashboard", "")
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("expected redirect after logout, got %d", resp.StatusCode)
	}

	// logging out twice is harmless
	resp, _ = g.do(c, http.MethodPost, "/auth/logout", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestSession_ExpiredTokenIsDropped(t *testing.T) {
	g := newGateway(t)
	c := g.newClient()
	g.login(c, "user@example.com")

	g.clock.advance(2 * time.Hour)
	resp, _ := g.do(c, http.MethodGet, "/dashboard", "")
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect for expired token, got %d", resp.StatusCode)
	}

	g.clock.advance(-2 * time.Hour)
	resp, _ = g.do(c, http.MethodGet, "/dashboard", "")
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("expired session must stay cleared, got %d", resp.StatusCode)
	}
}

func TestPageParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
		ok    bool
	}{
		{"", 0, true},
		{"page=2", 2, true},
		{"page=-1", 0, false},
		{"page=x", 0, false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/rooms?"+tt.query, nil)
		got, ok := pageParam(r)
		if got != tt.want || ok != tt.ok {
			t.Errorf("pageParam(%q) = %d, %v; want %d, %v", tt.query, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAdmin_MutationStopsWhenRequestedPageFails(t *testing.T) {
	failPage := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/2") &&
				(strings.HasPrefix(r.URL.Path, "/api/admin/rooms/") || strings.HasPrefix(r.URL.Path, "/api/admin/reservations/")) {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	g := newGatewayWith(t, failPage)
	admin := g.newClient()
	g.login(admin, "admin@example.com")

	_, data := g.do(admin, http.MethodGet, "/admin/rooms", "")
	var rooms roomsResponse
	decodeInto(t, data, &rooms)
	if len(rooms.Rooms) == 0 {
		t.Fatal("expected seeded rooms")
	}
	victim := rooms.Rooms[0].ID

	resp, data := g.do(admin, http.MethodDelete, "/admin/rooms/"+victim+"?page=2", "")
	var out roomsResponse
	decodeInto(t, data, &out)
	if resp.StatusCode != http.StatusUnprocessableEntity || len(out.Notifications) != 1 || out.Notifications[0].Level != views.LevelError {
		t.Fatalf("expected 422 with the load failure, got %d %+v", resp.StatusCode, out)
	}
	if resp, _ := g.do(admin, http.MethodGet, "/admin/rooms/"+victim, ""); resp.StatusCode != http.StatusOK {
		t.Errorf("room must not be deleted when its page could not be loaded, got %d", resp.StatusCode)
	}

	resp, data = g.do(admin, http.MethodPost, "/admin/reservations/1/approve?page=2", "")
	var res reservationsResponse
	decodeInto(t, data, &res)
	if resp.StatusCode != http.StatusUnprocessableEntity || len(res.Notifications) != 1 {
		t.Errorf("expected 422 with the load failure, got %d %+v", resp.StatusCode, res)
	}
	if subjects := g.recorder.Subjects(); len(subjects) != 1 || subjects[0] != events.UserLoggedIn {
		t.Errorf("no mutation event expected, got %v", subjects)
	}
}
