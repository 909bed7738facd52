// Package mockapi is an in-memory stand-in for the hotel REST backend. It
// reproduces the backend's endpoints, payload shapes and quirks closely
// enough to drive the client, the gateway and the CLI without the real
// server.
package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/hotel-web/pkg/auth"
	"github.com/diagnosis/hotel-web/pkg/logger"
)

const (
	roleAdmin    = "ADMIN"
	roleCustomer = "CUSTOMER"
	dateLayout   = "2006-01-02"
)

type claimsKey struct{}

type Server struct {
	store    *store
	secret   string
	tokenTTL time.Duration
}

func New(secret string, tokenTTL time.Duration) *Server {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Server{store: newStore(), secret: secret, tokenTTL: tokenTTL}
}

// Seed adds the demo accounts and a handful of rooms.
func (s *Server) Seed() error {
	if _, err := s.store.createUser("Admin", "admin@example.com", "password", roleAdmin); err != nil {
		return err
	}
	if _, err := s.store.createUser("Demo User", "user@example.com", "password", roleCustomer); err != nil {
		return err
	}
	for _, r := range []room{
		{Name: "Ocean View Suite", Type: "Suite", Price: 250, Available: true},
		{Name: "Garden Double", Type: "Double", Price: 120, Available: true},
		{Name: "City Single", Type: "Single", Price: 80, Available: true},
		{Name: "Family Loft", Type: "Family", Price: 180, Available: true},
		{Name: "Penthouse", Type: "Suite", Price: 600, Available: true},
		{Name: "Courtyard Twin", Type: "Twin", Price: 110, Available: true},
		{Name: "Budget Single", Type: "Single", Price: 60, Available: true},
	} {
		s.store.putRoom(r)
	}
	return nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", s.signup)
		r.Post("/login", s.login)
		r.Post("/logout", s.logout)
	})

	r.Route("/api/customer", func(r chi.Router) {
		r.Get("/rooms/{page}", s.availableRooms)
		r.Get("/get-room/{id}", s.getRoom)

		r.Group(func(r chi.Router) {
			r.Use(s.requireRole(roleCustomer))
			r.Post("/book", s.book)
			r.Get("/bookings/{userId}/{page}", s.userBookings)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.requireRole(roleAdmin))
		r.Post("/room", s.createRoom)
		r.Get("/rooms/{page}", s.allRooms)
		r.Get("/get-room/{id}", s.getRoom)
		r.Put("/room/{id}", s.updateRoom)
		r.Delete("/room/{id}", s.deleteRoom)
		r.Get("/reservations/{page}", s.allReservations)
		r.Get("/reservation/{id}/{status}", s.changeStatus)
	})

	return r
}

func (s *Server) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusForbidden, "Access Denied")
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")
			if s.store.revoked(token) {
				writeError(w, http.StatusUnauthorized, "Token has been revoked")
				return
			}
			claims, err := auth.Parse(token, s.secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			if claims.Role != role {
				writeError(w, http.StatusForbidden, "Access Denied")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			ctx = context.WithValue(ctx, logger.UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func claimsFrom(r *http.Request) *auth.Claims {
	c, _ := r.Context().Value(claimsKey{}).(*auth.Claims)
	return c
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeText(w, http.StatusBadRequest, "User Not Created. Please try again later")
		return
	}
	u, err := s.store.createUser(req.Name, req.Email, req.Password, roleCustomer)
	if errors.Is(err, errExists) {
		writeText(w, http.StatusNotAcceptable, "User Already Exists!")
		return
	}
	if err != nil {
		writeText(w, http.StatusBadRequest, "User Not Created. Please try again later")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       u.ID,
		"email":    u.Email,
		"name":     u.Name,
		"userRole": u.Role,
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	u, ok := s.store.authenticate(req.Email, req.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	token, err := auth.NewAccessToken(strconv.FormatInt(u.ID, 10), u.Email, u.Role, s.secret, s.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	logger.InfoContext(r.Context(), "Mock login", "user_id", u.ID, "role", u.Role)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jwt":      token,
		"userId":   u.ID,
		"userRole": u.Role,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.store.revoke(req.Token)
	writeText(w, http.StatusOK, "Logout Successful!")
}

func (s *Server) availableRooms(w http.ResponseWriter, r *http.Request) {
	s.writeRooms(w, r, true)
}

func (s *Server) allRooms(w http.ResponseWriter, r *http.Request) {
	s.writeRooms(w, r, false)
}

func (s *Server) writeRooms(w http.ResponseWriter, r *http.Request, onlyAvailable bool) {
	page, ok := pathInt(w, r, "page")
	if !ok {
		return
	}
	rooms, totalPages := s.store.roomPage(int(page), onlyAvailable)
	list := make([]roomDTO, 0, len(rooms))
	for _, rm := range rooms {
		list = append(list, toRoomDTO(rm))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"roomDtoList": list,
		"pageNumber":  page,
		"totalPages":  totalPages,
	})
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	rm, found := s.store.room(id)
	if !found {
		writeText(w, http.StatusNotFound, "Room not present")
		return
	}
	writeJSON(w, http.StatusOK, toRoomDTO(rm))
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var in roomDTO
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.store.putRoom(room{Name: in.Name, Type: in.Type, Price: in.Price, Available: true})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) updateRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var in roomDTO
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.store.updateRoom(id, in.Name, in.Type, in.Price); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) deleteRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.deleteRoom(id); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) book(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID       json.Number `json:"roomId"`
		UserID       json.Number `json:"userId"`
		CheckInDate  string      `json:"checkInDate"`
		CheckOutDate string      `json:"checkOutDate"`
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	roomID, err1 := req.RoomID.Int64()
	userID, err2 := req.UserID.Int64()
	checkIn, err3 := time.Parse(dateLayout, req.CheckInDate)
	checkOut, err4 := time.Parse(dateLayout, req.CheckOutDate)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || !checkOut.After(checkIn) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if c := claimsFrom(r); c == nil || c.UserID != strconv.FormatInt(userID, 10) {
		writeError(w, http.StatusForbidden, "Access Denied")
		return
	}
	if _, err := s.store.book(userID, roomID, checkIn, checkOut); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) userBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt(w, r, "userId")
	if !ok {
		return
	}
	if c := claimsFrom(r); c == nil || c.UserID != strconv.FormatInt(userID, 10) {
		writeError(w, http.StatusForbidden, "Access Denied")
		return
	}
	s.writeReservations(w, r, userID)
}

func (s *Server) allReservations(w http.ResponseWriter, r *http.Request) {
	s.writeReservations(w, r, 0)
}

func (s *Server) writeReservations(w http.ResponseWriter, r *http.Request, userID int64) {
	page, ok := pathInt(w, r, "page")
	if !ok {
		return
	}
	rows, totalPages := s.store.reservationPage(int(page), userID)
	list := make([]reservationDTO, 0, len(rows))
	for _, row := range rows {
		list = append(list, toReservationDTO(row))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reservationDtoList": list,
		"pageNumber":         page,
		"totalPages":         totalPages,
	})
}

func (s *Server) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.setStatus(id, chi.URLParam(r, "status")); err != nil {
		writeText(w, http.StatusBadRequest, "Something went wrong")
		return
	}
	w.WriteHeader(http.StatusOK)
}

type roomDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Price     int64  `json:"price"`
	Available bool   `json:"available"`
}

func toRoomDTO(r room) roomDTO {
	return roomDTO{ID: r.ID, Name: r.Name, Type: r.Type, Price: r.Price, Available: r.Available}
}

type reservationDTO struct {
	ID                int64  `json:"id"`
	CheckInDate       string `json:"checkInDate"`
	CheckOutDate      string `json:"checkOutDate"`
	Price             int64  `json:"price"`
	ReservationStatus string `json:"reservationStatus"`
	UserID            int64  `json:"userId"`
	UserName          string `json:"userName"`
	RoomID            int64  `json:"roomId"`
	RoomName          string `json:"roomName"`
	RoomType          string `json:"roomType"`
}

func toReservationDTO(row reservationRow) reservationDTO {
	return reservationDTO{
		ID:                row.ID,
		CheckInDate:       row.CheckIn.Format(dateLayout),
		CheckOutDate:      row.CheckOut.Format(dateLayout),
		Price:             row.Price,
		ReservationStatus: row.Status,
		UserID:            row.UserID,
		UserName:          row.UserName,
		RoomID:            row.RoomID,
		RoomName:          row.RoomName,
		RoomType:          row.RoomType,
	}
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError uses the backend's default error body shape.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]interface{}{
		"status":  statusCode,
		"error":   http.StatusText(statusCode),
		"message": message,
	})
}

func writeText(w http.ResponseWriter, statusCode int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	w.Write([]byte(text))
}
