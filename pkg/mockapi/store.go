package mockapi

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alexedwards/argon2id"
)

const (
	roomPageSize        = 6
	reservationPageSize = 4
)

var (
	errExists   = errors.New("already exists")
	errNotFound = errors.New("not found")
)

// Lighter than argon2id.DefaultParams so seeding stays fast in tests.
var hashParams = &argon2id.Params{
	Memory:      16 * 1024,
	Iterations:  1,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

type user struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

type room struct {
	ID        int64
	Name      string
	Type      string
	Price     int64
	Available bool
}

type reservation struct {
	ID       int64
	CheckIn  time.Time
	CheckOut time.Time
	Price    int64
	Status   string
	UserID   int64
	RoomID   int64
}

type store struct {
	mu           sync.RWMutex
	nextID       int64
	users        map[int64]*user
	rooms        map[int64]*room
	reservations map[int64]*reservation
	blacklist    map[string]struct{}
}

func newStore() *store {
	return &store{
		users:        make(map[int64]*user),
		rooms:        make(map[int64]*room),
		reservations: make(map[int64]*reservation),
		blacklist:    make(map[string]struct{}),
	}
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *store) createUser(name, email, password, role string) (*user, error) {
	hash, err := argon2id.CreateHash(password, hashParams)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return nil, errExists
		}
	}
	u := &user{ID: s.id(), Name: name, Email: email, PasswordHash: hash, Role: role}
	s.users[u.ID] = u
	return u, nil
}

func (s *store) authenticate(email, password string) (*user, bool) {
	s.mu.RLock()
	var found *user
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			found = &cp
			break
		}
	}
	s.mu.RUnlock()
	if found == nil {
		return nil, false
	}
	ok, err := argon2id.ComparePasswordAndHash(password, found.PasswordHash)
	if err != nil || !ok {
		return nil, false
	}
	return found, true
}

func (s *store) userByID(id int64) (user, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return user{}, false
	}
	return *u, true
}

func (s *store) revoke(token string) {
	s.mu.Lock()
	s.blacklist[token] = struct{}{}
	s.mu.Unlock()
}

func (s *store) revoked(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blacklist[token]
	return ok
}

func (s *store) putRoom(r room) room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	s.rooms[r.ID] = &r
	return r
}

func (s *store) updateRoom(id int64, name, typ string, price int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return errNotFound
	}
	r.Name, r.Type, r.Price = name, typ, price
	return nil
}

func (s *store) room(id int64) (room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return room{}, false
	}
	return *r, true
}

func (s *store) deleteRoom(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return errNotFound
	}
	delete(s.rooms, id)
	for rid, res := range s.reservations {
		if res.RoomID == id {
			delete(s.reservations, rid)
		}
	}
	return nil
}

// roomPage returns one page of rooms in id order and the page count.
func (s *store) roomPage(page int, onlyAvailable bool) ([]room, int) {
	s.mu.RLock()
	all := make([]room, 0, len(s.rooms))
	for _, r := range s.rooms {
		if onlyAvailable && !r.Available {
			continue
		}
		all = append(all, *r)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, page, roomPageSize)
}

func (s *store) book(userID, roomID int64, checkIn, checkOut time.Time) (reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return reservation{}, errNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return reservation{}, errNotFound
	}
	days := int64(checkOut.Sub(checkIn).Hours() / 24)
	res := &reservation{
		ID:       s.id(),
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Price:    r.Price * days,
		Status:   "PENDING",
		UserID:   userID,
		RoomID:   roomID,
	}
	s.reservations[res.ID] = res
	return *res, nil
}

// setStatus mirrors the backend: "Approve" approves, anything else rejects,
// and either way the room stops being offered.
func (s *store) setStatus(id int64, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok {
		return errNotFound
	}
	if action == "Approve" {
		res.Status = "APPROVED"
	} else {
		res.Status = "REJECTED"
	}
	if r, ok := s.rooms[res.RoomID]; ok {
		r.Available = false
	}
	return nil
}

type reservationRow struct {
	reservation
	UserName string
	RoomName string
	RoomType string
}

func (s *store) reservationPage(page int, userID int64) ([]reservationRow, int) {
	s.mu.RLock()
	all := make([]reservationRow, 0, len(s.reservations))
	for _, res := range s.reservations {
		if userID != 0 && res.UserID != userID {
			continue
		}
		row := reservationRow{reservation: *res}
		if u, ok := s.users[res.UserID]; ok {
			row.UserName = u.Name
		}
		if r, ok := s.rooms[res.RoomID]; ok {
			row.RoomName, row.RoomType = r.Name, r.Type
		}
		all = append(all, row)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, page, reservationPageSize)
}

func paginate[T any](all []T, page, size int) ([]T, int) {
	totalPages := (len(all) + size - 1) / size
	start := page * size
	if page < 0 || start >= len(all) {
		return []T{}, totalPages
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], totalPages
}
