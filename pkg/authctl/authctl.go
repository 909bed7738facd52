// Package authctl owns the notion of "current user" for one session cell.
//
// A Controller starts in the loading state. Load reads the store once and
// derives the user; Login and Logout keep the store and the derived user in
// step. Login and Logout are not serialized against each other: callers that
// fire both concurrently get whichever store write lands last.
package authctl

import (
	"context"
	"errors"
	"sync"

	"github.com/diagnosis/hotel-web/pkg/auth"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
	"github.com/diagnosis/hotel-web/pkg/logger"
	"github.com/diagnosis/hotel-web/pkg/session"
)

// API is the slice of the hotel client the controller needs.
type API interface {
	Login(ctx context.Context, email, password string) (*hotelapi.LoginResult, error)
	Register(ctx context.Context, req hotelapi.RegisterRequest) (*hotelapi.User, error)
	Logout(ctx context.Context) error
}

// State is a snapshot for route decisions. User is nil when nobody is
// logged in or while Loaded is false.
type State struct {
	Loaded bool
	User   *hotelapi.User
}

func (s State) Authenticated() bool {
	return s.Loaded && s.User != nil
}

func (s State) Role() session.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// AuthError is a failed login or registration. Message is fit for display.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Op + ": " + e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

type Controller struct {
	api   API
	store session.Store

	mu     sync.RWMutex
	loaded bool
	user   *hotelapi.User
}

func New(api API, store session.Store) *Controller {
	return &Controller{api: api, store: store}
}

// Load derives the current user from the store and leaves the loading
// state. It is safe to call again after the store changed underneath.
func (c *Controller) Load(ctx context.Context) State {
	var user *hotelapi.User
	if s, ok := c.store.Get(ctx); ok {
		user = userFromSession(s)
	}

	c.mu.Lock()
	c.user = user
	c.loaded = true
	c.mu.Unlock()
	return c.State()
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := State{Loaded: c.loaded}
	if c.user != nil {
		u := *c.user
		st.User = &u
	}
	return st
}

// CurrentUser is nil when logged out or not yet loaded.
func (c *Controller) CurrentUser() *hotelapi.User {
	return c.State().User
}

// Login returns only after the new session is in the store.
func (c *Controller) Login(ctx context.Context, email, password string) (*hotelapi.User, error) {
	res, err := c.api.Login(ctx, email, password)
	if err != nil {
		logger.WarnContext(ctx, "Login failed", "email", email, "error", err)
		return nil, &AuthError{Op: "login", Message: message(err, "Bad credentials"), Err: err}
	}

	user := res.User
	c.mu.Lock()
	c.user = &user
	c.loaded = true
	c.mu.Unlock()

	logger.InfoContext(ctx, "User logged in", "user_id", user.ID, "role", user.Role)
	return &user, nil
}

// Register creates an account without logging in.
func (c *Controller) Register(ctx context.Context, name, email, password string) (*hotelapi.User, error) {
	u, err := c.api.Register(ctx, hotelapi.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		logger.WarnContext(ctx, "Registration failed", "email", email, "error", err)
		return nil, &AuthError{Op: "register", Message: message(err, "Registration failed"), Err: err}
	}
	return u, nil
}

// Logout always ends with no session and no current user. A failed remote
// revocation is logged and otherwise ignored.
func (c *Controller) Logout(ctx context.Context) {
	if err := c.api.Logout(ctx); err != nil {
		logger.WarnContext(ctx, "Remote logout failed, local session cleared", "error", err)
		// no session may survive a failed logout
		if _, ok := c.store.Get(ctx); ok {
			if err := c.store.Clear(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to clear session", "error", err)
			}
		}
	}

	c.mu.Lock()
	c.user = nil
	c.loaded = true
	c.mu.Unlock()
}

// RoleHome is where a role lands after login.
func RoleHome(role session.Role) string {
	if role == session.RoleAdmin {
		return "/admin"
	}
	return "/dashboard"
}

func userFromSession(s session.Session) *hotelapi.User {
	u := &hotelapi.User{ID: s.UserID, Name: "User", Role: s.Role}
	// the token subject carries the email on this backend; purely cosmetic
	if claims, err := auth.Inspect(s.Token); err == nil && claims.Subject != "" {
		u.Email = claims.Subject
	}
	return u
}

func message(err error, fallback string) string {
	var apiErr *hotelapi.APIError
	var netErr *hotelapi.NetworkError
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.As(err, &netErr):
		return "Unable to reach the server. Please try again."
	default:
		return fallback
	}
}
