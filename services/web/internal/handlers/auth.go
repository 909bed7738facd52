package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/hotel-web/internal/http/response"
	"github.com/diagnosis/hotel-web/internal/utils"
	"github.com/diagnosis/hotel-web/pkg/auth"
	"github.com/diagnosis/hotel-web/pkg/authctl"
	"github.com/diagnosis/hotel-web/pkg/events"
	"github.com/diagnosis/hotel-web/pkg/guard"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
	"github.com/diagnosis/hotel-web/pkg/logger"
	"github.com/diagnosis/hotel-web/pkg/views"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User          *hotelapi.User       `json:"user"`
	Redirect      string               `json:"redirect,omitempty"`
	Notifications []views.Notification `json:"notifications"`
}

type sessionResponse struct {
	Authenticated bool           `json:"authenticated"`
	User          *hotelapi.User `json:"user"`
	Home          string         `json:"home,omitempty"`
	ExpiresAt     *time.Time     `json:"expiresAt,omitempty"`
}

// Login issues a fresh session id on success; the caller's previous cell is
// cleared so an old cookie cannot ride on the new login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rs := state(r)

	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	req.Email = utils.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		response.BadRequest(w, "Email and password are required")
		return
	}

	sid := uuid.NewString()
	fresh := h.bind(sid)
	user, err := fresh.ctl.Login(ctx, req.Email, req.Password)
	if err != nil {
		var authErr *authctl.AuthError
		var netErr *hotelapi.NetworkError
		msg := "Bad credentials"
		if errors.As(err, &authErr) {
			msg = authErr.Message
		}
		if errors.As(err, &netErr) {
			response.Unavailable(w, msg)
			return
		}
		response.WriteError(w, http.StatusUnauthorized, msg, response.CodeUnauthorized)
		return
	}

	if rs.sid != "" {
		if err := rs.store.Clear(ctx); err != nil {
			logger.WarnContext(ctx, "Failed to clear previous session", "error", err)
		}
	}
	h.setCookie(w, sid)

	if err := h.publisher.Publish(ctx, events.UserLoggedIn, events.SessionEvent{
		UserID: user.ID,
		Role:   string(user.Role),
		At:     h.now().UTC(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", events.UserLoggedIn, "error", err)
	}

	writeJSON(w, http.StatusOK, authResponse{
		User:     user,
		Redirect: guard.SafeRedirect(r.URL.Query().Get("redirect"), authctl.RoleHome(user.Role)),
		Notifications: []views.Notification{{
			Level:   views.LevelSuccess,
			Title:   "Login successful",
			Message: "You have been logged in successfully.",
		}},
	})
}

// Register creates the account and sends the caller to the login page. It
// never logs in.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rs := state(r)

	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	req.Name = utils.NormalizeString(req.Name)
	req.Email = utils.NormalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		response.BadRequest(w, "Name, email and password are required")
		return
	}
	if !utils.IsValidEmail(req.Email) {
		response.BadRequest(w, "Please enter a valid email address")
		return
	}

	user, err := rs.ctl.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		var authErr *authctl.AuthError
		msg := "Registration failed"
		if errors.As(err, &authErr) {
			msg = authErr.Message
		}
		var apiErr *hotelapi.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotAcceptable {
			response.Conflict(w, msg)
			return
		}
		response.BadRequest(w, msg)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		User:     user,
		Redirect: guard.LoginPath,
		Notifications: []views.Notification{{
			Level:   views.LevelSuccess,
			Title:   "Success",
			Message: "Your account has been created. Please log in.",
		}},
	})
}

// Logout always succeeds from the caller's point of view.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rs := state(r)

	user := rs.auth.User
	rs.ctl.Logout(ctx)
	h.dropCookie(w)

	if user != nil {
		if err := h.publisher.Publish(ctx, events.UserLoggedOut, events.SessionEvent{
			UserID: user.ID,
			Role:   string(user.Role),
			At:     h.now().UTC(),
		}); err != nil {
			logger.WarnContext(ctx, "Failed to publish event", "subject", events.UserLoggedOut, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, authResponse{Redirect: "/", Notifications: []views.Notification{}})
}

func (h *Handlers) SessionInfo(w http.ResponseWriter, r *http.Request) {
	rs := state(r)
	out := sessionResponse{Authenticated: rs.auth.Authenticated(), User: rs.auth.User}
	if out.User != nil {
		out.Home = authctl.RoleHome(out.User.Role)
		if s, ok := rs.store.Get(r.Context()); ok {
			if exp := auth.ExpiresAt(s.Token); !exp.IsZero() {
				out.ExpiresAt = &exp
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}
