package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/hotel-web/internal/http/response"
	"github.com/diagnosis/hotel-web/pkg/auth"
	"github.com/diagnosis/hotel-web/pkg/authctl"
	"github.com/diagnosis/hotel-web/pkg/events"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
	"github.com/diagnosis/hotel-web/pkg/logger"
	"github.com/diagnosis/hotel-web/pkg/session"
	"github.com/diagnosis/hotel-web/pkg/views"
)

const maxRequestBytes = 1 << 20

type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

type Handlers struct {
	api       *hotelapi.Client
	sessions  session.Keyspace
	publisher events.Publisher
	cookie    CookieConfig
	now       func() time.Time
}

// New wires the gateway. api is the shared client; each request rebinds it to
// the caller's session cell.
func New(api *hotelapi.Client, sessions session.Keyspace, publisher events.Publisher, cookie CookieConfig) *Handlers {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if cookie.Name == "" {
		cookie.Name = "hotel_sid"
	}
	return &Handlers{
		api:       api,
		sessions:  sessions,
		publisher: publisher,
		cookie:    cookie,
		now:       time.Now,
	}
}

// requestState is everything a handler knows about the caller.
type requestState struct {
	sid    string
	store  session.Store
	client *hotelapi.Client
	ctl    *authctl.Controller
	auth   authctl.State
	inbox  *views.Inbox
}

type stateKey struct{}

func (h *Handlers) bind(sid string) *requestState {
	var store session.Store
	if sid == "" {
		// anonymous callers get a throwaway cell until they log in
		store = session.NewMemoryStore()
	} else {
		store = h.sessions.For(sid)
	}
	client := h.api.WithStore(store)
	return &requestState{
		sid:    sid,
		store:  store,
		client: client,
		ctl:    authctl.New(client, store),
		inbox:  &views.Inbox{},
	}
}

// Session resolves the session cookie to a loaded auth state. Sessions whose
// token has expired are cleared here so the guard sees a logged-out caller.
func (h *Handlers) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rs := h.bind(h.sessionID(r))
		if rs.sid != "" {
			ctx = context.WithValue(ctx, logger.SessionIDKey, rs.sid[:8])
			if s, ok := rs.store.Get(ctx); ok {
				if exp := auth.ExpiresAt(s.Token); !exp.IsZero() && exp.Before(h.now()) {
					logger.InfoContext(ctx, "Session token expired", "user_id", s.UserID)
					if err := rs.store.Clear(ctx); err != nil {
						logger.ErrorContext(ctx, "Failed to clear expired session", "error", err)
					}
				}
			}
		}
		rs.auth = rs.ctl.Load(ctx)
		if u := rs.auth.User; u != nil {
			ctx = context.WithValue(ctx, logger.UserIDKey, u.ID)
		}

		ctx = context.WithValue(ctx, stateKey{}, rs)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthState is the guard's view of the request.
func (h *Handlers) AuthState(r *http.Request) authctl.State {
	if rs, ok := r.Context().Value(stateKey{}).(*requestState); ok {
		return rs.auth
	}
	return authctl.State{}
}

// IdempotencyScope keys cached responses by browser session.
func (h *Handlers) IdempotencyScope(r *http.Request) string {
	return h.sessionID(r)
}

func (h *Handlers) sessionID(r *http.Request) string {
	c, err := r.Cookie(h.cookie.Name)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

func (h *Handlers) setCookie(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(h.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) dropCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func state(r *http.Request) *requestState {
	rs, _ := r.Context().Value(stateKey{}).(*requestState)
	return rs
}

// viewOptions routes view notifications into the request inbox and tags
// audit events with the caller.
func (h *Handlers) viewOptions(rs *requestState) []views.Option {
	opts := []views.Option{views.WithNotifier(rs.inbox), views.WithPublisher(h.publisher)}
	if rs.auth.User != nil {
		opts = append(opts, views.WithActor(rs.auth.User.ID))
	}
	return opts
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	response.JSON(w, status, v)
}

func decodeBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return err
	}
	defer r.Body.Close()
	return json.Unmarshal(body, v)
}

// pageParam reads ?page=, defaulting to 0. Negative or non-numeric values are
// rejected.
func pageParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func statusParam(r *http.Request) (hotelapi.BookingStatus, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", true
	}
	return hotelapi.ParseBookingStatus(raw)
}

// writeAPIError translates a client error that no view absorbed.
func writeAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var apiErr *hotelapi.APIError
	var netErr *hotelapi.NetworkError
	switch {
	case errors.Is(err, hotelapi.ErrSessionAbsent):
		response.Unauthorized(w, "Please login to continue.")
	case errors.Is(err, hotelapi.ErrInvalidInput), errors.Is(err, hotelapi.ErrInvalidStatus):
		response.BadRequest(w, err.Error())
	case errors.As(err, &apiErr):
		msg := fallback
		if !apiErr.Generic() {
			msg = apiErr.Message
		}
		switch apiErr.Status {
		case http.StatusNotFound:
			response.NotFound(w, msg)
		case http.StatusUnauthorized:
			response.Unauthorized(w, msg)
		case http.StatusForbidden:
			response.Forbidden(w, msg)
		default:
			response.BadGateway(w, msg)
		}
	case errors.As(err, &netErr):
		logger.ErrorContext(r.Context(), "Hotel API unreachable", "error", err)
		response.Unavailable(w, "Unable to reach the server. Please try again.")
	default:
		logger.ErrorContext(r.Context(), "Unexpected hotel API error", "error", err)
		response.InternalError(w, fallback)
	}
}
