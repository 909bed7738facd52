package hotelapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/diagnosis/hotel-web/pkg/logger"
	"github.com/diagnosis/hotel-web/pkg/session"
)

type loginResponse struct {
	JWT      string `json:"jwt"`
	UserID   flexID `json:"userId"`
	UserRole string `json:"userRole"`
}

type userWire struct {
	ID       flexID `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	UserRole string `json:"userRole"`
	Role     string `json:"role"`
}

// Login authenticates and records the resulting session in the store. It
// returns only after the store accepted all three fields.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "login"
	body, err := c.do(ctx, call{
		op:     op,
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   map[string]string{"email": email, "password": password},
		auth:   authNone,
	})
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	ok, err := decode(op, body, &resp)
	if err != nil {
		return nil, err
	}
	role, roleOK := session.ParseRole(resp.UserRole)
	if !ok || resp.JWT == "" || resp.UserID == "" || !roleOK {
		return nil, fmt.Errorf("hotelapi: %s: %w: incomplete credentials in response", op, ErrMalformed)
	}

	sess := session.Session{Token: resp.JWT, UserID: string(resp.UserID), Role: role}
	if c.store == nil {
		return nil, fmt.Errorf("hotelapi: %s: no session store configured", op)
	}
	if err := c.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("hotelapi: %s: %w", op, err)
	}

	return &LoginResult{
		Session: sess,
		User: User{
			ID: sess.UserID,
			// the backend does not return a display name on login
			Name:  "User",
			Email: email,
			Role:  role,
		},
	}, nil
}

// Register creates an account. It never touches the session store. A nil
// user with a nil error means the backend accepted without echoing the user.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	const op = "register"
	body, err := c.do(ctx, call{
		op:     op,
		method: http.MethodPost,
		path:   "/api/auth/signup",
		body:   req,
		auth:   authNone,
	})
	if err != nil {
		return nil, err
	}

	var w userWire
	ok, err := decode(op, body, &w)
	if err != nil || !ok {
		return nil, err
	}
	u := &User{ID: string(w.ID), Name: w.Name, Email: w.Email}
	roleName := w.UserRole
	if roleName == "" {
		roleName = w.Role
	}
	if role, ok := session.ParseRole(roleName); ok {
		u.Role = role
	} else {
		u.Role = session.RoleCustomer
	}
	return u, nil
}

// Logout revokes the token remotely and clears the local session. The local
// session is cleared even when the remote call fails; that failure is still
// returned so callers can decide whether to care.
func (c *Client) Logout(ctx context.Context) error {
	const op = "logout"
	sess, ok := c.current(ctx)
	if !ok {
		return c.clear(ctx)
	}

	_, remoteErr := c.do(ctx, call{
		op:     op,
		method: http.MethodPost,
		path:   "/api/auth/logout",
		body:   map[string]string{"token": sess.Token},
		auth:   authRequired,
	})

	if err := c.clear(ctx); err != nil {
		return err
	}
	if remoteErr != nil {
		logger.DebugContext(ctx, "Remote logout failed", "error", remoteErr)
	}
	return remoteErr
}

func (c *Client) clear(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("hotelapi: logout: %w", err)
	}
	return nil
}
