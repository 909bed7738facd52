package authctl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diagnosis/hotel-web/pkg/auth"
	"github.com/diagnosis/hotel-web/pkg/authctl"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
	"github.com/diagnosis/hotel-web/pkg/session"
)

type mockAPI struct {
	store session.Store

	loginResult *hotelapi.LoginResult
	loginErr    error
	registerErr error
	logoutErr   error

	registered []hotelapi.RegisterRequest
	logouts    int
}

func (m *mockAPI) Login(ctx context.Context, email, password string) (*hotelapi.LoginResult, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	if err := m.store.Save(ctx, m.loginResult.Session); err != nil {
		return nil, err
	}
	return m.loginResult, nil
}

func (m *mockAPI) Register(ctx context.Context, req hotelapi.RegisterRequest) (*hotelapi.User, error) {
	m.registered = append(m.registered, req)
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return &hotelapi.User{ID: "9", Name: req.Name, Email: req.Email, Role: session.RoleCustomer}, nil
}

// Logout mirrors the real client: the store is cleared whatever the remote says.
func (m *mockAPI) Logout(ctx context.Context) error {
	m.logouts++
	_ = m.store.Clear(ctx)
	return m.logoutErr
}

func adminLogin() *hotelapi.LoginResult {
	s := session.Session{Token: "tok", UserID: "1", Role: session.RoleAdmin}
	return &hotelapi.LoginResult{
		Session: s,
		User:    hotelapi.User{ID: "1", Name: "User", Email: "admin@example.com", Role: session.RoleAdmin},
	}
}

func TestController_LoadingUntilLoad(t *testing.T) {
	store := session.NewMemoryStore()
	ctl := authctl.New(&mockAPI{store: store}, store)

	st := ctl.State()
	if st.Loaded {
		t.Fatalf("expected loading state before Load")
	}
	if ctl.CurrentUser() != nil {
		t.Fatalf("expected no user before Load")
	}

	st = ctl.Load(context.Background())
	if !st.Loaded || st.User != nil {
		t.Fatalf("expected loaded with no user, got %+v", st)
	}
}

func TestController_LoadDerivesUserFromStore(t *testing.T) {
	ctx := context.Background()
	token, err := auth.NewAccessToken("7", "user@example.com", "CUSTOMER", "secret", time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	store := session.NewMemoryStore()
	if err := store.Save(ctx, session.Session{Token: token, UserID: "7", Role: session.RoleCustomer}); err != nil {
		t.Fatalf("save: %v", err)
	}

	ctl := authctl.New(&mockAPI{store: store}, store)
	st := ctl.Load(ctx)

	if !st.Authenticated() {
		t.Fatalf("expected authenticated state")
	}
	if st.User.ID != "7" || st.Role() != session.RoleCustomer {
		t.Errorf("unexpected user %+v", st.User)
	}
	if st.User.Email != "user@example.com" {
		t.Errorf("expected email from token subject, got %q", st.User.Email)
	}
}

func TestController_LoginWritesStoreBeforeReturning(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	api := &mockAPI{store: store, loginResult: adminLogin()}
	ctl := authctl.New(api, store)
	ctl.Load(ctx)

	user, err := ctl.Login(ctx, "admin@example.com", "password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Role != session.RoleAdmin {
		t.Errorf("expected ADMIN, got %s", user.Role)
	}
	s, ok := store.Get(ctx)
	if !ok || s.Token != "tok" || s.UserID != "1" || s.Role != session.RoleAdmin {
		t.Fatalf("expected full session in store, got %+v ok=%v", s, ok)
	}
	if got := ctl.CurrentUser(); got == nil || got.ID != "1" {
		t.Fatalf("expected current user refreshed, got %+v", got)
	}
}

func TestController_LoginFailureIsAuthError(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	apiErr := &hotelapi.APIError{Op: "login", Status: 401, Message: "Incorrect username or password"}
	ctl := authctl.New(&mockAPI{store: store, loginErr: apiErr}, store)
	ctl.Load(ctx)

	_, err := ctl.Login(ctx, "x@example.com", "nope")

	var authErr *authctl.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T %v", err, err)
	}
	if authErr.Message != "Incorrect username or password" {
		t.Errorf("expected server message, got %q", authErr.Message)
	}
	if !errors.Is(err, apiErr) {
		t.Errorf("expected AuthError to wrap the API error")
	}
	if _, ok := store.Get(ctx); ok {
		t.Errorf("store must stay empty after a failed login")
	}
	if ctl.CurrentUser() != nil {
		t.Errorf("expected no current user")
	}
}

func TestController_LoginNetworkFailureMessage(t *testing.T) {
	store := session.NewMemoryStore()
	netErr := &hotelapi.NetworkError{Op: "login", Err: errors.New("connection refused")}
	ctl := authctl.New(&mockAPI{store: store, loginErr: netErr}, store)

	_, err := ctl.Login(context.Background(), "a@b.c", "pw")

	var authErr *authctl.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Message != "Unable to reach the server. Please try again." {
		t.Errorf("unexpected message %q", authErr.Message)
	}
}

func TestController_RegisterNeverLogsIn(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	api := &mockAPI{store: store}
	ctl := authctl.New(api, store)
	ctl.Load(ctx)

	u, err := ctl.Register(ctx, "Ann", "ann@example.com", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "ann@example.com" {
		t.Errorf("unexpected user %+v", u)
	}
	if _, ok := store.Get(ctx); ok {
		t.Errorf("register must not write a session")
	}
	if ctl.CurrentUser() != nil {
		t.Errorf("register must not set a current user")
	}
}

func TestController_RegisterFailure(t *testing.T) {
	store := session.NewMemoryStore()
	conflict := &hotelapi.APIError{Op: "register", Status: 406, Message: "User Already Exists!"}
	ctl := authctl.New(&mockAPI{store: store, registerErr: conflict}, store)

	_, err := ctl.Register(context.Background(), "Ann", "ann@example.com", "pw")

	var authErr *authctl.AuthError
	if !errors.As(err, &authErr) || authErr.Message != "User Already Exists!" {
		t.Fatalf("expected AuthError with conflict message, got %v", err)
	}
}

func TestController_LogoutIsFailSoft(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	api := &mockAPI{
		store:       store,
		loginResult: adminLogin(),
		logoutErr:   &hotelapi.NetworkError{Op: "logout", Err: errors.New("timeout")},
	}
	ctl := authctl.New(api, store)
	ctl.Load(ctx)
	if _, err := ctl.Login(ctx, "admin@example.com", "password"); err != nil {
		t.Fatalf("login: %v", err)
	}

	ctl.Logout(ctx)

	if api.logouts != 1 {
		t.Errorf("expected one remote logout, got %d", api.logouts)
	}
	if _, ok := store.Get(ctx); ok {
		t.Errorf("expected store cleared after failed remote logout")
	}
	if st := ctl.State(); st.User != nil || !st.Loaded {
		t.Errorf("expected loaded and logged out, got %+v", st)
	}
}

func TestRoleHome(t *testing.T) {
	tests := []struct {
		role session.Role
		want string
	}{
		{session.RoleAdmin, "/admin"},
		{session.RoleCustomer, "/dashboard"},
		{"", "/dashboard"},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := authctl.RoleHome(tt.role); got != tt.want {
				t.Errorf("RoleHome(%q) = %q, want %q", tt.role, got, tt.want)
			}
		})
	}
}
