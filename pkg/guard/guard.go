// Package guard decides, for a requested path and the current auth state,
// whether to render the page or redirect.
package guard

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/diagnosis/hotel-web/pkg/authctl"
	"github.com/diagnosis/hotel-web/pkg/logger"
	"github.com/diagnosis/hotel-web/pkg/session"
)

const LoginPath = "/auth/login"

type Outcome int

const (
	Allowed Outcome = iota
	RedirectToLogin
	RedirectToRoleHome
	// Deferred means the session is still loading and nothing may be decided.
	Deferred
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case RedirectToLogin:
		return "redirect_login"
	case RedirectToRoleHome:
		return "redirect_role_home"
	case Deferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// Decision carries the redirect target when Outcome is a redirect.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Evaluate is a pure function of its inputs and is re-run on every
// navigation.
func Evaluate(p string, st authctl.State) Decision {
	if !st.Loaded {
		return Decision{Outcome: Deferred}
	}
	p = clean(p)
	user := st.User

	switch {
	case under(p, "/admin"):
		if user == nil || user.Role != session.RoleAdmin {
			return Decision{Outcome: RedirectToLogin, Location: LoginPath}
		}
	case under(p, "/dashboard"), under(p, "/booking"):
		if user == nil {
			return Decision{Outcome: RedirectToLogin, Location: loginWithReturn(p)}
		}
	case under(p, "/auth"):
		if user != nil {
			return Decision{Outcome: RedirectToRoleHome, Location: authctl.RoleHome(user.Role)}
		}
	}
	return Decision{Outcome: Allowed}
}

// Middleware applies Evaluate to every request. resolve must return a loaded
// state; a Deferred decision is answered with 503.
func Middleware(resolve func(*http.Request) authctl.State) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Evaluate(r.URL.Path, resolve(r))
			switch d.Outcome {
			case Allowed:
				next.ServeHTTP(w, r)
			case Deferred:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "session loading", http.StatusServiceUnavailable)
			default:
				logger.DebugContext(r.Context(), "Route guard redirect",
					"path", r.URL.Path,
					"outcome", d.Outcome.String(),
					"location", d.Location,
				)
				http.Redirect(w, r, d.Location, http.StatusSeeOther)
			}
		})
	}
}

// SafeRedirect returns target when it is a local absolute path, else
// fallback. It keeps ?redirect= from sending users off-site.
func SafeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	return target
}

func under(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func clean(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func loginWithReturn(p string) string {
	return LoginPath + "?redirect=" + url.QueryEscape(p)
}
