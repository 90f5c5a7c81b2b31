// Package nav implements the client-side route table and its access
// policy. Routes can demand a signed-in user or, for the login and
// register screens, demand a guest.
package nav

import (
	"net/url"
	"strings"
	"sync"
)

const (
	DefaultLoginPath = "/login"
	DefaultHomePath  = "/"
)

// Route is one entry in the route table. Path segments starting with ':'
// match any single segment.
type Route struct {
	Path          string
	Name          string
	RequiresAuth  bool
	RequiresGuest bool
}

type Routes []Route

// DefaultRoutes is the storefront route table.
func DefaultRoutes() Routes {
	return Routes{
		{Path: "/", Name: "home"},
		{Path: "/catalog", Name: "catalog"},
		{Path: "/products/:id", Name: "product"},
		{Path: "/cart", Name: "cart"},
		{Path: "/orders", Name: "orders", RequiresAuth: true},
		{Path: "/orders/:id", Name: "order-detail", RequiresAuth: true},
		{Path: "/login", Name: "login", RequiresGuest: true},
		{Path: "/register", Name: "register", RequiresGuest: true},
		{Path: "/profile", Name: "profile", RequiresAuth: true},
	}
}

// Match finds the route for a path. Unknown paths report false and carry
// no requirements.
func (rs Routes) Match(path string) (Route, bool) {
	clean := path
	if i := strings.IndexByte(clean, '?'); i >= 0 {
		clean = clean[:i]
	}
	clean = strings.TrimSuffix(clean, "/")
	if clean == "" {
		clean = "/"
	}
	for _, r := range rs {
		if matchPattern(r.Path, clean) {
			return r, true
		}
	}
	return Route{}, false
}

func matchPattern(pattern, path string) bool {
	if pattern == path {
		return true
	}
	pSegs := strings.Split(strings.Trim(pattern, "/"), "/")
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(pSegs) != len(segs) {
		return false
	}
	for i, p := range pSegs {
		if strings.HasPrefix(p, ":") {
			continue
		}
		if p != segs[i] {
			return false
		}
	}
	return true
}

// Auth answers whether a user is currently signed in.
type Auth interface {
	IsAuthenticated() bool
}

// Decision is the outcome of evaluating a navigation attempt.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Guard evaluates navigation attempts against the route table. Auth-only
// routes bounce guests to the login screen with the intended destination in
// the redirect parameter; guest-only routes bounce signed-in users home.
type Guard struct {
	routes    Routes
	auth      Auth
	loginPath string
	homePath  string
}

func NewGuard(routes Routes, auth Auth) *Guard {
	return &Guard{
		routes:    routes,
		auth:      auth,
		loginPath: DefaultLoginPath,
		homePath:  DefaultHomePath,
	}
}

func (g *Guard) Decide(path string) Decision {
	route, ok := g.routes.Match(path)
	if !ok {
		return Decision{Allow: true}
	}
	authed := g.auth.IsAuthenticated()
	if route.RequiresAuth && !authed {
		q := url.Values{}
		q.Set("redirect", path)
		return Decision{RedirectTo: g.loginPath + "?" + q.Encode()}
	}
	if route.RequiresGuest && authed {
		return Decision{RedirectTo: g.homePath}
	}
	return Decision{Allow: true}
}

// Tracker remembers where the client currently is and routes every move
// through the guard. It is the navigator the transport uses when a session
// dies mid-request.
type Tracker struct {
	mu    sync.Mutex
	path  string
	guard *Guard
}

func NewTracker(guard *Guard) *Tracker {
	return &Tracker{path: DefaultHomePath, guard: guard}
}

func (t *Tracker) CurrentPath() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.path
}

// NavigateTo moves to the path, following the guard's redirect when the
// move is denied.
func (t *Tracker) NavigateTo(path string) {
	target := path
	if t.guard != nil {
		if d := t.guard.Decide(path); !d.Allow {
			target = d.RedirectTo
		}
	}
	t.mu.Lock()
	t.path = target
	t.mu.Unlock()
}
