// Package session logs the user out when the API reports that the session is gone.
package session

import (
	"context"
	"log"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/justsurfingit/jobify/internal/apiclient"
	"github.com/justsurfingit/jobify/internal/querycache"
)

// State of the session as far as the guard knows.
type State int32

const (
	Authenticated State = iota
	LoggingOut
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case LoggingOut:
		return "logging-out"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Reason tells listeners why a logout happened.
type Reason int

const (
	// Expired means the API answered 401.
	Expired Reason = iota
	// Requested means the user logged out.
	Requested
)

// authPathPrefix holds login, register and logout.
const authPathPrefix = "/auth/"

// Navigator moves the user to another path.
type Navigator interface {
	Navigate(path string)
	// CancelNavigation drops a navigation requested by Navigate that has not happened yet.
	CancelNavigation()
}

// LogoutNotifier tells the API the session is over.
type LogoutNotifier interface {
	Logout(ctx context.Context) error
}

// Invalidator marks cached entries stale.
type Invalidator interface {
	Invalidate(prefix querycache.Key) int
}

// AuthSource reports 401 responses.
type AuthSource interface {
	OnAuthFailure(fn func(apiclient.AuthFailure)) (unsubscribe func())
}

// Guard runs the logout sequence once per lost session.
type Guard struct {
	nav    Navigator
	server LogoutNotifier
	cache  Invalidator
	op     options

	state atomic.Int32

	mu          sync.Mutex
	listeners   []func(Reason)
	unsubscribe func()
}

// Option is a function for configuring a Guard.
type Option func(*options)

type options struct {
	landingPath   string
	logoutTimeout time.Duration
}

// WithLandingPath sets where a logout sends the user. Default "/".
func WithLandingPath(p string) Option {
	return func(o *options) {
		o.landingPath = p
	}
}

// WithLogoutTimeout bounds the call telling the API about the logout. Default 10s.
func WithLogoutTimeout(d time.Duration) Option {
	return func(o *options) {
		o.logoutTimeout = d
	}
}

// New creates a Guard in the Authenticated state.
func New(nav Navigator, server LogoutNotifier, cache Invalidator, opts ...Option) *Guard {
	op := options{landingPath: "/", logoutTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&op)
	}

	return &Guard{nav: nav, server: server, cache: cache, op: op}
}

// Attach subscribes the guard to src. Calling it again does nothing until Detach.
func (g *Guard) Attach(src AuthSource) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.unsubscribe != nil {
		return
	}
	g.unsubscribe = src.OnAuthFailure(g.handleAuthFailure)
}

// Detach removes the subscription made by Attach.
func (g *Guard) Detach() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
}

// OnLoggedOut registers fn to run after every completed logout sequence.
func (g *Guard) OnLoggedOut(fn func(Reason)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

func (g *Guard) State() State {
	return State(g.state.Load())
}

// MarkAuthenticated re-arms the guard after a successful login. A landing navigation
// left over from the previous session is dropped.
func (g *Guard) MarkAuthenticated() {
	g.nav.CancelNavigation()
	g.state.Store(int32(Authenticated))
}

// Logout runs the logout sequence for a user who asked to leave. The returned error is
// the API's answer to the logout call; the sequence completes regardless.
func (g *Guard) Logout(ctx context.Context) error {
	if State(g.state.Swap(int32(LoggingOut))) == LoggingOut {
		return nil
	}
	return g.logout(ctx, Requested)
}

// handleAuthFailure starts the sequence on the first 401 seen while authenticated.
// 401s that arrive while it runs, or after it, are absorbed. A 401 from the auth
// endpoints means rejected credentials, not a lost session.
func (g *Guard) handleAuthFailure(ev apiclient.AuthFailure) {
	if strings.HasPrefix(ev.Path, authPathPrefix) {
		return
	}
	if !g.state.CompareAndSwap(int32(Authenticated), int32(LoggingOut)) {
		return
	}

	log.Printf("[session] %s %s answered %d (request %s), logging out", ev.Method, ev.Path, ev.Status, ev.RequestID)
	_ = g.logout(context.Background(), Expired)
}

// logout navigates away first so no authenticated view is rendered half-broken, then
// tells the API, then invalidates everything cached. Only the API call may fail.
func (g *Guard) logout(ctx context.Context, reason Reason) error {
	g.nav.Navigate(g.op.landingPath)

	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.op.logoutTimeout)
	defer cancel()

	err := g.server.Logout(lctx)
	if err != nil {
		log.Printf("[session] logout call failed: %v", err)
	}

	n := g.cache.Invalidate(nil)
	// A login that completed meanwhile keeps its Authenticated state.
	g.state.CompareAndSwap(int32(LoggingOut), int32(Unauthenticated))
	log.Printf("[session] logged out, %d cached entries invalidated", n)

	g.mu.Lock()
	listeners := slices.Clone(g.listeners)
	g.mu.Unlock()

	for _, fn := range listeners {
		fn(reason)
	}
	return err
}
