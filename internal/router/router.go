// Package router binds paths to loaders and actions on a gin engine. A GET runs the
// loaders of the matched route chain before anything renders; a POST runs the route's
// action and then its loaders again.
package router

import (
	"errors"
	"log"
	"net/http"
	"path"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobify/internal/apiclient"
	"github.com/justsurfingit/jobify/internal/querycache"
)

// Page is what a settled navigation renders.
type Page struct {
	Path       string            `json:"path"`
	Route      string            `json:"route"`
	Data       map[string]any    `json:"data"`
	ActionData any               `json:"actionData,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// Renderer writes a page. The default renders it as JSON.
type Renderer func(gc *gin.Context, status int, page Page)

// Binder owns the route table of one engine. It is also the navigator the session
// guard uses to send the user to a public path.
type Binder struct {
	engine *gin.Engine
	cache  *querycache.Cache
	op     options

	// forced is a pending navigation requested through Navigate.
	forced atomic.Pointer[string]
}

// Option is a function for configuring a Binder.
type Option func(*options)

type options struct {
	landingPath string
	observers   []Observer
	boundary    ErrorBoundary
	render      Renderer
}

// WithLandingPath sets the public path unauthenticated navigations end on. Default "/".
func WithLandingPath(p string) Option {
	return func(o *options) {
		o.landingPath = p
	}
}

// WithObserver adds an observer of navigation state changes.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs)
	}
}

// WithDefaultBoundary replaces the boundary used when no route in the chain has one.
func WithDefaultBoundary(b ErrorBoundary) Option {
	return func(o *options) {
		o.boundary = b
	}
}

// WithRenderer replaces the JSON page renderer.
func WithRenderer(r Renderer) Option {
	return func(o *options) {
		o.render = r
	}
}

// New creates a Binder for engine. Loaders and actions reach cache through their Context.
func New(engine *gin.Engine, cache *querycache.Cache, opts ...Option) *Binder {
	op := options{
		landingPath: "/",
		boundary:    DefaultBoundary,
		render: func(gc *gin.Context, status int, page Page) {
			gc.JSON(status, page)
		},
	}
	for _, opt := range opts {
		opt(&op)
	}

	return &Binder{engine: engine, cache: cache, op: op}
}

// DefaultBoundary renders {"error": message} with the failure's HTTP status, or 500.
// A ValidationError from a loader renders 400 with its fields.
func DefaultBoundary(c *Context, err error) {
	var invalid *ValidationError
	if errors.As(err, &invalid) {
		c.Gin.JSON(http.StatusBadRequest, gin.H{"error": invalid.Error(), "errors": invalid.Fields})
		return
	}

	status := apiclient.StatusCode(err)
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.Gin.JSON(status, gin.H{"error": apiclient.UserMessage(err)})
}

// Navigate makes the next navigation end on p. It is consumed once, and a redirect
// issued while it is pending goes to p instead.
func (b *Binder) Navigate(p string) {
	b.forced.Store(&p)
}

// CancelNavigation drops a pending Navigate.
func (b *Binder) CancelNavigation() {
	b.forced.Store(nil)
}

// Mount registers routes and their children on the engine.
func (b *Binder) Mount(routes ...Route) {
	for i := range routes {
		b.mount("", nil, &routes[i])
	}
}

func (b *Binder) mount(parentPath string, parents []*Route, r *Route) {
	full := joinPath(parentPath, r.Path)
	if r.ID == "" {
		r.ID = full
		if r.Path == "" && len(parents) > 0 {
			r.ID += "#index"
		}
	}

	chain := make([]*Route, 0, len(parents)+1)
	chain = append(chain, parents...)
	chain = append(chain, r)

	hasIndex := false
	for i := range r.Children {
		if r.Children[i].Path == "" {
			hasIndex = true
		}
		b.mount(full, chain, &r.Children[i])
	}

	// The index child serves its parent's path.
	if hasIndex {
		return
	}

	if !r.ActionOnly {
		b.engine.GET(full, b.navigate(full, chain))
	}
	if r.Action != nil {
		b.engine.POST(full, b.submit(full, chain))
	}
}

func (b *Binder) navigate(full string, chain []*Route) gin.HandlerFunc {
	return func(gc *gin.Context) {
		nav := b.begin(gc)

		if b.followForced(gc, nav) {
			return
		}

		data, failed, err := b.load(gc, chain)
		if err != nil {
			b.fail(gc, nav, chain, failed, err, http.StatusFound)
			return
		}

		if b.followForced(gc, nav) {
			return
		}

		nav.move(Settled, "", nil)
		b.op.render(gc, http.StatusOK, Page{Path: gc.Request.URL.Path, Route: full, Data: data})
	}
}

func (b *Binder) submit(full string, chain []*Route) gin.HandlerFunc {
	leaf := chain[len(chain)-1]

	return func(gc *gin.Context) {
		nav := b.begin(gc)

		if b.followForced(gc, nav) {
			return
		}

		result, err := leaf.Action(b.context(gc, leaf))

		var invalid *ValidationError
		if err != nil && !errors.As(err, &invalid) {
			b.fail(gc, nav, chain, len(chain)-1, err, http.StatusSeeOther)
			return
		}

		// Revalidate: the page is rendered from what the loaders return after the mutation.
		data, failed, loadErr := b.load(gc, chain)
		if loadErr != nil {
			b.fail(gc, nav, chain, failed, loadErr, http.StatusSeeOther)
			return
		}

		if b.followForced(gc, nav) {
			return
		}

		page := Page{Path: gc.Request.URL.Path, Route: full, Data: data}
		if invalid != nil {
			nav.move(Errored, "", invalid)
			page.Errors = invalid.Fields
			b.op.render(gc, http.StatusBadRequest, page)
			return
		}

		nav.move(Settled, "", nil)
		page.ActionData = result
		b.op.render(gc, http.StatusOK, page)
	}
}

func (b *Binder) begin(gc *gin.Context) *navigation {
	nav := &navigation{
		method:    gc.Request.Method,
		path:      gc.Request.URL.Path,
		observers: b.op.observers,
	}
	nav.move(Loading, "", nil)
	return nav
}

// load runs the chain's loaders parent first. On failure it returns the index of the
// route whose loader failed.
func (b *Binder) load(gc *gin.Context, chain []*Route) (map[string]any, int, error) {
	data := make(map[string]any, len(chain))
	for i, r := range chain {
		if r.Loader == nil {
			continue
		}
		v, err := r.Loader(b.context(gc, r))
		if err != nil {
			return nil, i, err
		}
		data[r.ID] = v
	}
	return data, 0, nil
}

// fail ends a navigation that returned err: redirects are followed, a 401 becomes a
// redirect to the landing path, anything else goes to the nearest error boundary at or
// above chain[failed].
func (b *Binder) fail(gc *gin.Context, nav *navigation, chain []*Route, failed int, err error, redirectStatus int) {
	var redirect *RedirectSignal
	switch {
	case errors.As(err, &redirect):
		b.redirect(gc, nav, redirect.Location, redirectStatus)
		return
	case apiclient.IsUnauthorized(err):
		b.redirect(gc, nav, b.op.landingPath, redirectStatus)
		return
	}

	nav.move(Errored, "", err)
	log.Printf("[router] %s %s failed: %v", gc.Request.Method, gc.Request.URL.Path, err)

	boundary, owner := b.op.boundary, chain[failed]
	for i := failed; i >= 0; i-- {
		if chain[i].ErrorBoundary != nil {
			boundary, owner = chain[i].ErrorBoundary, chain[i]
			break
		}
	}
	boundary(b.context(gc, owner), err)
}

// followForced applies a pending Navigate unless it points at the current path.
func (b *Binder) followForced(gc *gin.Context, nav *navigation) bool {
	p := b.forced.Swap(nil)
	if p == nil || *p == gc.Request.URL.Path {
		return false
	}

	status := http.StatusFound
	if gc.Request.Method != http.MethodGet {
		status = http.StatusSeeOther
	}
	b.redirect(gc, nav, *p, status)
	return true
}

func (b *Binder) redirect(gc *gin.Context, nav *navigation, location string, status int) {
	if p := b.forced.Swap(nil); p != nil {
		location = *p
	}
	nav.move(Redirected, location, nil)
	gc.Redirect(status, location)
	gc.Abort()
}

func (b *Binder) context(gc *gin.Context, r *Route) *Context {
	return &Context{Gin: gc, Cache: b.cache, RouteID: r.ID}
}

func joinPath(parent, p string) string {
	switch {
	case p == "":
		if parent == "" {
			return "/"
		}
		return parent
	case strings.HasPrefix(p, "/"):
		return p
	default:
		return path.Join(parent, p)
	}
}
