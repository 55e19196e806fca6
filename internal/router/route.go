package router

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobify/internal/querycache"
)

// Loader runs before a route renders. It returns the route's data or a RedirectSignal.
type Loader func(*Context) (any, error)

// Action runs when a form is posted to a route. It performs a mutation and returns a
// result to render, or a RedirectSignal.
type Action func(*Context) (any, error)

// ErrorBoundary renders a failed navigation for the routes below it.
type ErrorBoundary func(*Context, error)

// Route binds a path to its data functions. Routes are mounted once and never changed.
type Route struct {
	// ID names the route's entry in the rendered data. Defaults to the full path.
	ID string

	// Path is joined to the parent's path unless it starts with "/". An empty path
	// makes the route its parent's index.
	Path string

	Loader        Loader
	Action        Action
	ErrorBoundary ErrorBoundary

	// ActionOnly routes accept submissions but have nothing to render.
	ActionOnly bool

	Children []Route
}

// Context is passed to every loader, action and error boundary of one navigation.
type Context struct {
	Gin   *gin.Context
	Cache *querycache.Cache

	// RouteID is the route whose function is running.
	RouteID string
}

// Context returns the request's context.
func (c *Context) Context() context.Context {
	return c.Gin.Request.Context()
}

// Param returns a path parameter such as ":id".
func (c *Context) Param(name string) string {
	return c.Gin.Param(name)
}

// Bind decodes the submitted form into obj and validates it.
// Failures are returned as *ValidationError.
func (c *Context) Bind(obj any) error {
	if err := c.Gin.ShouldBind(obj); err != nil {
		return validationError(err)
	}
	return nil
}

// BindQuery decodes the URL query into obj and validates it.
func (c *Context) BindQuery(obj any) error {
	if err := c.Gin.ShouldBindQuery(obj); err != nil {
		return validationError(err)
	}
	return nil
}
