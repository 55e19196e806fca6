// Package handlers holds the loaders and actions of every page, and the view layer
// that renders them.
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobify/internal/apiclient"
	"github.com/justsurfingit/jobify/internal/models"
	"github.com/justsurfingit/jobify/internal/prefs"
	"github.com/justsurfingit/jobify/internal/querycache"
	"github.com/justsurfingit/jobify/internal/router"
	"github.com/justsurfingit/jobify/internal/services"
	"github.com/justsurfingit/jobify/internal/session"
)

// Paths the actions redirect to.
const (
	LandingPath   = "/"
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
	AllJobsPath   = "/dashboard/all-jobs"
)

type App struct {
	Users   *services.UserService
	Jobs    *services.JobService
	Guard   *session.Guard
	Theme   *prefs.Theme
	Notices *Notifier

	darkTheme atomic.Bool
}

// NewApp creates the page handlers and subscribes them to logouts.
func NewApp(users *services.UserService, jobs *services.JobService, guard *session.Guard, theme *prefs.Theme) *App {
	a := &App{
		Users:   users,
		Jobs:    jobs,
		Guard:   guard,
		Theme:   theme,
		Notices: &Notifier{},
	}
	guard.OnLoggedOut(a.loggedOut)
	return a
}

// LoadTheme reads the saved theme. Call it once at startup.
func (a *App) LoadTheme(ctx context.Context) error {
	on, err := a.Theme.DarkTheme(ctx)
	if err != nil {
		return err
	}
	a.darkTheme.Store(on)
	return nil
}

func (a *App) DarkTheme() bool {
	return a.darkTheme.Load()
}

// Routes returns the page tree.
func (a *App) Routes() []router.Route {
	return []router.Route{{
		ID:            "root",
		Path:          LandingPath,
		ErrorBoundary: a.pageError,
		Children: []router.Route{
			{ID: "landing", Path: ""},
			{ID: "register", Path: "register", Action: a.registerAction},
			{ID: "login", Path: "login", Action: a.loginAction},
			{
				ID:     "dashboard",
				Path:   "dashboard",
				Loader: a.dashboardLoader,
				Children: []router.Route{
					{ID: "add-job", Path: "", Action: a.addJobAction},
					{ID: "stats", Path: "stats", Loader: a.statsLoader, ErrorBoundary: a.sectionError},
					{ID: "all-jobs", Path: "all-jobs", Loader: a.allJobsLoader, ErrorBoundary: a.sectionError},
					{ID: "profile", Path: "profile", Action: a.profileAction},
					{ID: "admin", Path: "admin", Loader: a.adminLoader},
					{ID: "edit-job", Path: "edit-job/:id", Loader: a.jobLoader, Action: a.editJobAction},
					{ID: "delete-job", Path: "delete-job/:id", Action: a.deleteJobAction, ActionOnly: true},
					{ID: "view-job", Path: "view-job/:id", Loader: a.jobLoader},
					{ID: "confirm-delete-job", Path: "confirm-delete-job/:id", Loader: a.jobLoader, Action: a.deleteJobAction},
					{ID: "theme", Path: "theme", Action: a.toggleThemeAction, ActionOnly: true},
					{ID: "logout", Path: "logout", Action: a.logoutAction, ActionOnly: true},
				},
			},
		},
	}}
}

type pageView struct {
	router.Page
	DarkTheme bool         `json:"darkTheme"`
	User      *models.User `json:"user,omitempty"`
	Notices   []Notice     `json:"notices,omitempty"`
}

type errorView struct {
	Error     string            `json:"error"`
	Errors    map[string]string `json:"errors,omitempty"`
	Section   string            `json:"section,omitempty"`
	DarkTheme bool              `json:"darkTheme"`
	Notices   []Notice          `json:"notices,omitempty"`
}

// Render is the router's renderer. Every page carries the theme, the queued notices and
// the cached user for the navbar.
func (a *App) Render(gc *gin.Context, status int, page router.Page) {
	gc.JSON(status, pageView{
		Page:      page,
		DarkTheme: a.DarkTheme(),
		User:      a.navbarUser(gc.Request.Context()),
		Notices:   a.Notices.Drain(),
	})
}

// navbarUser returns the cached user without waiting on the API. A stale user is
// refreshed in the background.
func (a *App) navbarUser(ctx context.Context) *models.User {
	if a.Guard.State() != session.Authenticated {
		return nil
	}
	if e, ok := a.Users.Cache.Snapshot(services.UserKey); !ok || !e.HasData {
		return nil
	}
	user, err := a.Users.CurrentUser(ctx, querycache.Background())
	if err != nil {
		return nil
	}
	return user
}

func (a *App) pageError(c *router.Context, err error) {
	a.renderError(c, err, "")
}

// sectionError keeps a failed dashboard section inside the layout.
func (a *App) sectionError(c *router.Context, err error) {
	a.renderError(c, err, c.RouteID)
}

func (a *App) renderError(c *router.Context, err error, section string) {
	view := errorView{Section: section, DarkTheme: a.DarkTheme(), Notices: a.Notices.Drain()}

	var invalid *router.ValidationError
	if errors.As(err, &invalid) {
		view.Error = invalid.Error()
		view.Errors = invalid.Fields
		c.Gin.JSON(http.StatusBadRequest, view)
		return
	}

	status := apiclient.StatusCode(err)
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	view.Error = apiclient.UserMessage(err)
	c.Gin.JSON(status, view)
}

// actionFailed turns a failed mutation into a notice. A 401 is passed on so the
// navigation ends on the landing page; other client errors show next to the form.
func (a *App) actionFailed(err error) (any, error) {
	if apiclient.IsUnauthorized(err) {
		return nil, err
	}
	var invalid *router.ValidationError
	if errors.As(err, &invalid) {
		return nil, err
	}

	msg := apiclient.UserMessage(err)
	a.Notices.Error(msg)

	status := apiclient.StatusCode(err)
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return nil, router.Invalid("form", msg)
	}
	return nil, err
}

// credentialsFailed is actionFailed for the login and register forms, where a 401
// means the credentials were rejected.
func (a *App) credentialsFailed(err error) (any, error) {
	if apiclient.IsUnauthorized(err) {
		msg := apiclient.UserMessage(err)
		a.Notices.Error(msg)
		return nil, router.Invalid("form", msg)
	}
	return a.actionFailed(err)
}

func (a *App) loggedOut(reason session.Reason) {
	switch reason {
	case session.Expired:
		a.Notices.Error("Your session has expired, please log in again")
	default:
		a.Notices.Success("Logging out...")
	}
}

// HealthCheck is GET /api/v1/health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func logAction(route string, err error) {
	log.Printf("[handlers] %s failed: %v", route, err)
}
