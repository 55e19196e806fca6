package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobify/internal/apiclient"
	"github.com/justsurfingit/jobify/internal/dtos"
	"github.com/justsurfingit/jobify/internal/router"
)

func (a *App) registerAction(c *router.Context) (any, error) {
	var req dtos.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return nil, err
	}
	if err := a.Users.Register(c.Context(), req); err != nil {
		return a.credentialsFailed(err)
	}

	a.Notices.Success("Registration successful")
	return nil, router.Redirect(LoginPath)
}

func (a *App) loginAction(c *router.Context) (any, error) {
	var req dtos.LoginRequest
	if err := c.Bind(&req); err != nil {
		return nil, err
	}
	if err := a.Users.Login(c.Context(), req); err != nil {
		return a.credentialsFailed(err)
	}

	a.Guard.MarkAuthenticated()
	a.Notices.Success("Login successful")
	return nil, router.Redirect(DashboardPath)
}

// dashboardLoader gates the whole dashboard: without a user there is nothing to show.
func (a *App) dashboardLoader(c *router.Context) (any, error) {
	user, err := a.Users.CurrentUser(c.Context())
	if err != nil {
		return nil, router.Redirect(LandingPath)
	}
	return user, nil
}

func (a *App) profileAction(c *router.Context) (any, error) {
	var req dtos.ProfileRequest
	if err := c.Bind(&req); err != nil {
		return nil, err
	}
	if req.Avatar != nil && req.Avatar.Size > dtos.MaxAvatarSize {
		a.Notices.Error("Image size too large")
		return nil, router.Invalid("avatar", "must be at most 0.5 MB")
	}
	if err := a.Users.UpdateProfile(c.Context(), req); err != nil {
		return a.actionFailed(err)
	}

	a.Notices.Success("Profile updated successfully")
	return gin.H{"updated": true}, nil
}

// adminLoader sends anyone who is not an admin back to the dashboard.
func (a *App) adminLoader(c *router.Context) (any, error) {
	stats, err := a.Users.AppStats(c.Context())
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			return nil, err
		}
		logAction(c.RouteID, err)
		a.Notices.Error("You are not authorized to view this page")
		return nil, router.Redirect(DashboardPath)
	}
	return stats, nil
}

func (a *App) toggleThemeAction(c *router.Context) (any, error) {
	on, err := a.Theme.Toggle(c.Context())
	if err != nil {
		return nil, err
	}
	a.darkTheme.Store(on)
	return gin.H{"darkTheme": on}, nil
}

// logoutAction runs the same sequence as an expired session, with a friendlier notice.
func (a *App) logoutAction(c *router.Context) (any, error) {
	if err := a.Guard.Logout(c.Context()); err != nil {
		logAction(c.RouteID, err)
	}
	return nil, router.Redirect(LandingPath)
}
