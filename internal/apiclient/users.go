package apiclient

import (
	"context"
	"net/http"

	"github.com/justsurfingit/jobify/internal/dtos"
	"github.com/justsurfingit/jobify/internal/models"
)

// CurrentUser fetches GET /users/current-user. A 401 here means there is no session.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	if err := c.Get(ctx, "/users/current-user", &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) Register(ctx context.Context, req dtos.RegisterRequest) error {
	return c.Do(ctx, http.MethodPost, "/auth/register", req, nil)
}

// Login stores the session cookie returned by the API in the client's jar.
func (c *Client) Login(ctx context.Context, req dtos.LoginRequest) error {
	return c.Do(ctx, http.MethodPost, "/auth/login", req, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.Get(ctx, "/auth/logout", nil)
}

// UpdateUser sends PATCH /users/update-user with the multipart profile form.
func (c *Client) UpdateUser(ctx context.Context, form *Multipart) error {
	return c.Do(ctx, http.MethodPatch, "/users/update-user", form, nil)
}

// AppStats fetches the admin-only GET /users/admin/app-stats.
func (c *Client) AppStats(ctx context.Context) (*models.AppStats, error) {
	var stats models.AppStats
	if err := c.Get(ctx, "/users/admin/app-stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
