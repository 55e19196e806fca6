package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/justsurfingit/jobify/internal/dtos"
	"github.com/justsurfingit/jobify/internal/models"
)

// Stats fetches GET /jobs/stats.
func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	if err := c.Get(ctx, "/jobs/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListJobs fetches GET /jobs with the given filters.
func (c *Client) ListJobs(ctx context.Context, filters dtos.JobFilters) (*models.JobsPage, error) {
	path := "/jobs"
	if q := filters.Query().Encode(); q != "" {
		path += "?" + q
	}

	var page models.JobsPage
	if err := c.Get(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var out struct {
		Job models.Job `json:"job"`
	}
	if err := c.Get(ctx, jobPath(id), &out); err != nil {
		return nil, err
	}
	return &out.Job, nil
}

func (c *Client) CreateJob(ctx context.Context, req dtos.JobRequest) (*models.Job, error) {
	var out struct {
		Job models.Job `json:"job"`
	}
	if err := c.Do(ctx, http.MethodPost, "/jobs", req, &out); err != nil {
		return nil, err
	}
	return &out.Job, nil
}

func (c *Client) UpdateJob(ctx context.Context, id string, req dtos.JobRequest) (*models.Job, error) {
	var out struct {
		Job models.Job `json:"job"`
	}
	if err := c.Do(ctx, http.MethodPatch, jobPath(id), req, &out); err != nil {
		return nil, err
	}
	return &out.Job, nil
}

func (c *Client) DeleteJob(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, jobPath(id), nil, nil)
}

func jobPath(id string) string {
	return "/jobs/" + url.PathEscape(id)
}
