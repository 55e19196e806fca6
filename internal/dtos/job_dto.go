package dtos

import (
	"net/url"
	"strconv"
)

// JobRequest is the add-job and edit-job form.
type JobRequest struct {
	Company     string `json:"company" form:"company" binding:"required"`
	Position    string `json:"position" form:"position" binding:"required"`
	JobLocation string `json:"jobLocation" form:"jobLocation" binding:"required"`

	// Optional Fields
	JobStatus string `json:"jobStatus,omitempty" form:"jobStatus" binding:"omitempty,oneof=pending interview declined"`
	JobType   string `json:"jobType,omitempty" form:"jobType" binding:"omitempty,oneof=full-time part-time internship"`
}

// JobFilters are the all-jobs search parameters. They are part of the jobs cache key,
// so two equal filter sets share one cache entry.
type JobFilters struct {
	Search    string `json:"search,omitempty" form:"search"`
	JobStatus string `json:"jobStatus,omitempty" form:"jobStatus" binding:"omitempty,oneof=all pending interview declined"`
	JobType   string `json:"jobType,omitempty" form:"jobType" binding:"omitempty,oneof=all full-time part-time internship"`
	Sort      string `json:"sort,omitempty" form:"sort" binding:"omitempty,oneof=newest oldest a-z z-a"`
	Page      int    `json:"page,omitempty" form:"page" binding:"omitempty,min=1"`
}

// Query encodes the filters as API query parameters, skipping empty ones.
func (f JobFilters) Query() url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.JobStatus != "" {
		q.Set("jobStatus", f.JobStatus)
	}
	if f.JobType != "" {
		q.Set("jobType", f.JobType)
	}
	if f.Sort != "" {
		q.Set("sort", f.Sort)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	return q
}
