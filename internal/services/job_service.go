package services

import (
	"context"

	"github.com/justsurfingit/jobify/internal/apiclient"
	"github.com/justsurfingit/jobify/internal/dtos"
	"github.com/justsurfingit/jobify/internal/models"
	"github.com/justsurfingit/jobify/internal/querycache"
)

// Cache keys of job data.
var (
	StatsKey   = querycache.Key{"stats"}
	JobsPrefix = querycache.Key{"jobs"}
)

// JobsKey identifies one filtered job listing.
func JobsKey(filters dtos.JobFilters) querycache.Key {
	return querycache.Key{"jobs", filters}
}

// JobKey identifies a single job.
func JobKey(id string) querycache.Key {
	return querycache.Key{"job", id}
}

type JobService struct {
	API   *apiclient.Client
	Cache *querycache.Cache
}

func NewJobService(api *apiclient.Client, cache *querycache.Cache) *JobService {
	return &JobService{
		API:   api,
		Cache: cache,
	}
}

func (s *JobService) Stats(ctx context.Context, opts ...querycache.QueryOption) (*models.Stats, error) {
	return querycache.Ensure(ctx, s.Cache, StatsKey, s.API.Stats, opts...)
}

func (s *JobService) Jobs(ctx context.Context, filters dtos.JobFilters, opts ...querycache.QueryOption) (*models.JobsPage, error) {
	return querycache.Ensure(ctx, s.Cache, JobsKey(filters), func(ctx context.Context) (*models.JobsPage, error) {
		return s.API.ListJobs(ctx, filters)
	}, opts...)
}

func (s *JobService) Job(ctx context.Context, id string, opts ...querycache.QueryOption) (*models.Job, error) {
	return querycache.Ensure(ctx, s.Cache, JobKey(id), func(ctx context.Context) (*models.Job, error) {
		return s.API.GetJob(ctx, id)
	}, opts...)
}

// CreateJob adds a job. Every listing and the stats are stale afterwards.
func (s *JobService) CreateJob(ctx context.Context, req dtos.JobRequest) (*models.Job, error) {
	job, err := s.API.CreateJob(ctx, req)
	if err != nil {
		return nil, err
	}
	s.jobsChanged()
	return job, nil
}

// UpdateJob edits a job and caches the edited record.
func (s *JobService) UpdateJob(ctx context.Context, id string, req dtos.JobRequest) (*models.Job, error) {
	job, err := s.API.UpdateJob(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.jobsChanged()
	if err := s.Cache.SetData(JobKey(id), job); err != nil {
		s.Cache.Invalidate(JobKey(id))
	}
	return job, nil
}

// DeleteJob removes a job and drops its cached record.
func (s *JobService) DeleteJob(ctx context.Context, id string) error {
	if err := s.API.DeleteJob(ctx, id); err != nil {
		return err
	}
	s.jobsChanged()
	s.Cache.Remove(JobKey(id))
	return nil
}

func (s *JobService) jobsChanged() {
	s.Cache.Invalidate(JobsPrefix)
	s.Cache.Invalidate(StatsKey)
}
