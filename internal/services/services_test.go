package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justsurfingit/jobify/internal/apiclient"
	"github.com/justsurfingit/jobify/internal/dtos"
	"github.com/justsurfingit/jobify/internal/models"
	"github.com/justsurfingit/jobify/internal/querycache"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestServices(t *testing.T, mux *http.ServeMux) (*JobService, *UserService, *querycache.Cache) {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(srv.URL + "/api/v1")
	require.NoError(t, err)
	cache, err := querycache.New()
	require.NoError(t, err)

	return NewJobService(client, cache), NewUserService(client, cache), cache
}

func TestJobsKey_EqualFiltersShareEntry(t *testing.T) {
	t.Parallel()

	a := JobsKey(dtos.JobFilters{Search: "go", Page: 2})
	b := JobsKey(dtos.JobFilters{Search: "go", Page: 2})
	c := JobsKey(dtos.JobFilters{Search: "go"})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestUpdateJob_SeedsJobAndInvalidatesLists(t *testing.T) {
	t.Parallel()

	var gets atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/jobs/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.Stats{})
	})
	mux.HandleFunc("GET /api/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"job": models.Job{ID: r.PathValue("id"), Company: "Acme"}})
	})
	mux.HandleFunc("PATCH /api/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		var req dtos.JobRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(w, http.StatusOK, map[string]any{"job": models.Job{ID: r.PathValue("id"), Company: req.Company}})
	})

	jobs, _, cache := newTestServices(t, mux)
	ctx := context.Background()

	_, err := jobs.Stats(ctx)
	require.NoError(t, err)
	_, err = jobs.Job(ctx, "7")
	require.NoError(t, err)

	_, err = jobs.UpdateJob(ctx, "7", dtos.JobRequest{Company: "Globex", Position: "SRE", JobLocation: "Remote"})
	require.NoError(t, err)

	stats, ok := cache.Snapshot(StatsKey)
	require.True(t, ok)
	assert.Equal(t, querycache.Stale, stats.State)

	job, err := jobs.Job(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "Globex", job.Company)
	assert.EqualValues(t, 1, gets.Load())
}

func TestLogin_InvalidatesEverything(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/jobs/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.Stats{})
	})
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"msg": "user logged in"})
	})

	jobs, users, cache := newTestServices(t, mux)
	ctx := context.Background()

	_, err := jobs.Stats(ctx)
	require.NoError(t, err)

	require.NoError(t, users.Login(ctx, dtos.LoginRequest{Email: "ann@example.com", Password: "secret1234"}))

	e, ok := cache.Snapshot(StatsKey)
	require.True(t, ok)
	assert.Equal(t, querycache.Stale, e.State)
}

func TestDeleteJob_FailureKeepsCache(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"job": models.Job{ID: r.PathValue("id")}})
	})
	mux.HandleFunc("DELETE /api/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"msg": "not authorized to access this route"})
	})

	jobs, _, cache := newTestServices(t, mux)
	ctx := context.Background()

	_, err := jobs.Job(ctx, "7")
	require.NoError(t, err)

	err = jobs.DeleteJob(ctx, "7")
	assert.Equal(t, http.StatusForbidden, apiclient.StatusCode(err))

	e, ok := cache.Snapshot(JobKey("7"))
	require.True(t, ok)
	assert.Equal(t, querycache.Fresh, e.State)
}
