package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobify/internal/apiclient"
	"github.com/justsurfingit/jobify/internal/dtos"
	"github.com/justsurfingit/jobify/internal/router"
)

// addJobAction is the dashboard index form.
func (a *App) addJobAction(c *router.Context) (any, error) {
	var req dtos.JobRequest
	if err := c.Bind(&req); err != nil {
		return nil, err
	}
	if _, err := a.Jobs.CreateJob(c.Context(), req); err != nil {
		return a.actionFailed(err)
	}

	a.Notices.Success("Job added successfully")
	return nil, router.Redirect(AllJobsPath)
}

func (a *App) statsLoader(c *router.Context) (any, error) {
	return a.Jobs.Stats(c.Context())
}

// allJobsLoader reads the filters from the query string. Each filter set is cached
// on its own.
func (a *App) allJobsLoader(c *router.Context) (any, error) {
	var filters dtos.JobFilters
	if err := c.BindQuery(&filters); err != nil {
		return nil, err
	}

	page, err := a.Jobs.Jobs(c.Context(), filters)
	if err != nil {
		return nil, err
	}
	return gin.H{"jobs": page, "searchValues": filters}, nil
}

// jobLoader serves the edit, view and confirm-delete pages. A job that cannot be
// loaded sends the user back to the list.
func (a *App) jobLoader(c *router.Context) (any, error) {
	job, err := a.Jobs.Job(c.Context(), c.Param("id"))
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			return nil, err
		}
		logAction(c.RouteID, err)
		a.Notices.Error(apiclient.UserMessage(err))
		return nil, router.Redirect(AllJobsPath)
	}
	return job, nil
}

func (a *App) editJobAction(c *router.Context) (any, error) {
	var req dtos.JobRequest
	if err := c.Bind(&req); err != nil {
		return nil, err
	}
	if _, err := a.Jobs.UpdateJob(c.Context(), c.Param("id"), req); err != nil {
		return a.actionFailed(err)
	}

	a.Notices.Success("Job edited successfully")
	return nil, router.Redirect(AllJobsPath)
}

// deleteJobAction always ends on the job list; a failed delete only leaves a notice.
func (a *App) deleteJobAction(c *router.Context) (any, error) {
	err := a.Jobs.DeleteJob(c.Context(), c.Param("id"))
	switch {
	case err == nil:
		a.Notices.Success("Job deleted successfully")
	case apiclient.IsUnauthorized(err):
		return nil, err
	default:
		logAction(c.RouteID, err)
		a.Notices.Error(apiclient.UserMessage(err))
	}
	return nil, router.Redirect(AllJobsPath)
}
