package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justsurfingit/jobify/internal/apiclient"
	"github.com/justsurfingit/jobify/internal/querycache"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recorder struct {
	mu          sync.Mutex
	transitions []Transition
}

func (r *recorder) observe(t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
}

func (r *recorder) final() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.transitions) == 0 {
		return Idle
	}
	return r.transitions[len(r.transitions)-1].To
}

func newTestBinder(t *testing.T, routes ...Route) (*gin.Engine, *Binder, *recorder) {
	t.Helper()

	cache, err := querycache.New()
	require.NoError(t, err)

	rec := &recorder{}
	engine := gin.New()
	b := New(engine, cache, WithObserver(rec.observe))
	b.Mount(routes...)
	return engine, b, rec
}

func serve(engine *gin.Engine, method, target string, form url.Values) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}

	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodePage(t *testing.T, w *httptest.ResponseRecorder) Page {
	t.Helper()

	var p Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func TestBinder_NestedLoadersRunParentFirst(t *testing.T) {
	t.Parallel()

	var order []string
	engine, _, rec := newTestBinder(t, Route{
		ID:   "dashboard",
		Path: "/dashboard",
		Loader: func(c *Context) (any, error) {
			order = append(order, "dashboard")
			return "user", nil
		},
		Children: []Route{{
			ID:   "job",
			Path: "view-job/:id",
			Loader: func(c *Context) (any, error) {
				order = append(order, "job")
				return "job " + c.Param("id"), nil
			},
		}},
	})

	w := serve(engine, http.MethodGet, "/dashboard/view-job/7", nil)
	require.Equal(t, http.StatusOK, w.Code)

	page := decodePage(t, w)
	assert.Equal(t, []string{"dashboard", "job"}, order)
	assert.Equal(t, "user", page.Data["dashboard"])
	assert.Equal(t, "job 7", page.Data["job"])
	assert.Equal(t, "/dashboard/view-job/:id", page.Route)
	assert.Equal(t, Settled, rec.final())
}

func TestBinder_RedirectBeforeRender(t *testing.T) {
	t.Parallel()

	childRan := false
	engine, _, rec := newTestBinder(t, Route{
		Path: "/dashboard",
		Loader: func(*Context) (any, error) {
			return nil, Redirect("/")
		},
		Children: []Route{{
			Path: "stats",
			Loader: func(*Context) (any, error) {
				childRan = true
				return nil, nil
			},
		}},
	})

	w := serve(engine, http.MethodGet, "/dashboard/stats", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.False(t, childRan)
	assert.Equal(t, Redirected, rec.final())
}

func TestBinder_UnauthorizedBecomesLandingRedirect(t *testing.T) {
	t.Parallel()

	boundaryCalled := false
	engine, _, rec := newTestBinder(t, Route{
		Path: "/dashboard/stats",
		Loader: func(*Context) (any, error) {
			return nil, &apiclient.HTTPError{Status: http.StatusUnauthorized}
		},
		ErrorBoundary: func(*Context, error) { boundaryCalled = true },
	})

	w := serve(engine, http.MethodGet, "/dashboard/stats", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.False(t, boundaryCalled)
	assert.Equal(t, Redirected, rec.final())
}

func TestBinder_ErrorGoesToNearestBoundary(t *testing.T) {
	t.Parallel()

	var got error
	engine, _, rec := newTestBinder(t, Route{
		ID:     "dashboard",
		Path:   "/dashboard",
		Loader: func(*Context) (any, error) { return "user", nil },
		ErrorBoundary: func(c *Context, err error) {
			c.Gin.JSON(http.StatusTeapot, gin.H{"boundary": "dashboard"})
		},
		Children: []Route{{
			ID:   "stats",
			Path: "stats",
			Loader: func(*Context) (any, error) {
				return nil, &apiclient.HTTPError{Status: http.StatusBadGateway, Message: "upstream down"}
			},
			ErrorBoundary: func(c *Context, err error) {
				got = err
				assert.Equal(t, "stats", c.RouteID)
				DefaultBoundary(c, err)
			},
		}},
	})

	w := serve(engine, http.MethodGet, "/dashboard/stats", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"upstream down"}`, w.Body.String())
	assert.Equal(t, http.StatusBadGateway, apiclient.StatusCode(got))
	assert.Equal(t, Errored, rec.final())
}

func TestBinder_ParentBoundaryCatchesChildError(t *testing.T) {
	t.Parallel()

	engine, _, _ := newTestBinder(t, Route{
		ID:   "dashboard",
		Path: "/dashboard",
		ErrorBoundary: func(c *Context, err error) {
			c.Gin.JSON(http.StatusInternalServerError, gin.H{"boundary": c.RouteID})
		},
		Children: []Route{{
			Path:   "all-jobs",
			Loader: func(*Context) (any, error) { return nil, errors.New("boom") },
		}},
	})

	w := serve(engine, http.MethodGet, "/dashboard/all-jobs", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"boundary":"dashboard"}`, w.Body.String())
}

func TestBinder_ActionRedirect(t *testing.T) {
	t.Parallel()

	engine, _, rec := newTestBinder(t, Route{
		Path:       "/dashboard/delete-job/:id",
		ActionOnly: true,
		Action: func(c *Context) (any, error) {
			return nil, Redirect("/dashboard/all-jobs")
		},
	})

	w := serve(engine, http.MethodPost, "/dashboard/delete-job/3", url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard/all-jobs", w.Header().Get("Location"))
	assert.Equal(t, Redirected, rec.final())

	w = serve(engine, http.MethodGet, "/dashboard/delete-job/3", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type jobForm struct {
	Company  string `form:"company" binding:"required"`
	Position string `form:"position" binding:"required"`
}

func TestBinder_ActionValidationRendersInline(t *testing.T) {
	t.Parallel()

	loads := 0
	engine, _, _ := newTestBinder(t, Route{
		ID:   "dashboard",
		Path: "/dashboard",
		Loader: func(*Context) (any, error) {
			loads++
			return "user", nil
		},
		Children: []Route{{
			Path: "",
			Action: func(c *Context) (any, error) {
				var form jobForm
				if err := c.Bind(&form); err != nil {
					return nil, err
				}
				return form.Company, nil
			},
		}},
	})

	w := serve(engine, http.MethodPost, "/dashboard", url.Values{"company": {"Acme"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	page := decodePage(t, w)
	assert.Equal(t, map[string]string{"position": "is required"}, page.Errors)
	assert.Equal(t, "user", page.Data["dashboard"])

	w = serve(engine, http.MethodPost, "/dashboard", url.Values{"company": {"Acme"}, "position": {"Go dev"}})
	require.Equal(t, http.StatusOK, w.Code)
	page = decodePage(t, w)
	assert.Equal(t, "Acme", page.ActionData)
	assert.Empty(t, page.Errors)
	assert.Equal(t, 2, loads)

	w = serve(engine, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestBinder_NavigateIsConsumedOnce(t *testing.T) {
	t.Parallel()

	engine, b, _ := newTestBinder(t,
		Route{Path: "/"},
		Route{Path: "/dashboard/stats", Loader: func(*Context) (any, error) { return "stats", nil }},
	)

	b.Navigate("/")

	w := serve(engine, http.MethodGet, "/dashboard/stats", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = serve(engine, http.MethodGet, "/dashboard/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBinder_NavigateDuringLoader(t *testing.T) {
	t.Parallel()

	var b *Binder
	engine, b, _ := newTestBinder(t, Route{
		Path: "/dashboard/stats",
		Loader: func(*Context) (any, error) {
			b.Navigate("/")
			return "stats", nil
		},
	})

	w := serve(engine, http.MethodGet, "/dashboard/stats", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestBinder_NavigateToCurrentPathRenders(t *testing.T) {
	t.Parallel()

	engine, b, _ := newTestBinder(t, Route{Path: "/", Loader: func(*Context) (any, error) { return "landing", nil }})

	b.Navigate("/")
	w := serve(engine, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJoinPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		parent, path, want string
	}{
		{"", "/", "/"},
		{"/", "", "/"},
		{"/", "register", "/register"},
		{"/", "/login", "/login"},
		{"/dashboard", "edit-job/:id", "/dashboard/edit-job/:id"},
		{"/dashboard", "", "/dashboard"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, joinPath(tt.parent, tt.path), "%q + %q", tt.parent, tt.path)
	}
}

func TestBinder_PendingNavigateOverridesRedirect(t *testing.T) {
	t.Parallel()

	var b *Binder
	engine, b, _ := newTestBinder(t, Route{
		Path:       "/dashboard/logout",
		ActionOnly: true,
		Action: func(*Context) (any, error) {
			b.Navigate("/")
			return nil, Redirect("/dashboard")
		},
	})

	w := serve(engine, http.MethodPost, "/dashboard/logout", url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestBinder_CancelNavigation(t *testing.T) {
	t.Parallel()

	engine, b, _ := newTestBinder(t, Route{Path: "/dashboard", Loader: func(*Context) (any, error) { return "user", nil }})

	b.Navigate("/")
	b.CancelNavigation()

	w := serve(engine, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
