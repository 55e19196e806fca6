package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/justsurfingit/jobify/internal/apiclient"
	"github.com/justsurfingit/jobify/internal/config"
	"github.com/justsurfingit/jobify/internal/database"
	"github.com/justsurfingit/jobify/internal/handlers"
	"github.com/justsurfingit/jobify/internal/prefs"
	"github.com/justsurfingit/jobify/internal/querycache"
	"github.com/justsurfingit/jobify/internal/router"
	"github.com/justsurfingit/jobify/internal/services"
	"github.com/justsurfingit/jobify/internal/session"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	// 1. Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. API client and query cache
	clientOpts := []apiclient.Option{apiclient.WithTimeout(cfg.RequestTimeout)}
	if cfg.APIRateLimit > 0 {
		clientOpts = append(clientOpts, apiclient.WithRateLimit(rate.NewLimiter(rate.Limit(cfg.APIRateLimit), cfg.APIRateBurst)))
	}
	client, err := apiclient.New(cfg.APIBaseURL, clientOpts...)
	if err != nil {
		return err
	}

	cache, err := querycache.New(
		querycache.WithStaleTime(cfg.StaleTime),
		querycache.WithMaxEntries(cfg.CacheMaxEntries),
		querycache.WithRetry(cfg.QueryRetries, cfg.QueryRetryDelay),
		querycache.WithRetryPolicy(apiclient.Retryable),
		querycache.WithFetchTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return err
	}

	// 3. Preference store
	store, err := openPrefs(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// 4. Router, session guard and pages
	r := gin.Default()
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	var app *handlers.App
	binder := router.New(r, cache,
		router.WithRenderer(func(gc *gin.Context, status int, page router.Page) {
			app.Render(gc, status, page)
		}),
		router.WithObserver(logTransition),
	)

	guard := session.New(binder, client, cache)
	guard.Attach(client)
	defer guard.Detach()

	app = handlers.NewApp(
		services.NewUserService(client, cache),
		services.NewJobService(client, cache),
		guard,
		prefs.NewTheme(store),
	)
	if err := app.LoadTheme(ctx); err != nil {
		return fmt.Errorf("load theme: %w", err)
	}

	// 5. Define routes
	r.GET("/api/v1/health", handlers.HealthCheck)
	binder.Mount(app.Routes()...)

	// 6. Run until interrupted
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Server starting on %s, API at %s", cfg.ListenAddr, cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// openPrefs opens the preference store named by the config.
func openPrefs(cfg *config.Config) (prefs.Store, error) {
	switch cfg.PrefsDriver {
	case config.DriverPostgres:
		db, err := database.Connect(cfg.PrefsDSN)
		if err != nil {
			return nil, err
		}
		return prefs.NewGormStore(db), nil
	default:
		return prefs.OpenSQLite(cfg.PrefsDSN)
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowCredentials = len(origins) > 0
	c.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	return c
}

// logTransition logs redirects; failures are logged by the router itself.
func logTransition(t router.Transition) {
	if t.To == router.Redirected {
		log.Printf("[router] %s %s -> %s", t.Method, t.Path, t.Location)
	}
}
