package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/metrics"
	"github.com/steveiliop56/tinyoauth/internal/middleware"
	"github.com/steveiliop56/tinyoauth/internal/repository"
	"github.com/steveiliop56/tinyoauth/internal/utils"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
)

type BootstrapApp struct {
	config  config.Config
	context struct {
		appURL string
		issuer string
		users  []config.User
	}
	db        *sql.DB
	queries   *repository.Queries
	services  Services
	metrics   *metrics.Metrics
	rateLimit *middleware.RateLimitMiddleware
	router    *gin.Engine
}

func NewBootstrapApp(config config.Config) *BootstrapApp {
	return &BootstrapApp{
		config: config,
	}
}

// Setup prepares the database, the services and the router without
// listening. Call Serve afterwards.
func (app *BootstrapApp) Setup() error {
	// Validate app url
	appURL, err := url.Parse(app.config.AppURL)

	if err != nil || appURL.Scheme == "" || appURL.Host == "" {
		return errors.New("app url must be an absolute url, e.g. https://auth.example.com")
	}

	app.context.appURL = utils.GetIssuer(app.config.AppURL, "")
	app.context.issuer = utils.GetIssuer(app.config.AppURL, app.config.OAuth.Issuer)

	// Parse users
	users, err := utils.GetUsers(app.config.Auth.Users, app.config.Auth.UsersFile)

	if err != nil {
		return err
	}

	app.context.users = users

	// Dumps
	tlog.App.Trace().Interface("users", app.context.users).Msg("Users dump")
	tlog.App.Trace().Str("issuer", app.context.issuer).Msg("Issuer")

	// Database
	db, err := app.SetupDatabase(app.config.DatabasePath)

	if err != nil {
		return fmt.Errorf("failed to setup database: %w", err)
	}

	app.db = db
	app.queries = repository.New(db)

	// Services
	services, err := app.initServices(app.queries)

	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	app.services = services

	if !services.authService.UserAuthConfigured() {
		tlog.App.Warn().Msg("No users or LDAP server configured, only the client credentials grant will succeed")
	}

	// Metrics are always collected, the endpoint is optional
	app.metrics = metrics.NewMetrics()

	// Setup router
	router, err := app.setupRouter()

	if err != nil {
		return fmt.Errorf("failed to setup routes: %w", err)
	}

	app.router = router

	return nil
}

func (app *BootstrapApp) Router() *gin.Engine {
	return app.router
}

func (app *BootstrapApp) Serve() error {
	// Start db cleanup routine
	tlog.App.Debug().Msg("Starting database cleanup routine")
	go app.dbCleanup()

	// If we have an socket path, bind to it
	if app.config.Server.SocketPath != "" {
		if _, err := os.Stat(app.config.Server.SocketPath); err == nil {
			tlog.App.Info().Msgf("Removing existing socket file %s", app.config.Server.SocketPath)
			err := os.Remove(app.config.Server.SocketPath)
			if err != nil {
				return fmt.Errorf("failed to remove existing socket file: %w", err)
			}
		}

		tlog.App.Info().Msgf("Starting server on unix socket %s", app.config.Server.SocketPath)
		return app.router.RunUnix(app.config.Server.SocketPath)
	}

	// Start server
	address := fmt.Sprintf("%s:%d", app.config.Server.Address, app.config.Server.Port)
	tlog.App.Info().Msgf("Starting server on %s", address)
	return app.router.Run(address)
}

func (app *BootstrapApp) dbCleanup() {
	ticker := time.NewTicker(time.Duration(30) * time.Minute)
	defer ticker.Stop()

	for ; true; <-ticker.C {
		app.cleanup(context.Background())
	}
}

func (app *BootstrapApp) cleanup(ctx context.Context) {
	tlog.App.Debug().Msg("Cleaning up expired database entries")

	if err := app.services.codeService.DeleteExpired(ctx); err != nil {
		tlog.App.Error().Err(err).Msg("Failed to clean up expired authorization codes")
	}

	if err := app.services.tokenService.DeleteExpired(ctx); err != nil {
		tlog.App.Error().Err(err).Msg("Failed to clean up expired tokens")
	}

	if err := app.queries.DeleteExpiredSessions(ctx, time.Now().Unix()); err != nil {
		tlog.App.Error().Err(err).Msg("Failed to clean up expired sessions")
	}

	if app.rateLimit != nil {
		app.rateLimit.Cleanup()
	}
}
