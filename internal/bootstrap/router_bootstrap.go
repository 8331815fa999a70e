package bootstrap

import (
	"fmt"

	"github.com/steveiliop56/tinyoauth/internal/controller"
	"github.com/steveiliop56/tinyoauth/internal/middleware"

	"github.com/gin-gonic/gin"
)

func (app *BootstrapApp) setupRouter() (*gin.Engine, error) {
	engine := gin.New()
	engine.Use(gin.Recovery())

	if len(app.config.Server.TrustedProxies) > 0 {
		err := engine.SetTrustedProxies(app.config.Server.TrustedProxies)

		if err != nil {
			return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
		}
	}

	zerologMiddleware := middleware.NewZerologMiddleware()

	err := zerologMiddleware.Init()

	if err != nil {
		return nil, fmt.Errorf("failed to initialize zerolog middleware: %w", err)
	}

	engine.Use(zerologMiddleware.Middleware())

	if app.config.Server.Metrics {
		engine.Use(app.metrics.Middleware())
		engine.GET("/metrics", gin.WrapH(app.metrics.Handler()))
	}

	oauthRouter := engine.Group("/oauth")

	if app.config.RateLimit.Enabled {
		rateLimitMiddleware := middleware.NewRateLimitMiddleware(middleware.RateLimitMiddlewareConfig{
			RequestsPerSecond: app.config.RateLimit.RequestsPerSecond,
			Burst:             app.config.RateLimit.Burst,
			OnLimited:         app.metrics.RecordRateLimited,
		})

		err := rateLimitMiddleware.Init()

		if err != nil {
			return nil, fmt.Errorf("failed to initialize rate limit middleware: %w", err)
		}

		app.rateLimit = rateLimitMiddleware
		oauthRouter.Use(rateLimitMiddleware.Middleware())
	}

	tokenController := controller.NewTokenController(oauthRouter, app.services.grantService, app.metrics)

	tokenController.SetupRoutes()

	authorizeController := controller.NewAuthorizeController(controller.AuthorizeControllerConfig{
		Title:        app.config.Title,
		StoreTimeout: app.config.Auth.StoreTimeout,
	}, oauthRouter, app.services.authService, app.services.clientService, app.services.codeService, app.metrics)

	authorizeController.SetupRoutes()

	introspectionController := controller.NewIntrospectionController(controller.IntrospectionControllerConfig{
		Issuer: app.context.issuer,
	}, oauthRouter, app.services.grantService)

	introspectionController.SetupRoutes()

	revocationController := controller.NewRevocationController(oauthRouter, app.services.grantService, app.metrics)

	revocationController.SetupRoutes()

	wellKnownController := controller.NewWellKnownController(controller.WellKnownControllerConfig{
		AppURL: app.context.appURL,
	}, app.services.tokenService, engine)

	wellKnownController.SetupRoutes()

	apiRouter := engine.Group("/api")

	healthController := controller.NewHealthController(apiRouter, app.db)

	healthController.SetupRoutes()

	return engine, nil
}
