package controller

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/steveiliop56/tinyoauth/internal/assets"
	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/metrics"
	"github.com/steveiliop56/tinyoauth/internal/service"
	"github.com/steveiliop56/tinyoauth/internal/utils"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

var loginTemplate = template.Must(template.ParseFS(assets.Templates, "templates/login.html"))

type AuthorizeControllerConfig struct {
	Title        string
	StoreTimeout int
}

type AuthorizeController struct {
	config  AuthorizeControllerConfig
	router  *gin.RouterGroup
	auth    *service.AuthService
	clients *service.ClientService
	codes   *service.CodeService
	metrics *metrics.Metrics
}

type authorizeRequest struct {
	ResponseType string
	ClientID     string
	RedirectURI  string
	Scope        string
	State        string
}

type loginPage struct {
	Title      string
	ClientName string
	Action     string
	Username   string
	Error      string
}

func NewAuthorizeController(config AuthorizeControllerConfig, router *gin.RouterGroup, auth *service.AuthService, clients *service.ClientService, codes *service.CodeService, metrics *metrics.Metrics) *AuthorizeController {
	return &AuthorizeController{
		config:  config,
		router:  router,
		auth:    auth,
		clients: clients,
		codes:   codes,
		metrics: metrics,
	}
}

func (controller *AuthorizeController) SetupRoutes() {
	controller.router.GET("/authorize", controller.authorizeHandler)
	controller.router.POST("/authorize", controller.loginHandler)
}

func (controller *AuthorizeController) authorizeHandler(c *gin.Context) {
	req, client, scope, ok := controller.validate(c, false)
	if !ok {
		return
	}

	session, err := controller.auth.GetSessionCookie(c)

	if err != nil {
		if !errors.Is(err, service.ErrSessionNotFound) {
			tlog.App.Error().Err(err).Msg("Failed to get session")
			controller.serverError(c)
			return
		}

		controller.renderLogin(c, http.StatusOK, client, "", "")
		return
	}

	tlog.App.Debug().Str("username", session.Username).Str("client_id", client.ClientID).Msg("Reusing login session")

	controller.issueCode(c, req, session.Username, scope)
}

func (controller *AuthorizeController) loginHandler(c *gin.Context) {
	// Login forms may be posted without the original response_type
	req, client, scope, ok := controller.validate(c, true)
	if !ok {
		return
	}

	username := c.PostForm("username")
	if username == "" {
		username = c.PostForm("email")
	}
	password := c.PostForm("password")

	if username == "" || password == "" {
		controller.renderLogin(c, http.StatusBadRequest, client, username, "Username and password are required")
		return
	}

	if locked, remaining := controller.auth.IsAccountLocked(username); locked {
		tlog.App.Warn().Str("username", username).Msg("Login attempt on locked account")
		controller.renderLogin(c, http.StatusTooManyRequests, client, username, fmt.Sprintf("Too many failed login attempts, try again in %d seconds", remaining))
		return
	}

	ctx, cancel := controller.storeContext(c)
	subject, err := controller.auth.VerifyOwner(ctx, username, password)
	cancel()

	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			tlog.App.Error().Err(err).Msg("Failed to verify resource owner")
			controller.serverError(c)
			return
		}

		controller.auth.RecordLoginAttempt(username, false)
		tlog.AuditLoginFailure(c, username, "password")
		controller.renderLogin(c, http.StatusUnauthorized, client, username, "Invalid username or password")
		return
	}

	if err := controller.auth.VerifyTotp(subject, c.PostForm("totp")); err != nil {
		message := "Invalid authenticator code"
		if errors.Is(err, service.ErrTotpRequired) {
			message = "Authenticator code required"
		} else {
			controller.auth.RecordLoginAttempt(username, false)
		}
		tlog.AuditLoginFailure(c, username, "totp")
		controller.renderLogin(c, http.StatusUnauthorized, client, username, message)
		return
	}

	controller.auth.RecordLoginAttempt(username, true)
	tlog.AuditLoginSuccess(c, subject, "password")

	if err := controller.auth.CreateSessionCookie(c, subject); err != nil {
		tlog.App.Error().Err(err).Msg("Failed to create session")
		controller.serverError(c)
		return
	}

	controller.issueCode(c, req, subject, scope)
}

// validate checks the query parameters. Until the redirect URI is known to
// be registered, errors are returned as JSON instead of redirects.
func (controller *AuthorizeController) validate(c *gin.Context, defaultResponseType bool) (authorizeRequest, *service.Client, string, bool) {
	req := authorizeRequest{
		ResponseType: c.Query("response_type"),
		ClientID:     c.Query("client_id"),
		RedirectURI:  c.Query("redirect_uri"),
		Scope:        c.Query("scope"),
		State:        c.Query("state"),
	}

	if req.ResponseType == "" && defaultResponseType {
		req.ResponseType = "code"
	}

	if req.ResponseType != "code" || req.ClientID == "" || req.RedirectURI == "" {
		controller.jsonError(c, http.StatusBadRequest, service.KindInvalidRequest)
		return req, nil, "", false
	}

	ctx, cancel := controller.storeContext(c)
	client, err := controller.clients.GetClient(ctx, req.ClientID)
	cancel()

	if err != nil {
		if errors.Is(err, service.ErrClientNotFound) {
			controller.jsonError(c, http.StatusBadRequest, service.KindInvalidClient)
			return req, nil, "", false
		}
		tlog.App.Error().Err(err).Msg("Failed to get client")
		controller.serverError(c)
		return req, nil, "", false
	}

	if !client.AllowsRedirectURI(req.RedirectURI) {
		controller.jsonError(c, http.StatusBadRequest, service.KindInvalidRequest)
		return req, nil, "", false
	}

	if !client.AllowsGrantType(config.GrantTypeAuthorizationCode) {
		controller.redirectError(c, req, service.KindUnauthorizedClient)
		return req, nil, "", false
	}

	scope, ok := client.ResolveScope(req.Scope)
	if !ok {
		controller.redirectError(c, req, service.KindInvalidScope)
		return req, nil, "", false
	}

	return req, client, scope, true
}

func (controller *AuthorizeController) issueCode(c *gin.Context, req authorizeRequest, subject string, scope string) {
	ctx, cancel := controller.storeContext(c)
	code, err := controller.codes.Create(ctx, req.ClientID, req.RedirectURI, subject, scope)
	cancel()

	if err != nil {
		tlog.App.Error().Err(err).Msg("Failed to create authorization code")
		controller.serverError(c)
		return
	}

	redirectURL, err := utils.AppendQuery(req.RedirectURI, map[string]string{
		"code":  code,
		"state": req.State,
	})

	if err != nil {
		controller.jsonError(c, http.StatusBadRequest, service.KindInvalidRequest)
		return
	}

	controller.metrics.RecordCodeIssued()

	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, redirectURL)
}

func (controller *AuthorizeController) renderLogin(c *gin.Context, status int, client *service.Client, username string, message string) {
	c.Header("Cache-Control", "no-store")
	c.Render(status, render.HTML{
		Template: loginTemplate,
		Name:     "login.html",
		Data: loginPage{
			Title:      controller.config.Title,
			ClientName: client.Name,
			Action:     c.Request.URL.RequestURI(),
			Username:   username,
			Error:      message,
		},
	})
}

func (controller *AuthorizeController) redirectError(c *gin.Context, req authorizeRequest, kind service.ErrorKind) {
	redirectURL, err := utils.AppendQuery(req.RedirectURI, map[string]string{
		"error":             kind.String(),
		"error_description": kind.Description(),
		"state":             req.State,
	})

	if err != nil {
		controller.jsonError(c, http.StatusBadRequest, kind)
		return
	}

	c.Redirect(http.StatusFound, redirectURL)
}

func (controller *AuthorizeController) jsonError(c *gin.Context, status int, kind service.ErrorKind) {
	c.JSON(status, gin.H{
		"error":             kind.String(),
		"error_description": kind.Description(),
	})
}

func (controller *AuthorizeController) serverError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": service.KindInternal.String(),
	})
}

func (controller *AuthorizeController) storeContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if controller.config.StoreTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), time.Duration(controller.config.StoreTimeout)*time.Millisecond)
}
