package controller

import (
	"net/http"
	"net/url"

	"github.com/steveiliop56/tinyoauth/internal/metrics"
	"github.com/steveiliop56/tinyoauth/internal/service"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
)

const basicRealm = `Basic realm="tinyoauth"`

type TokenController struct {
	router  *gin.RouterGroup
	grants  *service.GrantService
	metrics *metrics.Metrics
}

func NewTokenController(router *gin.RouterGroup, grants *service.GrantService, metrics *metrics.Metrics) *TokenController {
	return &TokenController{
		router:  router,
		grants:  grants,
		metrics: metrics,
	}
}

func (controller *TokenController) SetupRoutes() {
	controller.router.POST("/token", controller.tokenHandler)
}

func (controller *TokenController) tokenHandler(c *gin.Context) {
	req := tokenRequestFromContext(c)
	grantType := service.ParseGrantType(req.GrantType).String()

	res, gerr := controller.grants.Dispatch(c.Request.Context(), req)

	if gerr != nil {
		clientID := clientIDFromRequest(req)
		tlog.App.Debug().Err(gerr).Str("client_id", clientID).Str("grant_type", grantType).Msg("Token request rejected")
		tlog.AuditTokenDenied(c, clientID, grantType, gerr.Failure.String())
		controller.metrics.RecordTokenRequest(grantType, gerr.Kind().String())
		writeGrantError(c, gerr)
		return
	}

	tlog.AuditTokenIssued(c, res.ClientID, res.Subject, grantType)
	controller.metrics.RecordTokenRequest(grantType, "success")

	noStore(c)
	c.JSON(http.StatusOK, res)
}

// tokenRequestFromContext reads the form body and the Basic credentials.
// Query parameters are ignored since they end up in access logs.
func tokenRequestFromContext(c *gin.Context) service.TokenRequest {
	req := service.TokenRequest{
		GrantType:    c.PostForm("grant_type"),
		ClientID:     c.PostForm("client_id"),
		ClientSecret: c.PostForm("client_secret"),
		Code:         c.PostForm("code"),
		RedirectURI:  c.PostForm("redirect_uri"),
		Username:     c.PostForm("username"),
		Password:     c.PostForm("password"),
		RefreshToken: c.PostForm("refresh_token"),
		Scope:        c.PostForm("scope"),
	}

	if id, secret, ok := c.Request.BasicAuth(); ok {
		req.BasicPresent = true
		req.BasicID = formUnescape(id)
		req.BasicSecret = formUnescape(secret)
	}

	return req
}

func clientIDFromRequest(req service.TokenRequest) string {
	if req.BasicPresent {
		return req.BasicID
	}
	return req.ClientID
}

// Client credentials in the Authorization header are form encoded before
// being base64 encoded, clients that skip that step still work.
func formUnescape(value string) string {
	unescaped, err := url.QueryUnescape(value)
	if err != nil {
		return value
	}
	return unescaped
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

func writeGrantError(c *gin.Context, gerr *service.GrantError) {
	kind := gerr.Kind()

	noStore(c)

	if kind == service.KindInternal {
		tlog.App.Error().Err(gerr).Msg("Internal error while handling token request")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": kind.String(),
		})
		return
	}

	if kind == service.KindInvalidClient {
		c.Header("WWW-Authenticate", basicRealm)
	}

	c.JSON(kind.Status(), gin.H{
		"error":             kind.String(),
		"error_description": kind.Description(),
	})
}
