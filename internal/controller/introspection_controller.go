package controller

import (
	"net/http"

	"github.com/steveiliop56/tinyoauth/internal/service"

	"github.com/gin-gonic/gin"
)

type IntrospectionResponse struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Subject   string `json:"sub,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	Iss       string `json:"iss,omitempty"`
	Jti       string `json:"jti,omitempty"`
}

type IntrospectionControllerConfig struct {
	Issuer string
}

type IntrospectionController struct {
	config IntrospectionControllerConfig
	router *gin.RouterGroup
	grants *service.GrantService
}

func NewIntrospectionController(config IntrospectionControllerConfig, router *gin.RouterGroup, grants *service.GrantService) *IntrospectionController {
	return &IntrospectionController{
		config: config,
		router: router,
		grants: grants,
	}
}

func (controller *IntrospectionController) SetupRoutes() {
	controller.router.POST("/introspect", controller.introspectHandler)
}

func (controller *IntrospectionController) introspectHandler(c *gin.Context) {
	req := tokenRequestFromContext(c)

	// Only confidential clients may introspect
	_, gerr := controller.grants.AuthenticateClient(c.Request.Context(), req, true)

	if gerr != nil {
		writeGrantError(c, gerr)
		return
	}

	token := c.PostForm("token")

	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             service.KindInvalidRequest.String(),
			"error_description": service.KindInvalidRequest.Description(),
		})
		return
	}

	info, gerr := controller.grants.Introspect(c.Request.Context(), token)

	if gerr != nil {
		writeGrantError(c, gerr)
		return
	}

	noStore(c)

	if info == nil {
		c.JSON(http.StatusOK, IntrospectionResponse{Active: false})
		return
	}

	c.JSON(http.StatusOK, IntrospectionResponse{
		Active:    true,
		Scope:     info.Scope,
		ClientID:  info.ClientID,
		Subject:   info.Subject,
		TokenType: info.TokenType,
		Exp:       info.ExpiresAt,
		Iat:       info.IssuedAt,
		Iss:       controller.config.Issuer,
		Jti:       info.ID,
	})
}
