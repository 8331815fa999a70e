package controller

import (
	"fmt"
	"net/http"

	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthorizationServerMetadata struct {
	Issuer                                    string   `json:"issuer"`
	AuthorizationEndpoint                     string   `json:"authorization_endpoint"`
	TokenEndpoint                             string   `json:"token_endpoint"`
	IntrospectionEndpoint                     string   `json:"introspection_endpoint"`
	RevocationEndpoint                        string   `json:"revocation_endpoint"`
	JwksUri                                   string   `json:"jwks_uri"`
	ResponseTypesSupported                    []string `json:"response_types_supported"`
	GrantTypesSupported                       []string `json:"grant_types_supported"`
	TokenEndpointAuthMethodsSupported         []string `json:"token_endpoint_auth_methods_supported"`
	IntrospectionEndpointAuthMethodsSupported []string `json:"introspection_endpoint_auth_methods_supported"`
	RevocationEndpointAuthMethodsSupported    []string `json:"revocation_endpoint_auth_methods_supported"`
}

type WellKnownControllerConfig struct {
	AppURL string
}

type WellKnownController struct {
	config WellKnownControllerConfig
	engine *gin.Engine
	tokens *service.TokenService
}

func NewWellKnownController(config WellKnownControllerConfig, tokens *service.TokenService, engine *gin.Engine) *WellKnownController {
	return &WellKnownController{
		config: config,
		tokens: tokens,
		engine: engine,
	}
}

func (controller *WellKnownController) SetupRoutes() {
	controller.engine.GET("/.well-known/oauth-authorization-server", controller.AuthorizationServerMetadata)
	controller.engine.GET("/.well-known/jwks.json", controller.JWKS)
}

func (controller *WellKnownController) AuthorizationServerMetadata(c *gin.Context) {
	baseURL := controller.config.AppURL
	authMethods := []string{"client_secret_basic", "client_secret_post", "none"}

	c.JSON(http.StatusOK, AuthorizationServerMetadata{
		Issuer:                            controller.tokens.GetIssuer(),
		AuthorizationEndpoint:             fmt.Sprintf("%s/oauth/authorize", baseURL),
		TokenEndpoint:                     fmt.Sprintf("%s/oauth/token", baseURL),
		IntrospectionEndpoint:             fmt.Sprintf("%s/oauth/introspect", baseURL),
		RevocationEndpoint:                fmt.Sprintf("%s/oauth/revoke", baseURL),
		JwksUri:                           fmt.Sprintf("%s/.well-known/jwks.json", baseURL),
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               config.SupportedGrantTypes,
		TokenEndpointAuthMethodsSupported: authMethods,
		IntrospectionEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post"},
		RevocationEndpointAuthMethodsSupported:    authMethods,
	})
}

func (controller *WellKnownController) JWKS(c *gin.Context) {
	c.JSON(http.StatusOK, controller.tokens.GetJWKS())
}
