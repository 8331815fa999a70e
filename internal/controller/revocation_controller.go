package controller

import (
	"net/http"

	"github.com/steveiliop56/tinyoauth/internal/metrics"
	"github.com/steveiliop56/tinyoauth/internal/service"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
)

type RevocationController struct {
	router  *gin.RouterGroup
	grants  *service.GrantService
	metrics *metrics.Metrics
}

func NewRevocationController(router *gin.RouterGroup, grants *service.GrantService, metrics *metrics.Metrics) *RevocationController {
	return &RevocationController{
		router:  router,
		grants:  grants,
		metrics: metrics,
	}
}

func (controller *RevocationController) SetupRoutes() {
	controller.router.POST("/revoke", controller.revokeHandler)
}

// Unknown tokens and tokens of other clients are answered with 200 as well
// so the endpoint does not reveal which tokens are valid.
func (controller *RevocationController) revokeHandler(c *gin.Context) {
	req := tokenRequestFromContext(c)

	client, gerr := controller.grants.AuthenticateClient(c.Request.Context(), req, false)

	if gerr != nil {
		controller.metrics.RecordRevocation(gerr.Kind().String())
		writeGrantError(c, gerr)
		return
	}

	token := c.PostForm("token")

	if token == "" {
		controller.metrics.RecordRevocation(service.KindInvalidRequest.String())
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             service.KindInvalidRequest.String(),
			"error_description": service.KindInvalidRequest.Description(),
		})
		return
	}

	if gerr := controller.grants.Revoke(c.Request.Context(), token, client.ClientID); gerr != nil {
		controller.metrics.RecordRevocation(gerr.Kind().String())
		writeGrantError(c, gerr)
		return
	}

	tlog.AuditTokenRevoked(c, client.ClientID)
	controller.metrics.RecordRevocation("success")

	c.Status(http.StatusOK)
}
