package tlog

import "github.com/gin-gonic/gin"

func AuditLoginSuccess(c *gin.Context, username, provider string) {
	Audit.Info().
		Str("event", "login").
		Str("result", "success").
		Str("username", username).
		Str("provider", provider).
		Str("ip", c.ClientIP()).
		Send()
}

func AuditLoginFailure(c *gin.Context, username, provider string) {
	Audit.Warn().
		Str("event", "login").
		Str("result", "failure").
		Str("username", username).
		Str("provider", provider).
		Str("ip", c.ClientIP()).
		Send()
}

func AuditTokenIssued(c *gin.Context, clientID, subject, grantType string) {
	Audit.Info().
		Str("event", "token").
		Str("result", "success").
		Str("client_id", clientID).
		Str("subject", subject).
		Str("grant_type", grantType).
		Str("ip", c.ClientIP()).
		Send()
}

func AuditTokenDenied(c *gin.Context, clientID, grantType, reason string) {
	Audit.Warn().
		Str("event", "token").
		Str("result", "failure").
		Str("client_id", clientID).
		Str("grant_type", grantType).
		Str("reason", reason).
		Str("ip", c.ClientIP()).
		Send()
}

func AuditTokenRevoked(c *gin.Context, clientID string) {
	Audit.Info().
		Str("event", "revoke").
		Str("result", "success").
		Str("client_id", clientID).
		Str("ip", c.ClientIP()).
		Send()
}
