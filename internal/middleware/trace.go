package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// TraceMiddleware tags the request's New Relic transaction with the calling
// actor and reports handler errors, which respondError attaches for every 500.
// It must run after AuthMiddleware.
func TraceMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		actor, _ := ActorFrom(c)
		txn := nrgin.Transaction(c)
		if txn != nil && actor.UserID != "" {
			txn.AddAttribute("actor_id", actor.UserID)
			txn.AddAttribute("actor_role", string(actor.Role))
		}

		for _, ginErr := range c.Errors {
			if txn != nil {
				txn.NoticeError(ginErr.Err)
			}
			logger.ErrorContext(c.Request.Context(), "request failed",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"status", c.Writer.Status(),
				"actor_id", actor.UserID,
				"error", ginErr.Err,
			)
		}
	}
}
