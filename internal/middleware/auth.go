package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ridebook/internal/domain"
)

const actorKey = "actor"

// ActorParser turns a bearer token into the calling actor.
type ActorParser interface {
	ParseActor(token string) (domain.Actor, error)
}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// authenticated actor in the gin context.
func AuthMiddleware(parser ActorParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}

		actor, err := parser.ParseActor(strings.TrimSpace(token))
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "unauthenticated", "invalid token")
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the actor stored by AuthMiddleware.
func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}

// SetActor stores an actor in the gin context.
func SetActor(c *gin.Context, actor domain.Actor) {
	c.Set(actorKey, actor)
}

// errorBody has the same JSON shape as the handlers' error responses.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func abortWithError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Error: msg, Code: code})
}
