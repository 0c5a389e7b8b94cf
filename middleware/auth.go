// middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"groundbook/models"
	"groundbook/utils"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// JWTAuthMiddleware resolves the bearer token into the acting party and
// stores it on the context. Tokens must carry a requester or operator role.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		sub, role, err := utils.ExtractActorFromToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		if role != models.ActorRequester && role != models.ActorOperator {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Token role is not allowed"})
			return
		}

		c.Set(actorKey, models.Actor{Role: role, ID: sub})
		c.Next()
	}
}

// OperatorOnly rejects requests whose actor is not an operator. Must run
// after JWTAuthMiddleware.
func OperatorOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorFrom(c).Role != models.ActorOperator {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Operator access required"})
			return
		}
		c.Next()
	}
}

// ActorFrom returns the actor set by JWTAuthMiddleware, or the zero Actor.
func ActorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(models.Actor); ok {
			return a
		}
	}
	return models.Actor{}
}
