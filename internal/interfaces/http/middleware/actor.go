package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ActorIDHeader is the header identifying the acting user
const ActorIDHeader = "X-Actor-ID"

// ActorIDKey is the gin context key for the acting user
const ActorIDKey = "actor_id"

// Actor extracts the acting user from the X-Actor-ID header. Authentication
// happens at the gateway; this service only records who acted. A malformed
// header is treated as anonymous rather than rejected, so read-only
// endpoints keep working without identity.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.GetHeader(ActorIDHeader); raw != "" {
			if actorID, err := uuid.Parse(raw); err == nil {
				c.Set(ActorIDKey, actorID.String())
			}
		}
		c.Next()
	}
}

// GetActorID returns the acting user from the gin context, uuid.Nil when
// anonymous
func GetActorID(c *gin.Context) uuid.UUID {
	raw := c.GetString(ActorIDKey)
	if raw == "" {
		return uuid.Nil
	}
	actorID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return actorID
}
