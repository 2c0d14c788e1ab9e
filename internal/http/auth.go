package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"bookshelf-server/internal/domain"
)

const identityKey = "bookshelf.identity"

// identityMiddleware builds the per-request identity context. A missing,
// malformed, invalid, or expired token leaves the context empty without
// failing the request; protected handlers decide whether identity is required.
func (h *Handler) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}

		claims, err := h.tokens.Validate(token)
		if err != nil {
			h.logger.Debugf("token rejected: %v", err)
			c.Next()
			return
		}

		userID, username := claims.Identity()
		c.Set(identityKey, &domain.Identity{
			UserID:   userID,
			Username: username,
		})
		c.Next()
	}
}

func identityFrom(c *gin.Context) *domain.Identity {
	value, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, ok := value.(*domain.Identity)
	if !ok {
		return nil
	}
	return identity
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return ""
}
