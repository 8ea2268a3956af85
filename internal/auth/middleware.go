package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Role is the caller's authorization role as asserted by the identity
// provider.
type Role string

const (
	RoleProfessional Role = "professional"
	RoleAdmin        Role = "administrator"
)

// Identity is the authenticated caller resolved from the bearer token.
// The signature subsystem never trusts signer or tenant identifiers from
// request bodies; they always come from here.
type Identity struct {
	UserID   string
	TenantID string
	Role     Role
}

const identityKey = "auth.identity"

type claims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Middleware validates the Authorization bearer token and stores the
// caller's identity in the request context.
func Middleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			logger.Debug("rejected bearer token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		tokenClaims := parsed.Claims.(*claims)
		if tokenClaims.Subject == "" || tokenClaims.TenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(identityKey, &Identity{
			UserID:   tokenClaims.Subject,
			TenantID: tokenClaims.TenantID,
			Role:     Role(tokenClaims.Role),
		})
		c.Next()
	}
}

// IdentityFrom retrieves the authenticated identity from the gin context.
func IdentityFrom(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*Identity)
	return identity, ok
}

// SetIdentity injects an identity into the context, for handler tests.
func SetIdentity(c *gin.Context, identity *Identity) {
	c.Set(identityKey, identity)
}
