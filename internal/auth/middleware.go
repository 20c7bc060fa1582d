package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const actorContextKey = "auth.actor"

// ShareCodeResolver maps a client share code to the project it grants
// access to. Implemented by the engagements repository.
type ShareCodeResolver interface {
	ResolveShareCode(ctx context.Context, code string) (uuid.UUID, error)
}

// Middleware resolves the caller into an Actor, in priority order:
// webhook secret, freelancer bearer token, client share code.
// Requests that resolve to nothing are rejected.
func Middleware(jwtSecret, webhookSecret string, resolver ShareCodeResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret := c.GetHeader("X-Webhook-Secret"); secret != "" && webhookSecret != "" {
			if subtle.ConstantTimeCompare([]byte(secret), []byte(webhookSecret)) == 1 {
				c.Set(actorContextKey, Actor{Role: RoleSystem})
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}

		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimPrefix(header, "Bearer ")
			userID, err := ParseToken(token, jwtSecret)
			if err != nil {
				logger.Debug("rejected bearer token", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.Set(actorContextKey, Actor{Role: RoleFreelancer, UserID: userID})
			c.Next()
			return
		}

		if code := c.GetHeader("X-Share-Code"); code != "" {
			projectID, err := resolver.ResolveShareCode(c.Request.Context(), code)
			if err != nil {
				logger.Debug("rejected share code", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid share code"})
				return
			}
			c.Set(actorContextKey, Actor{Role: RoleClient, ProjectID: projectID})
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
}

// FromContext returns the Actor resolved by Middleware.
func FromContext(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	return actor, ok
}

// ParseToken validates an HS256 session token and returns its subject.
func ParseToken(tokenString, secret string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(sub)
}

// IssueToken mints a freelancer session token. The identity provider is an
// external collaborator; this exists for tooling and tests.
func IssueToken(userID uuid.UUID, secret string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}
