package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/zaqqye/scholarship_backend/internal/models"
	"github.com/zaqqye/scholarship_backend/internal/scholarship"
)

const (
	// CallerKey holds the authenticated address in the gin context.
	CallerKey  = "caller"
	AccountKey = "account"
)

type AuthConfig struct {
	JWTSecret string
}

type Claims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// AuthMiddleware resolves the bearer token to an active account and stores
// its address as the caller. Request bodies never set the caller.
func AuthMiddleware(db *gorm.DB, cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization header"})
			return
		}
		tokenStr := strings.TrimSpace(auth[len("Bearer "):])

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var account models.Account
		if err := db.Where("address = ? AND active = ?", claims.Address, true).First(&account).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account not found or inactive"})
			return
		}

		c.Set(AccountKey, account)
		c.Set(CallerKey, account.Address)
		c.Next()
	}
}

// Caller returns the authenticated address, or "" on public routes.
func Caller(c *gin.Context) string {
	return c.GetString(CallerKey)
}

// Authorizer decides whether a caller holds the admin role.
type Authorizer interface {
	Authorize(ctx context.Context, caller string) error
}

// RequireAdmin lets through the scholarship admin. Before initialization the
// operator address is accepted so it can provision accounts.
func RequireAdmin(authz Authorizer, operator string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := Caller(c)
		if caller == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		err := authz.Authorize(c.Request.Context(), caller)
		if errors.Is(err, scholarship.ErrNotInitialized) && operator != "" && caller == operator {
			err = nil
		}
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
