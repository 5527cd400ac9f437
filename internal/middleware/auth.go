package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"github.com/medifast/claims-api/internal/handler"
	"github.com/medifast/claims-api/internal/model"
	"github.com/medifast/claims-api/pkg/auth"
)

const ContextPrincipal = "principal"

// principals are cached briefly so hot clients do not pay signature
// verification on every request. The TTL is far below token expiry.
const principalCacheTTL = time.Minute

type AuthMiddleware struct {
	tokens     auth.JWTService
	principals *cache.Cache
}

func NewAuthMiddleware(tokens auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:     tokens,
		principals: cache.New(principalCacheTTL, 2*principalCacheTTL),
	}
}

// Authenticate verifies the bearer token and stores the principal in the
// request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}
		token := parts[1]

		if cached, ok := m.principals.Get(token); ok {
			c.Set(ContextPrincipal, cached.(*model.Principal))
			c.Next()
			return
		}

		principal, err := m.tokens.ValidateAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		m.principals.Set(token, principal, cache.DefaultExpiration)
		c.Set(ContextPrincipal, principal)
		c.Next()
	}
}

// RequireRoles allows only the listed roles past.
func (m *AuthMiddleware) RequireRoles(roles ...model.Role) gin.HandlerFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
			c.Abort()
			return
		}
		if !allowed[principal.Role] {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("insufficient permissions"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff allows hospital, insurer and admin users.
func (m *AuthMiddleware) RequireStaff() gin.HandlerFunc {
	return m.RequireRoles(model.RoleHospital, model.RoleInsurer, model.RoleAdmin)
}

// CurrentPrincipal returns the authenticated principal set by
// Authenticate.
func CurrentPrincipal(c *gin.Context) (*model.Principal, bool) {
	v, exists := c.Get(ContextPrincipal)
	if !exists {
		return nil, false
	}
	principal, ok := v.(*model.Principal)
	return principal, ok
}

// Actor converts the principal into the identity lifecycle operations
// take.
func Actor(c *gin.Context) (model.ActorRef, bool) {
	principal, ok := CurrentPrincipal(c)
	if !ok {
		return model.ActorRef{}, false
	}
	return model.ActorRef{ID: principal.UserID, Role: principal.Role}, true
}
