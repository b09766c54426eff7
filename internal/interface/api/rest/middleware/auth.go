package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"devtransfer/internal/application/ports"
	"devtransfer/internal/infrastructure/jwt"
)

const (
	CtxRole  = "role"
	CtxOwner = "owner"

	RoleUploader = "uploader"
)

// Authenticator accepts upload tokens, admin JWTs and admin basic auth.
type Authenticator struct {
	credentials ports.Credentials
	jwtService  *jwt.Service
}

func NewAuthenticator(credentials ports.Credentials, jwtService *jwt.Service) *Authenticator {
	return &Authenticator{
		credentials: credentials,
		jwtService:  jwtService,
	}
}

// RequireUploader lets through any authenticated caller.
func (a *Authenticator) RequireUploader() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := a.authenticate(c); !ok {
			return
		}
		c.Next()
	}
}

func (a *Authenticator) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := a.authenticate(c)
		if !ok {
			return
		}
		if role != jwt.RoleAdmin {
			c.AbortWithStatusJSON(
				http.StatusForbidden,
				gin.H{"error": "admin role required"},
			)
			return
		}
		c.Next()
	}
}

// authenticate sets CtxOwner and CtxRole, or aborts with 401.
func (a *Authenticator) authenticate(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(
			http.StatusUnauthorized,
			gin.H{"error": "missing Authorization header"},
		)
		return "", false
	}

	owner, role, ok := a.identify(c.Request, authHeader)
	if !ok {
		c.Header("WWW-Authenticate", `Bearer realm="devtransfer"`)
		c.AbortWithStatusJSON(
			http.StatusUnauthorized,
			gin.H{"error": "invalid credentials"},
		)
		return "", false
	}

	c.Set(CtxOwner, owner)
	c.Set(CtxRole, role)

	return role, true
}

func (a *Authenticator) identify(r *http.Request, authHeader string) (owner, role string, ok bool) {
	if user, pass, isBasic := r.BasicAuth(); isBasic {
		if a.credentials.VerifyAdmin(user, pass) {
			return user, jwt.RoleAdmin, true
		}
		return "", "", false
	}

	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenStr == authHeader || tokenStr == "" {
		return "", "", false
	}

	if owner, ok := a.credentials.Identify(tokenStr); ok {
		return owner, RoleUploader, true
	}

	claims, err := a.jwtService.ValidateToken(tokenStr)
	if err != nil {
		return "", "", false
	}
	// an admin removed from the configuration loses access before the token expires
	if claims.Role == jwt.RoleAdmin && !a.credentials.IsAdmin(claims.Subject) {
		return "", "", false
	}

	return claims.Subject, claims.Role, true
}

func Owner(c *gin.Context) string { return c.GetString(CtxOwner) }
