package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"cargotrack/internal/config"
	apperrors "cargotrack/internal/errors"
	"cargotrack/internal/models"
	"cargotrack/internal/services"
)

// userKey is the context key holding the authenticated *models.User.
const userKey = "user"

// JWTClaims represents the claims in the JWT. Warehouse is present only
// for warehouse admins with an assignment.
type JWTClaims struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Warehouse string `json:"warehouse,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken signs an access token for the user.
func GenerateToken(user *models.User, cfg *config.Config) (string, error) {
	claims := &JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.JWTExpirationDur)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "cargotrack-api",
			Subject:   user.Email,
		},
	}
	if user.WarehouseScoped() {
		claims.Warehouse = user.AssignedWarehouse
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken validates a token string and returns its claims.
func ParseToken(tokenString string, cfg *config.Config) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

func abortWithAppError(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}

// AuthMiddleware verifies the bearer token and resolves the user from
// the store. A valid token for a deleted or deactivated account is
// rejected.
func AuthMiddleware(users services.UserServicer, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithAppError(c, apperrors.ErrUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithAppError(c, apperrors.ErrUnauthorized)
			return
		}

		claims, err := ParseToken(parts[1], cfg)
		if err != nil {
			abortWithAppError(c, apperrors.ErrInvalidToken)
			return
		}

		user, err := users.GetUserByEmail(claims.Email)
		if err != nil {
			abortWithAppError(c, apperrors.ErrInvalidToken)
			return
		}
		if !user.IsActive {
			abortWithAppError(c, apperrors.ErrAccountDisabled)
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by AuthMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// RequireRoles allows only the listed roles past.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortWithAppError(c, apperrors.ErrUnauthorized)
			return
		}
		if !allowed[user.Role] {
			abortWithAppError(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

// RequireAdmin admits staff roles: admin, warehouse_admin, superadmin.
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin, models.RoleWarehouseAdmin, models.RoleSuperadmin)
}

// RequireSuperadmin admits only superadmins.
func RequireSuperadmin() gin.HandlerFunc {
	return RequireRoles(models.RoleSuperadmin)
}
