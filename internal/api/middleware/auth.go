package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"echo-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by the auth middleware.
const (
	UserIDKey   = "user_id"
	UserInfoKey = "user_info"
)

var (
	errMissingToken  = errors.New("authorization header is required")
	errInvalidToken  = errors.New("invalid token")
	errInvalidUserID = errors.New("user_id claim must be a number or a string")
)

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

// RequireAuth rejects requests without a valid bearer token.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := am.authenticate(c); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.NewError(response.ErrCodeUnauthorized).WithDetails(err.Error()))
			return
		}
		c.Next()
	}
}

// OptionalAuth resolves the user when a valid token is present and lets
// anonymous requests through. Handlers decide whether a user is required.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := am.authenticate(c); err != nil && !errors.Is(err, errMissingToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.NewError(response.ErrCodeUnauthorized).WithDetails(err.Error()))
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) authenticate(c *gin.Context) error {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return errMissingToken
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(am.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errInvalidToken
	}

	userID, err := claimUserID(claims)
	if err != nil {
		return err
	}

	c.Set(UserIDKey, userID)
	if info, ok := claims["user_info"]; ok {
		c.Set(UserInfoKey, info)
	} else if email, ok := claims["email"].(string); ok {
		c.Set(UserInfoKey, map[string]any{"email": email})
	}
	return nil
}

// claimUserID reads user_id, falling back to sub. Numeric ids stay numeric
// so presence channel_data carries the same type the application uses.
func claimUserID(claims jwt.MapClaims) (any, error) {
	raw, ok := claims["user_id"]
	if !ok {
		raw, ok = claims["sub"]
	}
	if !ok {
		return nil, errInvalidUserID
	}

	switch v := raw.(type) {
	case float64:
		return uint(v), nil
	case string:
		if v == "" {
			return nil, errInvalidUserID
		}
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return uint(n), nil
		}
		return v, nil
	default:
		return nil, errInvalidUserID
	}
}
