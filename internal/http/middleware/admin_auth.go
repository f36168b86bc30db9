package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	echo "github.com/labstack/echo/v4"
)

const (
	adminRole   = "admin"
	ctxAdminSub = "admin_sub"
)

// AdminClaims is the payload of the admin bearer token.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueAdminToken signs an HS256 token for sub valid for ttl from now.
func IssueAdminToken(secret []byte, sub string, ttl time.Duration, now time.Time) (string, error) {
	claims := AdminClaims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseAdminToken verifies signature, expiry and role.
func ParseAdminToken(secret []byte, raw string) (*AdminClaims, error) {
	t, err := jwt.ParseWithClaims(raw, &AdminClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*AdminClaims)
	if !ok || !t.Valid || c.Role != adminRole {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// AdminSubFromCtx returns the subject set by AdminAuthMiddleware.
func AdminSubFromCtx(c echo.Context) (string, bool) {
	sub, ok := c.Get(ctxAdminSub).(string)
	return sub, ok
}

// AdminAuthMiddleware requires "Authorization: Bearer <token>" signed with secret.
func AdminAuthMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(h, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			claims, err := ParseAdminToken(secret, strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}
			c.Set(ctxAdminSub, claims.Subject)
			return next(c)
		}
	}
}
