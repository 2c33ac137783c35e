package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

var (
	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidToken is returned when the token is invalid for any reason
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the fields read from a platform access token. Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// ParseToken validates an HS256 token signed with secret.
func ParseToken(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// identify requires a valid bearer token when a JWT secret is configured and
// stores its subject as the caller's user id.
func (s *Server) identify(c *fiber.Ctx) error {
	if s.config.JWTSecret == "" {
		return c.Next()
	}

	header := c.Get(fiber.HeaderAuthorization)
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(tokenString) == "" {
		return respondError(c, fiber.StatusUnauthorized, "Missing authorization token")
	}

	claims, err := ParseToken(strings.TrimSpace(tokenString), s.config.JWTSecret)
	if err != nil {
		message := "Invalid authorization token"
		if errors.Is(err, ErrTokenExpired) {
			message = "Authorization token expired"
		}
		return respondError(c, fiber.StatusUnauthorized, message)
	}

	c.Locals(localsUserID, claims.Subject)
	return c.Next()
}
