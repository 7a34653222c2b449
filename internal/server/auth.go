package server

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "hyperdeck-bridge"

// SessionClaims are the claims in a dashboard session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// AuthService validates the two credentials the bridge accepts: the
// static API key from the env file, and short-lived session tokens
// minted from it.
type AuthService struct {
	apiKey    []byte
	jwtSecret []byte
}

// NewAuthService creates a new auth service
func NewAuthService(apiKey, jwtSecret string) *AuthService {
	return &AuthService{
		apiKey:    []byte(apiKey),
		jwtSecret: []byte(jwtSecret),
	}
}

// ValidateAPIKey compares in constant time. An empty configured key
// never matches, so setup mode cannot be confused with auth.
func (a *AuthService) ValidateAPIKey(key string) bool {
	if len(a.apiKey) == 0 || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), a.apiKey) == 1
}

// GenerateToken mints a session token with the given scope.
func (a *AuthService) GenerateToken(scope string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
		Scope: scope,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// ValidateToken parses and verifies a session token. Only HS256 tokens
// carrying this bridge's issuer are accepted.
func (a *AuthService) ValidateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{},
		func(*jwt.Token) (interface{}, error) { return a.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ExtractToken pulls the credential from the Authorization header, or
// from the token query parameter as a fallback for the SSE stream
// (EventSource cannot set request headers). The header must use the
// Bearer scheme; a malformed header is not retried as a query token.
func ExtractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return ""
		}
		return token
	}
	return c.Query("token")
}
