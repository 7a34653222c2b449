package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_ValidateAPIKey(t *testing.T) {
	auth := NewAuthService("my-api-key", "my-secret")

	assert.True(t, auth.ValidateAPIKey("my-api-key"))
	assert.False(t, auth.ValidateAPIKey("wrong-key"))
	assert.False(t, auth.ValidateAPIKey(""))
}

func TestAuthService_EmptyConfiguredKeyNeverMatches(t *testing.T) {
	auth := NewAuthService("", "my-secret")

	assert.False(t, auth.ValidateAPIKey(""))
	assert.False(t, auth.ValidateAPIKey("anything"))
}

func TestAuthService_SessionTokenRoundTrip(t *testing.T) {
	auth := NewAuthService("api-key", "jwt-secret")

	token, err := auth.GenerateToken("dashboard", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "dashboard", claims.Scope)
	assert.Equal(t, tokenIssuer, claims.Issuer)
}

func TestAuthService_ExpiredToken(t *testing.T) {
	auth := NewAuthService("api-key", "jwt-secret")

	token, err := auth.GenerateToken("dashboard", -time.Hour)
	require.NoError(t, err)

	_, err = auth.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthService_RejectsGarbage(t *testing.T) {
	auth := NewAuthService("api-key", "jwt-secret")

	_, err := auth.ValidateToken("invalid.token.here")
	assert.Error(t, err)

	_, err = auth.ValidateToken("")
	assert.Error(t, err)
}

func TestAuthService_WrongSecret(t *testing.T) {
	minting := NewAuthService("api-key", "secret1")
	verifying := NewAuthService("api-key", "secret2")

	token, err := minting.GenerateToken("dashboard", time.Hour)
	require.NoError(t, err)

	_, err = verifying.ValidateToken(token)
	assert.Error(t, err)
}

func TestExtractToken_BearerHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.Header.Set("Authorization", "Bearer my-token")

	assert.Equal(t, "my-token", ExtractToken(c))
}

func TestExtractToken_NonBearerHeaderRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?token=query-token", nil)
	c.Request.Header.Set("Authorization", "raw-token")

	// A malformed header wins over the query fallback
	assert.Empty(t, ExtractToken(c))
}

func TestExtractToken_QueryFallbackForSSE(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/events?token=query-token", nil)

	assert.Equal(t, "query-token", ExtractToken(c))
}

func TestExtractToken_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	assert.Empty(t, ExtractToken(c))
}

func TestExtractToken_HeaderBeatsQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?token=query-token", nil)
	c.Request.Header.Set("Authorization", "Bearer header-token")

	assert.Equal(t, "header-token", ExtractToken(c))
}
