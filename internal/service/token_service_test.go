package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academics-api/internal/models"
	appErrors "github.com/noah-isme/sma-academics-api/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "school-idp"})
	token, err := svc.Issue(&models.User{ID: "u-1", Role: models.RoleTeacher, Email: "t@example.com"}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestTokenServiceRejects(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "school-idp"})
	user := &models.User{ID: "u-1", Role: models.RoleAdmin}

	expired, err := svc.Issue(user, -time.Minute)
	require.NoError(t, err)
	foreignIssuer, err := NewTokenService(TokenConfig{Secret: "secret", Issuer: "elsewhere"}).Issue(user, time.Hour)
	require.NoError(t, err)
	wrongSecret, err := NewTokenService(TokenConfig{Secret: "other", Issuer: "school-idp"}).Issue(user, time.Hour)
	require.NoError(t, err)
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, models.JWTClaims{UserID: "u-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	anonymous, err := svc.Issue(&models.User{Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"issuer":       foreignIssuer,
		"secret":       wrongSecret,
		"alg none":     noneAlg,
		"missing user": anonymous,
		"garbage":      "not-a-token",
	} {
		_, err := svc.ValidateToken(token)
		require.Error(t, err, name)
		assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code, name)
	}
}
