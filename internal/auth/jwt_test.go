package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32ch"

func TestJWTService_GenerateAndValidate(t *testing.T) {
	service := NewJWTService(testSecret, time.Hour)

	token, expiresAt, err := service.Generate("ops-user", "reporting")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := service.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops-user", claims.Subject)
	assert.Equal(t, "reporting", claims.Role)
}

func TestJWTService_Validate_WrongSecret(t *testing.T) {
	service := NewJWTService(testSecret, time.Hour)
	other := NewJWTService("a-completely-different-signing-secret", time.Hour)

	token, _, err := service.Generate("ops-user", "reporting")
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_Validate_ExpiredToken(t *testing.T) {
	service := NewJWTService(testSecret, -time.Minute)

	token, _, err := service.Generate("ops-user", "reporting")
	require.NoError(t, err)

	_, err = service.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_Validate_Garbage(t *testing.T) {
	service := NewJWTService(testSecret, time.Hour)

	_, err := service.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
