package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	t.Parallel()

	svc := NewJWTService("test-secret", 1)
	token, err := svc.Generate(7, "user7@example.com")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.UserID)
	require.Equal(t, "user7@example.com", claims.Email)
}

func TestJWTExpired(t *testing.T) {
	t.Parallel()

	svc := NewJWTService("test-secret", -1)
	token, err := svc.Generate(7, "user7@example.com")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := NewJWTService("secret-a", 1).Generate(7, "user7@example.com")
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", 1).Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTGarbage(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService("test-secret", 1).Validate("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
