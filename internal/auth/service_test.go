package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, password string, expiry time.Duration) *Service {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return NewService(&Config{
		JWTSecret:         []byte("0123456789abcdef0123456789abcdef"),
		AdminPasswordHash: hash,
		TokenExpiry:       expiry,
	}, nil)
}

func TestLoginRoundTrip(t *testing.T) {
	svc := newTestService(t, "hunter2", time.Hour)
	require.True(t, svc.Enabled())

	token, err := svc.Login("hunter2")
	require.NoError(t, err)

	subject, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "admin", subject)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t, "hunter2", time.Hour)

	_, err := svc.Login("wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginDisabled(t *testing.T) {
	svc := NewService(&Config{}, nil)
	require.False(t, svc.Enabled())

	_, err := svc.Login("anything")
	require.ErrorIs(t, err, ErrDisabled)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := newTestService(t, "pw", -time.Minute)

	token, err := svc.GenerateToken("admin")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	svc := newTestService(t, "pw", time.Hour)
	other := NewService(&Config{
		JWTSecret: []byte("ffffffffffffffffffffffffffffffff"),
	}, nil)

	token, err := other.GenerateToken("admin")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := newTestService(t, "pw", time.Hour)

	_, err := svc.ValidateToken("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateTokenRequiresSubject(t *testing.T) {
	svc := newTestService(t, "pw", time.Hour)

	_, err := svc.GenerateToken("")
	require.ErrorIs(t, err, ErrMissingClaims)
}
