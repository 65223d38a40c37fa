package server

import (
	"testing"
	"time"

	"github.com/jonathan/hrms/internal/config"
	"github.com/jonathan/hrms/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTService(now time.Time) *JWTService {
	s := NewJWTService(&config.JWTConfig{
		SessionSecret:   "test-session-secret-0123456789",
		LinkSecret:      "test-link-secret-0123456789",
		ExpirationHours: 12,
	})
	s.now = func() time.Time { return now }
	return s
}

func TestJWTService_RoundTrip(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	s := testJWTService(now)

	token, err := s.GenerateToken(types.Actor{Email: " HR@Example.com ", Role: "HR"})
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, types.Actor{Email: "hr@example.com", Role: types.RoleHR}, claims.GetActor())
	assert.Equal(t, now.Add(12*time.Hour), claims.ExpiresAt.Time.UTC())
}

func TestJWTService_Rejects(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	s := testJWTService(now)

	token, err := s.GenerateToken(types.Actor{Email: "ea@example.com", Role: types.RoleEA})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := testJWTService(now.Add(13 * time.Hour))
		_, err := later.ValidateToken(token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := testJWTService(now)
		other.config = &config.JWTConfig{SessionSecret: "another-secret-entirely", ExpirationHours: 12}
		_, err := other.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := s.ValidateToken("not.a.token")
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := s.ValidateToken("")
		assert.Error(t, err)
	})
}

func TestJWTService_GenerateValidation(t *testing.T) {
	s := testJWTService(time.Now())

	_, err := s.GenerateToken(types.Actor{Role: types.RoleHR})
	assert.Error(t, err, "email required")

	_, err = s.GenerateToken(types.Actor{Email: "x@example.com", Role: "owner"})
	assert.Error(t, err, "unknown role")
}
