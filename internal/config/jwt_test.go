package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig_DefaultValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("JWT_EXPIRATION_HOURS", "")
	t.Setenv("JWT_ISSUER", "")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "test-secret-key", cfg.Secret)
	assert.Equal(t, 24, cfg.ExpirationHours, "should use default expiration of 24 hours")
	assert.Equal(t, DefaultJWTIssuer, cfg.Issuer)
}

func TestNewJWTConfig_CustomValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "my-secret-key-123")
	t.Setenv("JWT_EXPIRATION_HOURS", "168")
	t.Setenv("JWT_ISSUER", "ops-dashboard")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, 168, cfg.ExpirationHours)
	assert.Equal(t, "ops-dashboard", cfg.Issuer)
}

func TestNewJWTConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := NewJWTConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestNewJWTConfig_InvalidExpiration(t *testing.T) {
	tests := []struct {
		name       string
		expiration string
	}{
		{name: "non-numeric expiration", expiration: "invalid"},
		{name: "zero expiration", expiration: "0"},
		{name: "negative expiration", expiration: "-1"},
		{name: "float expiration", expiration: "12.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret-key")
			t.Setenv("JWT_EXPIRATION_HOURS", tt.expiration)

			cfg, err := NewJWTConfig()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "JWT_EXPIRATION_HOURS")
		})
	}
}

func TestOptionalJWTConfig(t *testing.T) {
	t.Run("unset secret disables auth", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		cfg, err := OptionalJWTConfig()
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("secret set", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("JWT_EXPIRATION_HOURS", "")
		cfg, err := OptionalJWTConfig()
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "s", cfg.Secret)
	})

	t.Run("bad expiration still reported", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("JWT_EXPIRATION_HOURS", "soon")
		_, err := OptionalJWTConfig()
		assert.Error(t, err)
	})
}
