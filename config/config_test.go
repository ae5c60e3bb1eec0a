package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: memory
jwt:
  secret: s3cret
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 1313, cfg.Server.Port)
	assert.Equal(t, 1000, cfg.Gamification.XPPerLevel)
	assert.Equal(t, 10, cfg.Gamification.XPLoginStreak)
	assert.Equal(t, 6, cfg.Auth.PasswordMinLength)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LoginWindow)
	assert.Equal(t, "s3cret", cfg.Session.Secret, "session secret falls back to the jwt secret")
	assert.Equal(t, "sql", cfg.Activity.Store)
	assert.NotEmpty(t, cfg.RBAC.Policies)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database:
  driver: memory
jwt:
  secret: s3cret
gamification:
  xpPerLevel: 500
  timezone: America/Sao_Paulo
auth:
  loginWindow: 2m
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 500, cfg.Gamification.XPPerLevel)
	assert.Equal(t, 2*time.Minute, cfg.Auth.LoginWindow)
	assert.Equal(t, "America/Sao_Paulo", cfg.Location().String())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: memory
jwt:
  secret: from-file
`)
	t.Setenv("MATERNAR_JWT_SECRET", "from-env")
	t.Setenv("MATERNAR_PORT", "8088")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 8088, cfg.Server.Port)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing jwt secret", "database:\n  driver: memory\n"},
		{"postgres without url", "database:\n  driver: postgres\njwt:\n  secret: x\n"},
		{"unknown driver", "database:\n  driver: sqlite\njwt:\n  secret: x\n"},
		{"mongo store without uri", "database:\n  driver: memory\njwt:\n  secret: x\nactivity:\n  store: mongo\n"},
		{"bad timezone", "database:\n  driver: memory\njwt:\n  secret: x\ngamification:\n  timezone: Mars/Base\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
