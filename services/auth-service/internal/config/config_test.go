package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "access")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Token.AccessTokenExpiresIn)
	assert.Equal(t, 30*24*time.Hour, cfg.Token.RefreshTokenExpiresIn)
	assert.Equal(t, time.Hour, cfg.Token.PasswordResetExpiresIn)
	assert.Equal(t, 5, cfg.Token.MaxRefreshTokens)
	assert.Equal(t, 2*time.Minute, cfg.OTP.LoginExpiresIn)
	assert.Equal(t, 5*time.Minute, cfg.OTP.ResendExpiresIn)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Consul.Addr)
}

func TestLoad_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"ACCESS_TOKEN_SECRET=file-access\n"+
			"REFRESH_TOKEN_SECRET=file-refresh\n"+
			"APP_ENV=production\n"+
			"ADMIN_EMAIL=owner@shop.test\n"+
			"OTP_LOGIN_EXPIRES_IN=90s\n",
	), 0o600))

	// godotenv never overrides variables that are already set.
	t.Setenv("APP_ENV", "staging")
	for _, key := range []string{"ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET", "ADMIN_EMAIL", "OTP_LOGIN_EXPIRES_IN"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "file-access", cfg.Token.AccessTokenSecret)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "owner@shop.test", cfg.AdminEmail)
	assert.Equal(t, 90*time.Second, cfg.OTP.LoginExpiresIn)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing access secret",
			env:  map[string]string{"ACCESS_TOKEN_SECRET": "", "REFRESH_TOKEN_SECRET": "r"},
			want: "ACCESS_TOKEN_SECRET",
		},
		{
			name: "missing refresh secret",
			env:  map[string]string{"ACCESS_TOKEN_SECRET": "a", "REFRESH_TOKEN_SECRET": ""},
			want: "REFRESH_TOKEN_SECRET",
		},
		{
			name: "shared secret",
			env:  map[string]string{"ACCESS_TOKEN_SECRET": "same", "REFRESH_TOKEN_SECRET": "same"},
			want: "must differ",
		},
		{
			name: "non-positive cap",
			env:  map[string]string{"ACCESS_TOKEN_SECRET": "a", "REFRESH_TOKEN_SECRET": "r", "MAX_REFRESH_TOKENS": "0"},
			want: "MAX_REFRESH_TOKENS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
