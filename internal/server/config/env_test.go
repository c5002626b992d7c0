package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	env := envconfig.MapLookuper(map[string]string{
		"HTTP_ADDR":            ":9999",
		"JWT_SECRET":           "access",
		"JWT_REFRESH_SECRET":   "refresh",
		"ACCESS_TOKEN_TTL":     "900s",
		"REFRESH_TOKEN_TTL":    "720h",
		"BCRYPT_COST":          "12",
		"FRONTEND_URL":         "https://talenthub.example",
		"MAIL_TRANSPORT":       "brevo",
		"BREVO_API_KEY":        "xkeysib",
		"SMTP_SECURE":          "true",
		"RUN_MIGRATIONS":       "false",
		"CORS_ALLOWED_ORIGINS": "https://a.example,https://b.example",
	})

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseEnv(context.Background(), cfg, env))

	assert.Equal(t, ":9999", cfg.EndpointAddrHTTP)
	assert.Equal(t, "access", cfg.AccessTokenSecret)
	assert.Equal(t, "refresh", cfg.RefreshTokenSecret)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 720*time.Hour, cfg.RefreshTokenValidityDuration)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "https://talenthub.example", cfg.FrontendURL)
	assert.Equal(t, MailTransportBrevo, cfg.Mail.Transport)
	assert.Equal(t, "xkeysib", cfg.Mail.BrevoAPIKey)
	assert.True(t, cfg.Mail.SMTPSecure)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)

	// unset variables keep the previous layer
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func Test_parseEnv_BadValues(t *testing.T) {
	cfg := &Config{}
	err := parseEnv(context.Background(), cfg, envconfig.MapLookuper(map[string]string{"BCRYPT_COST": "ten"}))
	require.Error(t, err)

	err = parseEnv(context.Background(), cfg, envconfig.MapLookuper(map[string]string{"SMTP_SECURE": "maybe"}))
	require.ErrorContains(t, err, "SMTP_SECURE")
}
