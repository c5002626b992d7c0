package config

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// envConfig lists the environment variables the server honours. Only
// variables that are set override earlier layers.
type envConfig struct {
	EndpointAddrHTTP   string        `env:"HTTP_ADDR"`
	DatabaseDSN        string        `env:"DATABASE_URL"`
	RedisURL           string        `env:"REDIS_URL"`
	RunMigrations      string        `env:"RUN_MIGRATIONS"`
	AccessTokenSecret  string        `env:"JWT_SECRET"`
	RefreshTokenSecret string        `env:"JWT_REFRESH_SECRET"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL"`
	VerificationTTL    time.Duration `env:"VERIFICATION_TOKEN_TTL"`
	TwoFactorCodeTTL   time.Duration `env:"TWO_FACTOR_CODE_TTL"`
	BcryptCost         int           `env:"BCRYPT_COST"`
	FrontendURL        string        `env:"FRONTEND_URL"`
	APIBaseURL         string        `env:"API_URL"`

	MailTransport     string `env:"MAIL_TRANSPORT"`
	MailFromAddress   string `env:"MAIL_FROM"`
	MailFromName      string `env:"MAIL_FROM_NAME"`
	SMTPHost          string `env:"SMTP_HOST"`
	SMTPPort          int    `env:"SMTP_PORT"`
	SMTPUsername      string `env:"SMTP_USER"`
	SMTPPassword      string `env:"SMTP_PASSWORD"`
	SMTPSecure        string `env:"SMTP_SECURE"`
	BrevoAPIKey       string `env:"BREVO_API_KEY"`
	BrevoEndpoint     string `env:"BREVO_ENDPOINT"`
	NATSURL           string `env:"NATS_URL"`
	NATSSubject       string `env:"NATS_MAIL_SUBJECT"`

	LogLevel           string   `env:"LOG_LEVEL"`
	LogFormat          string   `env:"LOG_FORMAT"`
	ServiceName        string   `env:"OTEL_SERVICE_NAME"`
	OTLPEndpoint       string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins     []string `env:"CORS_ALLOWED_ORIGINS"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE"`
}

func parseEnv(ctx context.Context, c *Config, lookuper envconfig.Lookuper) error {
	var ec envConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &ec, Lookuper: lookuper}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	setString(&c.EndpointAddrHTTP, ec.EndpointAddrHTTP)
	setString(&c.DatabaseDSN, ec.DatabaseDSN)
	setString(&c.RedisURL, ec.RedisURL)
	if err := setBool(&c.RunMigrations, "RUN_MIGRATIONS", ec.RunMigrations); err != nil {
		return err
	}
	setString(&c.AccessTokenSecret, ec.AccessTokenSecret)
	setString(&c.RefreshTokenSecret, ec.RefreshTokenSecret)
	setEnvDuration(&c.AccessTokenValidityDuration, ec.AccessTokenTTL)
	setEnvDuration(&c.RefreshTokenValidityDuration, ec.RefreshTokenTTL)
	setEnvDuration(&c.VerificationTokenValidityDuration, ec.VerificationTTL)
	setEnvDuration(&c.TwoFactorCodeValidityDuration, ec.TwoFactorCodeTTL)
	setInt(&c.BcryptCost, ec.BcryptCost)
	setString(&c.FrontendURL, ec.FrontendURL)
	setString(&c.APIBaseURL, ec.APIBaseURL)

	setString(&c.Mail.Transport, ec.MailTransport)
	setString(&c.Mail.FromAddress, ec.MailFromAddress)
	setString(&c.Mail.FromName, ec.MailFromName)
	setString(&c.Mail.SMTPHost, ec.SMTPHost)
	setInt(&c.Mail.SMTPPort, ec.SMTPPort)
	setString(&c.Mail.SMTPUsername, ec.SMTPUsername)
	setString(&c.Mail.SMTPPassword, ec.SMTPPassword)
	if err := setBool(&c.Mail.SMTPSecure, "SMTP_SECURE", ec.SMTPSecure); err != nil {
		return err
	}
	setString(&c.Mail.BrevoAPIKey, ec.BrevoAPIKey)
	setString(&c.Mail.BrevoEndpoint, ec.BrevoEndpoint)
	setString(&c.Mail.NATSURL, ec.NATSURL)
	setString(&c.Mail.NATSSubject, ec.NATSSubject)

	setString(&c.LogLevel, ec.LogLevel)
	setString(&c.LogFormat, ec.LogFormat)
	setString(&c.ServiceName, ec.ServiceName)
	setString(&c.OTLPEndpoint, ec.OTLPEndpoint)
	if len(ec.AllowedOrigins) > 0 {
		c.AllowedOrigins = ec.AllowedOrigins
	}
	setInt(&c.RateLimitPerMinute, ec.RateLimitPerMinute)
	return nil
}

func setEnvDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func setBool(dst *bool, name, raw string) error {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*dst = v
	return nil
}
