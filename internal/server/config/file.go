package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/talenthub/internal/flagx"
	"github.com/dmitrijs2005/talenthub/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Duration fields accept
// strings such as "15m" or integer nanoseconds. Absent fields leave the
// current value untouched.
type FileConfig struct {
	EndpointAddrHTTP                  string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	DatabaseDSN                       string         `json:"database_dsn" yaml:"database_dsn"`
	RedisURL                          string         `json:"redis_url" yaml:"redis_url"`
	RunMigrations                     *bool          `json:"run_migrations" yaml:"run_migrations"`
	AccessTokenSecret                 string         `json:"access_token_secret" yaml:"access_token_secret"`
	RefreshTokenSecret                string         `json:"refresh_token_secret" yaml:"refresh_token_secret"`
	AccessTokenValidityDuration       timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration      timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	VerificationTokenValidityDuration timex.Duration `json:"verification_token_validity_duration" yaml:"verification_token_validity_duration"`
	TwoFactorCodeValidityDuration     timex.Duration `json:"two_factor_code_validity_duration" yaml:"two_factor_code_validity_duration"`
	BcryptCost                        int            `json:"bcrypt_cost" yaml:"bcrypt_cost"`
	FrontendURL                       string         `json:"frontend_url" yaml:"frontend_url"`
	APIBaseURL                        string         `json:"api_base_url" yaml:"api_base_url"`
	Mail                              FileMailConfig `json:"mail" yaml:"mail"`
	LogLevel                          string         `json:"log_level" yaml:"log_level"`
	LogFormat                         string         `json:"log_format" yaml:"log_format"`
	ServiceName                       string         `json:"service_name" yaml:"service_name"`
	OTLPEndpoint                      string         `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	AllowedOrigins                    []string       `json:"allowed_origins" yaml:"allowed_origins"`
	RateLimitPerMinute                int            `json:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
}

type FileMailConfig struct {
	Transport     string `json:"transport" yaml:"transport"`
	FromAddress   string `json:"from_address" yaml:"from_address"`
	FromName      string `json:"from_name" yaml:"from_name"`
	SMTPHost      string `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort      int    `json:"smtp_port" yaml:"smtp_port"`
	SMTPUsername  string `json:"smtp_username" yaml:"smtp_username"`
	SMTPPassword  string `json:"smtp_password" yaml:"smtp_password"`
	SMTPSecure    *bool  `json:"smtp_secure" yaml:"smtp_secure"`
	BrevoAPIKey   string `json:"brevo_api_key" yaml:"brevo_api_key"`
	BrevoEndpoint string `json:"brevo_endpoint" yaml:"brevo_endpoint"`
	NATSURL       string `json:"nats_url" yaml:"nats_url"`
	NATSSubject   string `json:"nats_subject" yaml:"nats_subject"`
}

// parseFile overlays the file named by -c/-config onto config. Files ending
// in .yaml or .yml are decoded as YAML, everything else as JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.RedisURL, fc.RedisURL)
	if fc.RunMigrations != nil {
		c.RunMigrations = *fc.RunMigrations
	}
	setString(&c.AccessTokenSecret, fc.AccessTokenSecret)
	setString(&c.RefreshTokenSecret, fc.RefreshTokenSecret)
	setDuration(&c.AccessTokenValidityDuration, fc.AccessTokenValidityDuration)
	setDuration(&c.RefreshTokenValidityDuration, fc.RefreshTokenValidityDuration)
	setDuration(&c.VerificationTokenValidityDuration, fc.VerificationTokenValidityDuration)
	setDuration(&c.TwoFactorCodeValidityDuration, fc.TwoFactorCodeValidityDuration)
	setInt(&c.BcryptCost, fc.BcryptCost)
	setString(&c.FrontendURL, fc.FrontendURL)
	setString(&c.APIBaseURL, fc.APIBaseURL)

	setString(&c.Mail.Transport, fc.Mail.Transport)
	setString(&c.Mail.FromAddress, fc.Mail.FromAddress)
	setString(&c.Mail.FromName, fc.Mail.FromName)
	setString(&c.Mail.SMTPHost, fc.Mail.SMTPHost)
	setInt(&c.Mail.SMTPPort, fc.Mail.SMTPPort)
	setString(&c.Mail.SMTPUsername, fc.Mail.SMTPUsername)
	setString(&c.Mail.SMTPPassword, fc.Mail.SMTPPassword)
	if fc.Mail.SMTPSecure != nil {
		c.Mail.SMTPSecure = *fc.Mail.SMTPSecure
	}
	setString(&c.Mail.BrevoAPIKey, fc.Mail.BrevoAPIKey)
	setString(&c.Mail.BrevoEndpoint, fc.Mail.BrevoEndpoint)
	setString(&c.Mail.NATSURL, fc.Mail.NATSURL)
	setString(&c.Mail.NATSSubject, fc.Mail.NATSSubject)

	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	setString(&c.ServiceName, fc.ServiceName)
	setString(&c.OTLPEndpoint, fc.OTLPEndpoint)
	if len(fc.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.AllowedOrigins
	}
	setInt(&c.RateLimitPerMinute, fc.RateLimitPerMinute)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
