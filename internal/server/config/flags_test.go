package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		start    Config
		expected Config
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-d", "db", "-m", "redis://r", "-s", "access", "-k", "refresh",
				"-t", "1", "-r", "3", "-l", "debug", "-migrate=false",
			},
			start: Config{RunMigrations: true},
			expected: Config{
				EndpointAddrHTTP:             "127.0.0.1:9090",
				DatabaseDSN:                  "db",
				RedisURL:                     "redis://r",
				AccessTokenSecret:            "access",
				RefreshTokenSecret:           "refresh",
				AccessTokenValidityDuration:  1 * time.Minute,
				RefreshTokenValidityDuration: 3 * time.Minute,
				LogLevel:                     "debug",
				RunMigrations:                false,
			},
		},
		{
			name:     "unset duration flags keep sub-minute values",
			args:     []string{"-a", ":1"},
			start:    Config{AccessTokenValidityDuration: 90 * time.Second},
			expected: Config{EndpointAddrHTTP: ":1", AccessTokenValidityDuration: 90 * time.Second},
		},
		{
			name:    "bad integer",
			args:    []string{"-t", "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.start
			err := parseFlags(&cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
