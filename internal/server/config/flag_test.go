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
		name    string
		args    []string
		want    func() *Config
		wantErr bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-d", "db", "-m", "memory", "-s", "acc", "-S", "ref",
				"-t", "1", "-r", "3", "-b", "12", "-A=true", "-p", "policy.yaml",
				"-l", "2.5", "-B", "4", "-i", "30", "-f", "console", "-v", "debug",
			},
			want: func() *Config {
				return &Config{
					HTTPAddr:         "127.0.0.1:9090",
					DatabaseDSN:      "db",
					Storage:          "memory",
					AccessSecret:     "acc",
					RefreshSecret:    "ref",
					AccessTokenTTL:   1 * time.Minute,
					RefreshTokenTTL:  3 * time.Minute,
					BcryptCost:       12,
					AllowAdminSignUp: true,
					PolicyFile:       "policy.yaml",
					SignInRate:       2.5,
					SignInBurst:      4,
					PurgeInterval:    30 * time.Minute,
					LogFormat:        "console",
					LogLevel:         "debug",
				}
			},
		},
		{
			name: "unset duration flags keep sub-minute values",
			args: []string{"-a", ":1"},
			want: func() *Config {
				c := defaults()
				c.AccessTokenTTL = 90 * time.Second
				c.HTTPAddr = ":1"
				return c
			},
		},
		{
			name:    "bad int",
			args:    []string{"-t", "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			c.AccessTokenTTL = 90 * time.Second

			err := parseFlags(c, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.want(), c))
		})
	}
}
