package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "flag with equals",
			args:         []string{"--config=alt.json", "-a", "localhost"},
			allowedFlags: []string{"--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag followed by another flag keeps no value",
			args:         []string{"-t", "-s", "secret"},
			allowedFlags: []string{"-t", "-s"},
			want:         []string{"-t", "-s", "secret"},
		},
		{
			name:         "boolean style flag at the end",
			args:         []string{"-a", ":9090", "-A"},
			allowedFlags: []string{"-a", "-A"},
			want:         []string{"-a", ":9090", "-A"},
		},
		{
			name:         "repeated flag is preserved in order",
			args:         []string{"-c", "one.json", "-c", "two.json"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "one.json", "-c", "two.json"},
		},
		{
			name:         "empty args",
			args:         nil,
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigPath(t *testing.T) {
	t.Run("short flag", func(t *testing.T) {
		assert.Equal(t, "/etc/farmtrack.json", ConfigPath([]string{"-a", ":1", "-c", "/etc/farmtrack.json"}, ""))
	})

	t.Run("long flag with equals", func(t *testing.T) {
		assert.Equal(t, "/tmp/x.json", ConfigPath([]string{"-config=/tmp/x.json"}, ""))
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv("FARMTRACK_TEST_CONFIG", "/from/env.json")
		assert.Equal(t, "/from/env.json", ConfigPath([]string{"-a", ":1"}, "FARMTRACK_TEST_CONFIG"))
	})

	t.Run("flag beats env", func(t *testing.T) {
		t.Setenv("FARMTRACK_TEST_CONFIG", "/from/env.json")
		assert.Equal(t, "/from/flag.json", ConfigPath([]string{"-c", "/from/flag.json"}, "FARMTRACK_TEST_CONFIG"))
	})

	t.Run("nothing set", func(t *testing.T) {
		assert.Empty(t, ConfigPath([]string{"-x", "1"}, ""))
	})
}
