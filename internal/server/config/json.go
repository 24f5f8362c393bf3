package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/farmtrack/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Pointer and
// zero-checked fields let a file override only what it mentions.
type JsonConfig struct {
	HTTPAddr         string          `json:"http_addr"`
	DatabaseDSN      string          `json:"database_dsn"`
	Storage          string          `json:"storage"`
	AccessSecret     string          `json:"access_secret"`
	RefreshSecret    string          `json:"refresh_secret"`
	AccessTokenTTL   *timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL  *timex.Duration `json:"refresh_token_ttl"`
	BcryptCost       int             `json:"bcrypt_cost"`
	AllowAdminSignUp *bool           `json:"allow_admin_sign_up"`
	PolicyFile       string          `json:"policy_file"`
	SignInRate       *float64        `json:"sign_in_rate"`
	SignInBurst      int             `json:"sign_in_burst"`
	PurgeInterval    *timex.Duration `json:"purge_interval"`
	LogFormat        string          `json:"log_format"`
	LogLevel         string          `json:"log_level"`
}

// parseJSON overlays the values present in the JSON file at path onto config.
func parseJSON(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.Storage, c.Storage)
	setString(&config.AccessSecret, c.AccessSecret)
	setString(&config.RefreshSecret, c.RefreshSecret)
	setString(&config.PolicyFile, c.PolicyFile)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenTTL != nil {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RefreshTokenTTL != nil {
		config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}
	if c.PurgeInterval != nil {
		config.PurgeInterval = c.PurgeInterval.Duration
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.AllowAdminSignUp != nil {
		config.AllowAdminSignUp = *c.AllowAdminSignUp
	}
	if c.SignInRate != nil {
		config.SignInRate = *c.SignInRate
	}
	if c.SignInBurst != 0 {
		config.SignInBurst = c.SignInBurst
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
