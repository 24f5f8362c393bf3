package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv copies variables from a .env file into the process environment.
// Variables that are already set win; a missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// parseEnv overlays FARMTRACK_* environment variables onto config.
// Durations use Go syntax ("15m", "168h").
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("FARMTRACK_HTTP_ADDR", &config.HTTPAddr)
	str("FARMTRACK_DATABASE_DSN", &config.DatabaseDSN)
	str("FARMTRACK_STORAGE", &config.Storage)
	str("FARMTRACK_ACCESS_SECRET", &config.AccessSecret)
	str("FARMTRACK_REFRESH_SECRET", &config.RefreshSecret)
	str("FARMTRACK_POLICY_FILE", &config.PolicyFile)
	str("FARMTRACK_LOG_FORMAT", &config.LogFormat)
	str("FARMTRACK_LOG_LEVEL", &config.LogLevel)
	dur("FARMTRACK_ACCESS_TTL", &config.AccessTokenTTL)
	dur("FARMTRACK_REFRESH_TTL", &config.RefreshTokenTTL)
	dur("FARMTRACK_PURGE_INTERVAL", &config.PurgeInterval)
	integer("FARMTRACK_BCRYPT_COST", &config.BcryptCost)
	integer("FARMTRACK_SIGNIN_BURST", &config.SignInBurst)

	if v, ok := lookup("FARMTRACK_SIGNIN_RATE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("FARMTRACK_SIGNIN_RATE: %w", err))
		} else {
			config.SignInRate = f
		}
	}
	if v, ok := lookup("FARMTRACK_ALLOW_ADMIN_SIGNUP"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FARMTRACK_ALLOW_ADMIN_SIGNUP: %w", err))
		} else {
			config.AllowAdminSignUp = b
		}
	}

	return errors.Join(errs...)
}
