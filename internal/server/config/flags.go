package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/farmtrack/internal/flagx"
)

// parseFlags populates Config fields from command-line flags. Only flags
// that are actually present override earlier layers.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-m string   storage backend: postgres | memory
//	-s string   access token HMAC secret
//	-S string   refresh token HMAC secret
//	-t int      access token lifetime, minutes
//	-r int      refresh token lifetime, minutes
//	-b int      bcrypt cost
//	-A          allow ADMIN role on public sign-up (use -A=true / -A=false)
//	-p string   policy YAML file
//	-l float    sign-in requests per second per client
//	-B int      sign-in burst per client
//	-i int      expired token purge interval, minutes
//	-f string   log format: json | text | console
//	-v string   log level: debug | info | warn | error
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{
		"-a", "-d", "-m", "-s", "-S", "-t", "-r", "-b", "-A", "-p", "-l", "-B", "-i", "-f", "-v",
	})

	fs := flag.NewFlagSet("farmtrack", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Storage, "m", config.Storage, "storage backend")
	fs.StringVar(&config.AccessSecret, "s", config.AccessSecret, "access token secret")
	fs.StringVar(&config.RefreshSecret, "S", config.RefreshSecret, "refresh token secret")
	accessMinutes := fs.Int("t", int(config.AccessTokenTTL.Minutes()), "access token lifetime (in minutes)")
	refreshMinutes := fs.Int("r", int(config.RefreshTokenTTL.Minutes()), "refresh token lifetime (in minutes)")
	fs.IntVar(&config.BcryptCost, "b", config.BcryptCost, "bcrypt cost")
	fs.BoolVar(&config.AllowAdminSignUp, "A", config.AllowAdminSignUp, "allow ADMIN sign-up")
	fs.StringVar(&config.PolicyFile, "p", config.PolicyFile, "policy file")
	fs.Float64Var(&config.SignInRate, "l", config.SignInRate, "sign-in rate per second")
	fs.IntVar(&config.SignInBurst, "B", config.SignInBurst, "sign-in burst")
	purgeMinutes := fs.Int("i", int(config.PurgeInterval.Minutes()), "purge interval (in minutes)")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenTTL = time.Duration(*accessMinutes) * time.Minute
		case "r":
			config.RefreshTokenTTL = time.Duration(*refreshMinutes) * time.Minute
		case "i":
			config.PurgeInterval = time.Duration(*purgeMinutes) * time.Minute
		}
	})
	return nil
}
