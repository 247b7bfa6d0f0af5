/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envFileVar = "GHOSTLY_ENV_FILE"

type Config struct {
	baseURL            string
	bind               string
	candidates         int
	googleClientID     string
	googleClientSecret string
	nameColumn         string
	names              string
	port               int
	prefix             string
	profile            bool
	reservations       string
	sessionSecret      string
	sessionTimeout     time.Duration
	strictClaims       bool
	tlsCert            string
	tlsKey             string
	verbose            bool
	version            bool

	log *zap.SugaredLogger
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if (c.googleClientID == "") != (c.googleClientSecret == "") {
		return errors.New("both --google-client-id and --google-client-secret must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.candidates < 1 {
		return fmt.Errorf("invalid candidate count (must be at least 1): %d", c.candidates)
	}
	if c.names == "" {
		return errors.New("--names must point to a csv file")
	}
	if c.sessionTimeout <= 0 {
		return fmt.Errorf("invalid session timeout: %s", c.sessionTimeout)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) logger() *zap.SugaredLogger {
	if c.log == nil {
		return zap.NewNop().Sugar()
	}
	return c.log
}

// loadEnvFile exports the variables in a dotenv file without overriding
// anything already set in the environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return err
		}
	}

	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	envFile := os.Getenv(envFileVar)
	if envFile == "" {
		envFile = ".env"
	}
	envErr := loadEnvFile(envFile)

	v := viper.New()
	v.SetEnvPrefix("GHOSTLY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "ghostly",
		Short:         "Lets signed-in users claim a unique ghost name from a shared pool.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return envErr
			}
			if err := cfg.validate(); err != nil {
				return err
			}

			log, err := newLogger(cfg.verbose)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			cfg.log = log.Sugar()

			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.baseURL, "base-url", "", "external url used for login redirects, derived from each request if empty (env: GHOSTLY_BASE_URL)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: GHOSTLY_BIND)")
	fs.IntVar(&cfg.candidates, "candidates", 3, "number of free names offered to choose from (env: GHOSTLY_CANDIDATES)")
	fs.StringVar(&cfg.googleClientID, "google-client-id", "", "google oauth client id (env: GHOSTLY_GOOGLE_CLIENT_ID or GOOGLE_CLIENT_ID)")
	fs.StringVar(&cfg.googleClientSecret, "google-client-secret", "", "google oauth client secret (env: GHOSTLY_GOOGLE_CLIENT_SECRET or GOOGLE_CLIENT_SECRET)")
	fs.StringVar(&cfg.nameColumn, "name-column", "Ghost name", "csv header of the ghost name column (env: GHOSTLY_NAME_COLUMN)")
	fs.StringVarP(&cfg.names, "names", "n", "ghost names.csv", "csv file holding the ghost name pool (env: GHOSTLY_NAMES)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: GHOSTLY_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: GHOSTLY_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: GHOSTLY_PROFILE)")
	fs.StringVar(&cfg.reservations, "reservations", "", "yaml or toml file of holders to reserve names for at startup (env: GHOSTLY_RESERVATIONS)")
	fs.StringVar(&cfg.sessionSecret, "session-secret", "", "key used to sign session cookies, random per process if empty (env: GHOSTLY_SESSION_SECRET)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 24*time.Hour, "lifetime of a login session (env: GHOSTLY_SESSION_TIMEOUT)")
	fs.BoolVar(&cfg.strictClaims, "strict-claims", false, "refuse names already held by someone else (env: GHOSTLY_STRICT_CLAIMS)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: GHOSTLY_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: GHOSTLY_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: GHOSTLY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: GHOSTLY_VERSION)")

	// Also accept the unprefixed variables Google's console examples use.
	_ = v.BindEnv("google-client-id", "GHOSTLY_GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_ID")
	_ = v.BindEnv("google-client-secret", "GHOSTLY_GOOGLE_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		if !strings.HasPrefix(f.Name, "google-") {
			_ = v.BindEnv(f.Name)
		}
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("ghostly v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
