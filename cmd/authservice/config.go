package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
)

const (
	defaultListenAddr      = "localhost:8001"
	defaultLoggingLevel    = logger.LevelInfo
	defaultEnvironment     = logger.EnvProduction
	defaultAlgorithm       = "HS256"
	defaultAccessMinutes   = 15
	defaultRefreshMinutes  = 7 * 24 * 60
	defaultResetMinutes    = 15
	defaultCleanupInterval = time.Hour
	defaultRetentionDays   = 30
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the auth service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Shared secret to sign credentials with
	SecretKey string

	// HMAC algorithm: HS256, HS384 or HS512
	Algorithm string

	// Credential lifetimes in minutes
	AccessTokenMinutes  int
	RefreshTokenMinutes int
	ResetTokenMinutes   int

	// How often invalid refresh tokens are purged and how old they must be
	LedgerCleanupInterval time.Duration
	LedgerRetentionDays   int

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:              defaultLoggingLevel,
		ListenAddr:            defaultListenAddr,
		Algorithm:             defaultAlgorithm,
		AccessTokenMinutes:    defaultAccessMinutes,
		RefreshTokenMinutes:   defaultRefreshMinutes,
		ResetTokenMinutes:     defaultResetMinutes,
		LedgerCleanupInterval: defaultCleanupInterval,
		LedgerRetentionDays:   defaultRetentionDays,
		Environment:           defaultEnvironment,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = n
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":                  setString(&c.ListenAddr),
		"DATABASE_URI":                 setString(&c.DatabaseDSN),
		"SECRET_KEY":                   setString(&c.SecretKey),
		"ALGORITHM":                    setString(&c.Algorithm),
		"ACCESS_TOKEN_EXPIRE_MINUTES":  setInt(&c.AccessTokenMinutes),
		"REFRESH_TOKEN_EXPIRE_MINUTES": setInt(&c.RefreshTokenMinutes),
		"RESET_TOKEN_EXPIRE_MINUTES":   setInt(&c.ResetTokenMinutes),
		"LEDGER_CLEANUP_INTERVAL":      setDuration(&c.LedgerCleanupInterval),
		"LEDGER_RETENTION_DAYS":        setInt(&c.LedgerRetentionDays),
		"LOG_LEVEL":                    setString(&c.LogLevel),
		"ENVIRONMENT":                  setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("authservice", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key to sign tokens")
	fs.StringVar(&c.Algorithm, "algorithm", c.Algorithm, "Token signing algorithm (HS256, HS384, HS512)")
	fs.IntVar(&c.AccessTokenMinutes, "access-minutes", c.AccessTokenMinutes, "Access token lifetime in minutes")
	fs.IntVar(&c.RefreshTokenMinutes, "refresh-minutes", c.RefreshTokenMinutes, "Refresh token lifetime in minutes")
	fs.IntVar(&c.ResetTokenMinutes, "reset-minutes", c.ResetTokenMinutes, "Password reset token lifetime in minutes")
	fs.DurationVar(&c.LedgerCleanupInterval, "cleanup-interval", c.LedgerCleanupInterval, "How often invalid refresh tokens are deleted")
	fs.IntVar(&c.LedgerRetentionDays, "retention-days", c.LedgerRetentionDays, "Keep invalid refresh tokens that many days")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database DSN is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.AccessTokenMinutes <= 0 || c.RefreshTokenMinutes <= 0 || c.ResetTokenMinutes <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}

	return errors.Join(errs...)
}
