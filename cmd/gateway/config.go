package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultRedisURL     = "redis://localhost:6379/0"
	defaultRateLimit    = 100
	defaultRateWindow   = 60
	defaultAuthTimeout  = 3 * time.Second
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the gateway will be run
	ListenAddr string

	// Upstream services
	AuthServiceURL         string
	ChatbotServiceURL      string
	ConversationServiceURL string

	// Redis that keeps admission windows
	RedisURL string

	// Requests allowed per client in RateWindowSeconds
	RateLimit         int
	RateWindowSeconds int

	// Credential check timeout
	AuthTimeout time.Duration

	// OTLP collector, metrics are not exported if empty
	OTLPEndpoint string

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:          defaultLoggingLevel,
		ListenAddr:        defaultListenAddr,
		RedisURL:          defaultRedisURL,
		RateLimit:         defaultRateLimit,
		RateWindowSeconds: defaultRateWindow,
		AuthTimeout:       defaultAuthTimeout,
		Environment:       defaultEnvironment,
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
		"RUN_ADDRESS":                 setString(&c.ListenAddr),
		"AUTH_SERVICE_URL":            setString(&c.AuthServiceURL),
		"CHATBOT_SERVICE_URL":         setString(&c.ChatbotServiceURL),
		"CONVERSATION_SERVICE_URL":    setString(&c.ConversationServiceURL),
		"REDIS_URL":                   setString(&c.RedisURL),
		"RATE_LIMIT":                  setInt(&c.RateLimit),
		"RATE_WINDOW_SECONDS":         setInt(&c.RateWindowSeconds),
		"AUTH_TIMEOUT":                setDuration(&c.AuthTimeout),
		"OTEL_EXPORTER_OTLP_ENDPOINT": setString(&c.OTLPEndpoint),
		"LOG_LEVEL":                   setString(&c.LogLevel),
		"ENVIRONMENT":                 setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("gateway", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVar(&c.AuthServiceURL, "auth-url", c.AuthServiceURL, "Auth service base URL")
	fs.StringVar(&c.ChatbotServiceURL, "chatbot-url", c.ChatbotServiceURL, "Chatbot service base URL")
	fs.StringVar(&c.ConversationServiceURL, "conversation-url", c.ConversationServiceURL, "Conversation service base URL")
	fs.StringVarP(&c.RedisURL, "redis", "r", c.RedisURL, "Redis connection URL")
	fs.IntVar(&c.RateLimit, "rate-limit", c.RateLimit, "Requests allowed per client in a window")
	fs.IntVar(&c.RateWindowSeconds, "rate-window", c.RateWindowSeconds, "Rate limit window in seconds")
	fs.DurationVar(&c.AuthTimeout, "auth-timeout", c.AuthTimeout, "Credential check timeout")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", c.OTLPEndpoint, "OTLP gRPC collector endpoint")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	var errs []error

	for name, raw := range map[string]string{
		"auth service URL":         c.AuthServiceURL,
		"chatbot service URL":      c.ChatbotServiceURL,
		"conversation service URL": c.ConversationServiceURL,
	} {
		if raw == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s is not an absolute URL: %q", name, raw))
		}
	}
	if c.RateLimit <= 0 {
		errs = append(errs, errors.New("rate limit must be positive"))
	}
	if c.RateWindowSeconds <= 0 {
		errs = append(errs, errors.New("rate window must be positive"))
	}

	return errors.Join(errs...)
}
