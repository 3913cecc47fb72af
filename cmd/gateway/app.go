package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/gateway"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/ratelimit"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/telemetry"
)

const serviceName = "api-gateway"

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
	close  func(ctx context.Context) error
}

func upstreams(c *Config) ([]gateway.Upstream, error) {
	mounts := []struct {
		name   string
		prefix string
		raw    string
	}{
		{"auth_service", "/auth", c.AuthServiceURL},
		{"chatbot_service", "/chatbot", c.ChatbotServiceURL},
		{"conversation_service", "/conversation", c.ConversationServiceURL},
	}

	res := make([]gateway.Upstream, 0, len(mounts))
	for _, m := range mounts {
		u, err := url.Parse(m.raw)
		if err != nil {
			return nil, fmt.Errorf("bad %s url: %w", m.name, err)
		}
		res = append(res, gateway.Upstream{Name: m.name, Prefix: m.prefix, URL: u})
	}
	return res, nil
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	ups, err := upstreams(c)
	if err != nil {
		return nil, err
	}

	redisOpts, err := goredis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("error while parsing redis url. Err: %w", err)
	}
	redisClient := goredis.NewClient(redisOpts)

	meterProvider, err := telemetry.NewMeterProvider(ctx, c.OTLPEndpoint, serviceName)
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("error while initializing metrics. Err: %w", err)
	}
	metrics, err := telemetry.NewMetrics(meterProvider)
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("error while registering metrics. Err: %w", err)
	}

	limiter := ratelimit.New(ratelimit.Config{
		Limit:  c.RateLimit,
		Window: time.Duration(c.RateWindowSeconds) * time.Second,
	}, redisClient)
	authClient := gateway.NewAuthClient(c.AuthServiceURL, c.AuthTimeout, logger.With("component", "authclient"))

	router := gateway.NewRouter(gateway.RouterConfig{
		Upstreams:    ups,
		HealthClient: &http.Client{},
	}, limiter, authClient, metrics, logger)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    router,
		logger:     logger,
		close: func(ctx context.Context) error {
			return errors.Join(meterProvider.Shutdown(ctx), redisClient.Close())
		},
	}, nil
}

// Run http server and stop it gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		if err := s.close(timeoutCtx); err != nil {
			s.logger.Warn("Error while releasing gateway resources", "error", err.Error())
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	s.logger.Info("Starting api gateway", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
