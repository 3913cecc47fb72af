package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/db"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/handlers"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/repository/postgres"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/service/auth"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/service/auth/issuer"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/service/auth/ledger"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/service/auth/tokencodec"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/service/auth/verifier"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/service/user"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	cleaner *ledger.Cleaner
	logger  logger.Logger
	close   func()
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	codec, err := tokencodec.New(c.SecretKey, c.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("error while creating token codec. Err: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	storage := postgres.NewStorage(pool)

	userService := user.NewService(user.Config{}, user.DefaultHasher, storage)
	refreshLedger := ledger.New(ledger.Config{}, storage, logger.With("component", "ledger"))
	tokenVerifier := verifier.New(verifier.Config{}, codec, refreshLedger, userService, logger.With("component", "verifier"))
	tokenIssuer := issuer.New(issuer.Config{
		AccessTTL:  time.Duration(c.AccessTokenMinutes) * time.Minute,
		RefreshTTL: time.Duration(c.RefreshTokenMinutes) * time.Minute,
		ResetTTL:   time.Duration(c.ResetTokenMinutes) * time.Minute,
	}, codec, refreshLedger, userService, logger.With("component", "issuer"))
	authService := auth.NewService(userService, tokenIssuer, tokenVerifier, refreshLedger, logger)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    handlers.NewRouter(authService, logger),
		cleaner:    ledger.NewCleaner(refreshLedger, c.LedgerCleanupInterval, c.LedgerRetentionDays, logger),
		logger:     logger,
		close:      pool.Close,
	}, nil
}

// Run starts http server and the ledger cleaner, both stop gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.close()

	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	cleanerStopped := s.cleaner.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting auth service", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-cleanerStopped

	return err
}
