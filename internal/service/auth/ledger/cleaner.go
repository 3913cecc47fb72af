package ledger

import (
	"context"
	"time"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
)

const (
	defaultCleanupInterval = time.Hour
	defaultRetentionDays   = 30
)

type expiredDeleter interface {
	DeleteAllExpired(ctx context.Context, olderThanDays int) (int64, error)
}

// Cleaner periodically removes old invalid records
// Runs apart from the request path; failures are only logged
type Cleaner struct {
	interval      time.Duration
	retentionDays int

	ledger expiredDeleter
	logger logger.Logger
}

func NewCleaner(ledger expiredDeleter, interval time.Duration, retentionDays int, l logger.Logger) *Cleaner {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}

	return &Cleaner{
		interval:      interval,
		retentionDays: retentionDays,
		ledger:        ledger,
		logger:        l,
	}
}

// Run until context is done. Returned channel is closed when the cleaner stopped
func (c *Cleaner) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	c.logger.Debug("Starting ledger cleaner", "interval", c.interval, "retention_days", c.retentionDays)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.logger.Debug("Ledger cleaner stopped by context")
				return

			case <-ticker.C:
				deleted, err := c.ledger.DeleteAllExpired(ctx, c.retentionDays)
				if err != nil {
					c.logger.Error("Failed to delete expired refresh tokens", "error", err)
					continue
				}
				c.logger.Debug("Ledger cleaner tick", "deleted", deleted)
			}
		}
	}()

	return idleStopped
}
