package giftcard

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Expirer is the part of Service the sweep needs.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// Worker sweeps overdue gift cards on a cron schedule
type Worker struct {
	expirer Expirer
	timeout time.Duration
}

// NewWorker creates a new expiry worker
func NewWorker(expirer Expirer) *Worker {
	return &Worker{expirer: expirer, timeout: 30 * time.Second}
}

// Register adds the sweep to c under spec and runs it once immediately.
func (w *Worker) Register(c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, w.processExpirations)
	if err != nil {
		return 0, err
	}
	log.Info().Str("spec", spec).Msg("Gift card expiry job registered")
	w.processExpirations()
	return id, nil
}

func (w *Worker) processExpirations() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if _, err := w.expirer.ExpireOverdue(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to expire overdue gift cards")
	}
}
