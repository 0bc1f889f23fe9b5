package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/skillgate/assess-backend/internal/service"
)

// DeadlineWorker periodically sweeps the deadline index and auto-submits
// sessions whose time limit has run out.
type DeadlineWorker struct {
	sessionService *service.SessionService
	interval       time.Duration
	log            zerolog.Logger
}

func NewDeadlineWorker(sessionService *service.SessionService, interval time.Duration, log zerolog.Logger) *DeadlineWorker {
	return &DeadlineWorker{
		sessionService: sessionService,
		interval:       interval,
		log:            log.With().Str("component", "deadline_worker").Logger(),
	}
}

func (w *DeadlineWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("DeadlineWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested")
			return

		case <-ticker.C:
			if expired := w.sessionService.ExpireOverdue(ctx); expired > 0 {
				w.log.Info().Int("expired", expired).Msg("Swept overdue sessions")
			}
		}
	}
}
