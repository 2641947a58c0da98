// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// SweepResult counts rows removed by one sweep.
type SweepResult struct {
	Sessions   int64
	MagicLinks int64
}

// Sweeper periodically deletes expired sessions and magic links. Validation
// never depends on it; it only keeps the tables small.
type Sweeper struct {
	sessions SessionRepository
	links    MagicLinkRepository
	interval time.Duration
	logger   *slog.Logger
	recorder Recorder
}

// NewSweeper creates a Sweeper. links may be nil when magic links live in a
// store that expires them itself.
func NewSweeper(sessions SessionRepository, links MagicLinkRepository, interval time.Duration, logger *slog.Logger, recorder Recorder) (*Sweeper, error) {
	if sessions == nil {
		return nil, oops.Errorf("session repository is required")
	}
	if interval <= 0 {
		return nil, oops.Code("SWEEP_INVALID_INTERVAL").
			With("interval", interval.String()).
			Errorf("sweep interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Sweeper{
		sessions: sessions,
		links:    links,
		interval: interval,
		logger:   logger,
		recorder: recorder,
	}, nil
}

// SweepOnce deletes everything expired at now.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult

	n, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		return res, oops.Code("SWEEP_FAILED").With("kind", "sessions").Wrap(err)
	}
	res.Sessions = n
	s.recorder.RecordSwept("sessions", n)

	if s.links != nil {
		n, err = s.links.DeleteExpired(ctx, now)
		if err != nil {
			return res, oops.Code("SWEEP_FAILED").With("kind", "magic_links").Wrap(err)
		}
		res.MagicLinks = n
		s.recorder.RecordSwept("magic_links", n)
	}

	return res, nil
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			res, err := s.SweepOnce(ctx, t)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.WarnContext(ctx, "sweep failed", "error", err)
				continue
			}
			if res.Sessions > 0 || res.MagicLinks > 0 {
				s.logger.DebugContext(ctx, "swept expired rows",
					"sessions", res.Sessions,
					"magic_links", res.MagicLinks)
			}
		}
	}
}
