package server

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/nidhal-dev/authfront/internal/app"
)

// ParseSchedule parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week)
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid keepalive schedule %q: %w", expr, err)
	}
	return schedule, nil
}

// RunKeepalive calls the API on the given schedule while a user is logged in,
// so an expired access token is refreshed before the browser needs it. It
// returns when ctx is cancelled.
func RunKeepalive(ctx context.Context, schedule cron.Schedule, a *app.App, logger zerolog.Logger) {
	logger = logger.With().Str("worker", "keepalive").Logger()

	for {
		next := schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		keepalive(ctx, a, logger)
	}
}

func keepalive(ctx context.Context, a *app.App, logger zerolog.Logger) {
	if !a.Sessions.IsUserAuthenticated() {
		logger.Debug().Msg("No session - skipping keepalive")
		return
	}

	if _, err := a.Client.Home(ctx); err != nil {
		logger.Warn().Err(err).Msg("Keepalive request failed")
		return
	}

	logger.Debug().Msg("Keepalive succeeded")
}
