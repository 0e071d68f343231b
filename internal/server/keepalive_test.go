package server

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// every fires at a fixed sub-second interval
type every time.Duration

func (e every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

func TestParseSchedule(t *testing.T) {
	schedule, err := ParseSchedule("*/5 * * * *")
	require.NoError(t, err)

	from := time.Date(2026, 1, 1, 10, 2, 30, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 5, 0, 0, time.UTC), schedule.Next(from))

	_, err = ParseSchedule("every minute")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid keepalive schedule")

	// Seconds field is not accepted
	_, err = ParseSchedule("0 */5 * * * *")
	require.Error(t, err)
}

func TestRunKeepalive_RefreshesLoggedInSession(t *testing.T) {
	s, api := newTestServer(t, "ROLE_USER")
	loginAs(t, s)
	api.expire()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunKeepalive(ctx, every(10*time.Millisecond), s.app, zerolog.Nop())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		for _, r := range api.seen() {
			if r == "POST auth/refresh-token" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepalive did not stop after cancel")
	}

	assert.Contains(t, api.seen(), "GET home")
}

func TestRunKeepalive_SkipsAnonymous(t *testing.T) {
	s, api := newTestServer(t, "ROLE_USER")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	RunKeepalive(ctx, every(10*time.Millisecond), s.app, zerolog.Nop())

	assert.Empty(t, api.seen())
}

func TestNew_InvalidKeepaliveSchedule(t *testing.T) {
	s, _ := newTestServer(t, "ROLE_USER")

	cfg := *s.config
	cfg.Shell.KeepaliveSchedule = "not a schedule"
	_, err := New(&cfg, s.app, zerolog.Nop(), "test")
	require.Error(t, err)
}
