// Package reaper runs the background ticker jobs that keep a Sqew
// database tidy: TTL expiry and periodic SQLite optimization.
package reaper

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sqewdb/sqew/internal/clock"
	"github.com/sqewdb/sqew/internal/metrics"
	"github.com/sqewdb/sqew/internal/store"
)

// ExpiryJob sweeps messages past their expires_at on a fixed interval.
type ExpiryJob struct {
	ticker *time.Ticker
	done   chan struct{}
}

func NewExpiryJob(st *store.Store, c clock.Clock, m metrics.Service, intervalMs int64) *ExpiryJob {
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				budget := intervalMs - 100
				if budget < 100 {
					budget = 100
				}
				ctx, cancel := context.WithTimeout(context.Background(), time.Duration(budget)*time.Millisecond)
				n, err := st.ExpireMessages(ctx, c.NowMs())
				if err != nil {
					log.Error().Err(err).Msg("failed to expire messages")
				} else if n > 0 {
					m.IncMessagesExpiredTotalBy(n)
				}
				cancel()
			case <-done:
				return
			}
		}
	}()

	return &ExpiryJob{ticker: ticker, done: done}
}

func (j *ExpiryJob) Close() error {
	j.ticker.Stop()
	close(j.done)
	return nil
}
