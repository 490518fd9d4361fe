package reaper

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sqewdb/sqew/internal/store"
)

// OptimizeJob runs PRAGMA optimize on a fixed interval, grounded on the
// teacher's maintenance job of the same shape.
type OptimizeJob struct {
	ticker *time.Ticker
	done   chan struct{}
}

func NewOptimizeJob(st *store.Store, intervalMs int64) *OptimizeJob {
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				budget := intervalMs - 1000
				if budget < 1000 {
					budget = 1000
				}
				ctx, cancel := context.WithTimeout(context.Background(), time.Duration(budget)*time.Millisecond)
				if err := st.Optimize(ctx); err != nil {
					log.Error().Err(err).Msg("failed to run PRAGMA optimize")
				}
				cancel()
			case <-done:
				return
			}
		}
	}()

	return &OptimizeJob{ticker: ticker, done: done}
}

func (j *OptimizeJob) Close() error {
	j.ticker.Stop()
	close(j.done)
	return nil
}
