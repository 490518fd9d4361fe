package reaper

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sqewdb/sqew/internal/metrics"
	"github.com/sqewdb/sqew/internal/registry"
)

// DepthJob samples each queue's ready-message depth into the queue_depth
// gauge on a fixed interval.
type DepthJob struct {
	ticker *time.Ticker
	done   chan struct{}
}

func NewDepthJob(reg *registry.Registry, m metrics.Service, intervalMs int64) *DepthJob {
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
				queues, err := reg.List(ctx)
				if err != nil {
					log.Error().Err(err).Msg("failed to list queues for depth metrics")
				} else {
					for _, q := range queues {
						st, err := reg.Stats(ctx, q.Name)
						if err != nil {
							log.Error().Err(err).Str("queue", q.Name).Msg("failed to fetch queue stats for depth metrics")
							continue
						}
						m.SetQueueDepth(q.Name, st.Ready)
					}
				}
				cancel()
			case <-done:
				return
			}
		}
	}()

	return &DepthJob{ticker: ticker, done: done}
}

func (j *DepthJob) Close() error {
	j.ticker.Stop()
	close(j.done)
	return nil
}
