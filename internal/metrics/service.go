// Package metrics defines the counters and gauges the engine updates;
// the HTTP adapter exposes them in Prometheus text format.
package metrics

const (
	DroppedAttemptsCapReason = "attempts_cap"
	DroppedTTLReason         = "ttl"
)

type Service interface {
	IncMessagesEnqueuedTotalBy(count int64, queueName string, deduplicated bool)
	IncMessagesLeasedTotalBy(count int64, queueName string)
	IncMessagesAckedTotalBy(count int64, queueName string)
	IncMessagesNackedTotalBy(count int64, queueName string)
	IncMessagesRescheduledTotalBy(count int64, queueName string)
	IncMessagesDroppedTotalBy(count int64, queueName, reason string)
	IncMessagesMovedToDlqTotalBy(count int64, queueName string)
	IncMessagesExpiredTotalBy(count int64)
	SetQueueDepth(queueName string, depth int64)
	ObserveBusyTimeout(op string)
}

func New(enabled bool) Service {
	if enabled {
		return newPrometheusService()
	}
	return newNoopService()
}
