package metrics

import "github.com/prometheus/client_golang/prometheus"

type prometheusService struct {
	messagesEnqueuedTotal     *prometheus.CounterVec
	messagesLeasedTotal       *prometheus.CounterVec
	messagesAckedTotal        *prometheus.CounterVec
	messagesNackedTotal       *prometheus.CounterVec
	messagesRescheduledTotal  *prometheus.CounterVec
	messagesDroppedTotal      *prometheus.CounterVec
	messagesMovedToDlqTotal   *prometheus.CounterVec
	messagesExpiredTotal      prometheus.Counter
	queueDepth                *prometheus.GaugeVec
	busyTimeoutTotal          *prometheus.CounterVec
}

func newPrometheusService() *prometheusService {
	srv := &prometheusService{
		messagesEnqueuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqew_messages_enqueued_total",
				Help: "Total number of messages submitted by producers",
			},
			[]string{"queue_name", "deduplicated"},
		),
		messagesLeasedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqew_messages_leased_total",
				Help: "Total number of messages claimed by a lease call. Does not imply ack/nack yet",
			},
			[]string{"queue_name"},
		),
		messagesAckedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqew_messages_acked_total",
				Help: "Total number of messages acknowledged",
			},
			[]string{"queue_name"},
		),
		messagesNackedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqew_messages_nacked_total",
				Help: "Total number of nack calls, regardless of outcome",
			},
			[]string{"queue_name"},
		),
		messagesRescheduledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqew_messages_rescheduled_total",
				Help: "Total number of messages rescheduled after a nack with attempts remaining",
			},
			[]string{"queue_name"},
		),
		messagesDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqew_messages_dropped_total",
				Help: "Total number of messages dropped on reaching the attempts cap with no DLQ configured; TTL expiry is counted in sqew_messages_expired_total",
			},
			[]string{"queue_name", "reason"},
		),
		messagesMovedToDlqTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqew_messages_moved_to_dlq_total",
				Help: "Total number of over-attempt messages routed to a configured dead-letter queue",
			},
			[]string{"queue_name"},
		),
		messagesExpiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sqew_messages_expired_total",
				Help: "Total number of messages reaped on TTL expiry, across all queues",
			},
		),
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sqew_queue_depth",
				Help: "Current ready message count for the queue",
			},
			[]string{"queue_name"},
		),
		busyTimeoutTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqew_busy_timeout_total",
				Help: "Total number of SQLITE_BUSY conditions observed, by operation",
			},
			[]string{"op"},
		),
	}

	prometheus.MustRegister(
		srv.messagesEnqueuedTotal,
		srv.messagesLeasedTotal,
		srv.messagesAckedTotal,
		srv.messagesNackedTotal,
		srv.messagesRescheduledTotal,
		srv.messagesDroppedTotal,
		srv.messagesMovedToDlqTotal,
		srv.messagesExpiredTotal,
		srv.queueDepth,
		srv.busyTimeoutTotal,
	)

	return srv
}

func (p *prometheusService) IncMessagesEnqueuedTotalBy(count int64, queueName string, deduplicated bool) {
	p.messagesEnqueuedTotal.WithLabelValues(queueName, boolLabel(deduplicated)).Add(float64(count))
}

func (p *prometheusService) IncMessagesLeasedTotalBy(count int64, queueName string) {
	p.messagesLeasedTotal.WithLabelValues(queueName).Add(float64(count))
}

func (p *prometheusService) IncMessagesAckedTotalBy(count int64, queueName string) {
	p.messagesAckedTotal.WithLabelValues(queueName).Add(float64(count))
}

func (p *prometheusService) IncMessagesNackedTotalBy(count int64, queueName string) {
	p.messagesNackedTotal.WithLabelValues(queueName).Add(float64(count))
}

func (p *prometheusService) IncMessagesRescheduledTotalBy(count int64, queueName string) {
	p.messagesRescheduledTotal.WithLabelValues(queueName).Add(float64(count))
}

func (p *prometheusService) IncMessagesDroppedTotalBy(count int64, queueName, reason string) {
	p.messagesDroppedTotal.WithLabelValues(queueName, reason).Add(float64(count))
}

func (p *prometheusService) IncMessagesMovedToDlqTotalBy(count int64, queueName string) {
	p.messagesMovedToDlqTotal.WithLabelValues(queueName).Add(float64(count))
}

func (p *prometheusService) IncMessagesExpiredTotalBy(count int64) {
	p.messagesExpiredTotal.Add(float64(count))
}

func (p *prometheusService) SetQueueDepth(queueName string, depth int64) {
	p.queueDepth.WithLabelValues(queueName).Set(float64(depth))
}

func (p *prometheusService) ObserveBusyTimeout(op string) {
	p.busyTimeoutTotal.WithLabelValues(op).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
