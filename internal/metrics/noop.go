package metrics

type noopService struct{}

func newNoopService() *noopService { return &noopService{} }

func (noopService) IncMessagesEnqueuedTotalBy(count int64, queueName string, deduplicated bool) {}
func (noopService) IncMessagesLeasedTotalBy(count int64, queueName string)                      {}
func (noopService) IncMessagesAckedTotalBy(count int64, queueName string)                       {}
func (noopService) IncMessagesNackedTotalBy(count int64, queueName string)                      {}
func (noopService) IncMessagesRescheduledTotalBy(count int64, queueName string)                 {}
func (noopService) IncMessagesDroppedTotalBy(count int64, queueName, reason string)              {}
func (noopService) IncMessagesMovedToDlqTotalBy(count int64, queueName string)                   {}
func (noopService) IncMessagesExpiredTotalBy(count int64)                                        {}
func (noopService) SetQueueDepth(queueName string, depth int64)                                  {}
func (noopService) ObserveBusyTimeout(op string)                                                 {}
