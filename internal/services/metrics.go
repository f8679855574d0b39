package services

import (
	"github.com/dsyorkd/emr-controller/internal/logger"
	"github.com/dsyorkd/emr-controller/internal/models"
	"github.com/dsyorkd/emr-controller/internal/storage"
)

// MetricsSink consumes named lifecycle events with structured
// attributes. Implementations are fire-and-forget: they must never
// block or fail a lifecycle operation.
type MetricsSink interface {
	Record(name string, value *int64, attributes map[string]string)
}

// StoreSink records metrics as rows in the entity store. Write failures
// are logged and swallowed.
type StoreSink struct {
	store  storage.Store
	logger logger.Interface
}

// NewStoreSink creates a store-backed metrics sink
func NewStoreSink(store storage.Store, log logger.Interface) *StoreSink {
	return &StoreSink{
		store:  store,
		logger: log.WithField("component", "metrics"),
	}
}

// Record appends one metric row, swallowing failures
func (s *StoreSink) Record(name string, value *int64, attributes map[string]string) {
	metric := &models.Metric{
		Name:       name,
		Value:      value,
		Attributes: attributes,
	}
	if err := s.store.RecordMetric(metric); err != nil {
		s.logger.WithError(err).WithField("metric", name).Warn("Failed to record metric")
	}
}
