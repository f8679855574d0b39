package storage

import (
	"github.com/dsyorkd/emr-controller/internal/errors"
	"github.com/dsyorkd/emr-controller/internal/models"
)

// RecordMetric appends one metric row
func (d *Database) RecordMetric(metric *models.Metric) error {
	if err := d.db.Create(metric).Error; err != nil {
		return errors.NewDatabaseError("record metric", err)
	}
	return nil
}

// ListMetrics returns metrics by name, newest first, for inspection and tests
func (d *Database) ListMetrics(name string, limit int) ([]models.Metric, error) {
	query := d.db.Model(&models.Metric{}).Order("id desc")
	if name != "" {
		query = query.Where("name = ?", name)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var metrics []models.Metric
	if err := query.Find(&metrics).Error; err != nil {
		return nil, errors.NewDatabaseError("list metrics", err)
	}
	return metrics, nil
}
