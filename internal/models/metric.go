package models

import "time"

// Metric is one recorded lifecycle event: a name, an optional numeric
// value and free-form string attributes. Metrics are append-only and
// kept for history; lifecycle operations never depend on them.
type Metric struct {
	ID         uint              `json:"id" gorm:"primarykey"`
	Name       string            `json:"name" gorm:"not null;index"`
	Value      *int64            `json:"value"`
	Attributes map[string]string `json:"attributes" gorm:"serializer:json"`
	CreatedAt  time.Time         `json:"created_at"`
}

// TableName returns the table name for the Metric model
func (Metric) TableName() string {
	return "metrics"
}
