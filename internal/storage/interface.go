package storage

import (
	"time"

	"github.com/dsyorkd/emr-controller/internal/models"
)

// Store is the interface for the storage layer
type Store interface {
	CreateCluster(cluster *models.Cluster) error
	GetCluster(id uint) (*models.Cluster, error)
	ListClusters(opts ClusterListOptions) ([]models.Cluster, error)
	UpdateCluster(cluster *models.Cluster) error
	SyncableClusters() ([]models.Cluster, error)
	ExpiredClusters(now time.Time) ([]models.Cluster, error)
	ExpiringClusters(before time.Time) ([]models.Cluster, error)

	CreateRelease(release *models.EMRRelease) error
	UpsertRelease(release *models.EMRRelease) error
	GetRelease(version string) (*models.EMRRelease, error)
	ListReleases(activeOnly bool) ([]models.EMRRelease, error)

	RecordMetric(metric *models.Metric) error
}

var _ Store = (*Database)(nil)
