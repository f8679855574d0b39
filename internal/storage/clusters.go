package storage

import (
	"time"

	"gorm.io/gorm"

	"github.com/dsyorkd/emr-controller/internal/errors"
	"github.com/dsyorkd/emr-controller/internal/models"
)

// ClusterListOptions filters a cluster listing.
type ClusterListOptions struct {
	Status    models.ClusterStatus
	CreatedBy string
	Limit     int
	Offset    int
}

// CreateCluster persists a new cluster record
func (d *Database) CreateCluster(cluster *models.Cluster) error {
	if err := d.db.Create(cluster).Error; err != nil {
		return errors.NewDatabaseError("create cluster", err)
	}
	return nil
}

// GetCluster fetches a cluster by ID
func (d *Database) GetCluster(id uint) (*models.Cluster, error) {
	var cluster models.Cluster
	if err := d.db.First(&cluster, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound
		}
		return nil, errors.NewDatabaseError("get cluster", err)
	}
	return &cluster, nil
}

// ListClusters returns clusters matching the given filter
func (d *Database) ListClusters(opts ClusterListOptions) ([]models.Cluster, error) {
	query := d.db.Model(&models.Cluster{}).Order("id desc")
	if opts.Status != "" {
		query = query.Where("most_recent_status = ?", opts.Status)
	}
	if opts.CreatedBy != "" {
		query = query.Where("created_by = ?", opts.CreatedBy)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}

	var clusters []models.Cluster
	if err := query.Find(&clusters).Error; err != nil {
		return nil, errors.NewDatabaseError("list clusters", err)
	}
	return clusters, nil
}

// UpdateCluster persists all fields of the record, guarded by the
// record's optimistic concurrency token. Returns ErrConflict when a
// concurrent writer bumped the token first; the caller reloads and
// retries. On success the in-memory token is advanced to match the row.
func (d *Database) UpdateCluster(cluster *models.Cluster) error {
	current := cluster.SyncVersion
	cluster.SyncVersion = current + 1

	result := d.db.Model(&models.Cluster{}).
		Where("id = ? AND sync_version = ?", cluster.ID, current).
		Select("*").
		Omit("id", "created_at").
		Updates(cluster)
	if result.Error != nil {
		cluster.SyncVersion = current
		return errors.NewDatabaseError("update cluster", result.Error)
	}
	if result.RowsAffected == 0 {
		cluster.SyncVersion = current
		return errors.ErrConflict
	}
	return nil
}

// SyncableClusters returns records with a remote handle that have not
// reached a terminal status; these are the records worth polling.
func (d *Database) SyncableClusters() ([]models.Cluster, error) {
	var clusters []models.Cluster
	err := d.db.
		Where("jobflow_id IS NOT NULL").
		Where("most_recent_status NOT IN ?", models.FinalStatuses).
		Find(&clusters).Error
	if err != nil {
		return nil, errors.NewDatabaseError("list syncable clusters", err)
	}
	return clusters, nil
}

// ExpiredClusters returns non-terminal records whose expiration has
// passed as of now.
func (d *Database) ExpiredClusters(now time.Time) ([]models.Cluster, error) {
	var clusters []models.Cluster
	err := d.db.
		Where("jobflow_id IS NOT NULL").
		Where("most_recent_status NOT IN ?", models.FinalStatuses).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Find(&clusters).Error
	if err != nil {
		return nil, errors.NewDatabaseError("list expired clusters", err)
	}
	return clusters, nil
}

// ExpiringClusters returns non-terminal records expiring at or before
// the given deadline that have not yet had an expiration notice sent.
func (d *Database) ExpiringClusters(before time.Time) ([]models.Cluster, error) {
	var clusters []models.Cluster
	err := d.db.
		Where("jobflow_id IS NOT NULL").
		Where("most_recent_status NOT IN ?", models.FinalStatuses).
		Where("expires_at IS NOT NULL AND expires_at <= ?", before).
		Where("expiration_mail_sent = ?", false).
		Find(&clusters).Error
	if err != nil {
		return nil, errors.NewDatabaseError("list expiring clusters", err)
	}
	return clusters, nil
}
