package storage

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dsyorkd/emr-controller/internal/errors"
	"github.com/dsyorkd/emr-controller/internal/models"
)

// CreateRelease persists a new EMR release catalog entry
func (d *Database) CreateRelease(release *models.EMRRelease) error {
	if err := d.db.Create(release).Error; err != nil {
		return errors.NewDatabaseError("create release", err)
	}
	return nil
}

// UpsertRelease inserts or updates a catalog entry by version; used for
// seeding the release catalog at startup.
func (d *Database) UpsertRelease(release *models.EMRRelease) error {
	err := d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "version"}},
		UpdateAll: true,
	}).Create(release).Error
	if err != nil {
		return errors.NewDatabaseError("upsert release", err)
	}
	return nil
}

// GetRelease fetches a release by version
func (d *Database) GetRelease(version string) (*models.EMRRelease, error) {
	var release models.EMRRelease
	if err := d.db.First(&release, "version = ?", version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound
		}
		return nil, errors.NewDatabaseError("get release", err)
	}
	return &release, nil
}

// ListReleases returns catalog entries, newest version first
func (d *Database) ListReleases(activeOnly bool) ([]models.EMRRelease, error) {
	query := d.db.Model(&models.EMRRelease{}).Order("version desc")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var releases []models.EMRRelease
	if err := query.Find(&releases).Error; err != nil {
		return nil, errors.NewDatabaseError("list releases", err)
	}
	return releases, nil
}
