package services

import (
	"github.com/dsyorkd/emr-controller/internal/errors"
	"github.com/dsyorkd/emr-controller/internal/logger"
	"github.com/dsyorkd/emr-controller/internal/models"
	"github.com/dsyorkd/emr-controller/internal/storage"
)

// ReleaseService manages the EMR release catalog
type ReleaseService struct {
	store  storage.Store
	logger logger.Interface
}

// NewReleaseService creates a new ReleaseService
func NewReleaseService(store storage.Store, log logger.Interface) *ReleaseService {
	return &ReleaseService{
		store:  store,
		logger: log.WithField("service", "release"),
	}
}

// Get fetches a release by version
func (s *ReleaseService) Get(version string) (*models.EMRRelease, error) {
	release, err := s.store.GetRelease(version)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return release, nil
}

// List returns catalog entries, optionally restricted to releases
// eligible for new clusters
func (s *ReleaseService) List(activeOnly bool) ([]models.EMRRelease, error) {
	return s.store.ListReleases(activeOnly)
}

// Seed inserts or updates catalog entries; used at startup to load the
// supported release list from configuration.
func (s *ReleaseService) Seed(releases []models.EMRRelease) error {
	for i := range releases {
		if releases[i].Version == "" {
			return errors.Wrap(ErrInvalidInput, "release version is required")
		}
		if err := s.store.UpsertRelease(&releases[i]); err != nil {
			return err
		}
	}
	s.logger.WithField("count", len(releases)).Info("Release catalog seeded")
	return nil
}
