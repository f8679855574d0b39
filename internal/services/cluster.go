package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/time/rate"

	"github.com/dsyorkd/emr-controller/internal/errors"
	"github.com/dsyorkd/emr-controller/internal/logger"
	"github.com/dsyorkd/emr-controller/internal/models"
	"github.com/dsyorkd/emr-controller/internal/provisioner"
	"github.com/dsyorkd/emr-controller/internal/storage"
)

// EventPublisher receives cluster status transitions for fan-out to
// interested listeners (the websocket hub). Implementations must not block.
type EventPublisher interface {
	PublishClusterStatus(cluster *models.Cluster)
}

// ClusterServiceConfig tunes the lifecycle orchestrator.
type ClusterServiceConfig struct {
	// MaxLifetime caps requested plus extended lifetime, in hours.
	MaxLifetime int

	// LookaheadWindow is how far before expiration the notice goes out.
	LookaheadWindow time.Duration

	// SweepConcurrency bounds the sweep fan-out.
	SweepConcurrency int

	// DescribeRate and DescribeBurst bound backend describe calls per
	// second across all sweep workers.
	DescribeRate  float64
	DescribeBurst int

	// Remote call deadlines.
	StartTimeout    time.Duration
	DescribeTimeout time.Duration
	StopTimeout     time.Duration
}

// DefaultClusterServiceConfig returns the orchestrator defaults
func DefaultClusterServiceConfig() ClusterServiceConfig {
	return ClusterServiceConfig{
		MaxLifetime:      24,
		LookaheadWindow:  time.Hour,
		SweepConcurrency: 8,
		DescribeRate:     5,
		DescribeBurst:    10,
		StartTimeout:     60 * time.Second,
		DescribeTimeout:  15 * time.Second,
		StopTimeout:      30 * time.Second,
	}
}

// ClusterService drives the cluster lifecycle: idempotent creation,
// periodic sync against the backend, extension, termination and the
// expiration sweep. It is the sole writer of remote-handle assignment
// and lifetime changes; observed-status fields are written only through
// Reconcile.
type ClusterService struct {
	store       storage.Store
	provisioner provisioner.Provisioner
	metrics     MetricsSink
	notifier    Notifier
	events      EventPublisher
	config      ClusterServiceConfig
	limiter     *rate.Limiter
	logger      logger.Interface

	// now is swapped out in tests.
	now func() time.Time
}

// NewClusterService creates a new ClusterService
func NewClusterService(
	store storage.Store,
	prov provisioner.Provisioner,
	metrics MetricsSink,
	notifier Notifier,
	config ClusterServiceConfig,
	log logger.Interface,
) *ClusterService {
	return &ClusterService{
		store:       store,
		provisioner: prov,
		metrics:     metrics,
		notifier:    notifier,
		config:      config,
		limiter:     rate.NewLimiter(rate.Limit(config.DescribeRate), config.DescribeBurst),
		logger:      log.WithField("service", "cluster"),
		now:         time.Now,
	}
}

// SetEventPublisher wires an optional status-transition listener
func (s *ClusterService) SetEventPublisher(events EventPublisher) {
	s.events = events
}

// CreateClusterRequest is the request to create a cluster
type CreateClusterRequest struct {
	Identifier   string `json:"identifier"`
	Size         int    `json:"size"`
	Lifetime     int    `json:"lifetime"`
	EMRRelease   string `json:"emr_release"`
	SSHPublicKey string `json:"ssh_public_key"`
	CreatedBy    string `json:"created_by"`
	OwnerEmail   string `json:"owner_email"`
}

// Create validates the request, persists the record, starts the remote
// cluster and schedules the first sync. A start failure is surfaced to
// the caller; the persisted record keeps a null handle so the attempt
// stays auditable, and the cluster is not considered created.
func (s *ClusterService) Create(ctx context.Context, req CreateClusterRequest) (*models.Cluster, error) {
	if req.Size == 0 {
		req.Size = models.DefaultSize
	}
	if req.Lifetime == 0 {
		req.Lifetime = models.DefaultLifetime
	}
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	expiresAt := s.now().UTC().Add(time.Duration(req.Lifetime) * time.Hour)
	cluster := &models.Cluster{
		Identifier:        req.Identifier,
		CreatedBy:         req.CreatedBy,
		OwnerEmail:        req.OwnerEmail,
		Size:              req.Size,
		Lifetime:          req.Lifetime,
		EMRReleaseVersion: req.EMRRelease,
		SSHPublicKey:      req.SSHPublicKey,
		ExpiresAt:         &expiresAt,
	}
	if err := s.store.CreateCluster(cluster); err != nil {
		return nil, err
	}

	if err := s.provision(ctx, cluster); err != nil {
		return nil, err
	}

	// First sync runs immediately so the record picks up the STARTING
	// status without waiting for the next sweep tick. Failures here are
	// transient and covered by the sweep.
	if _, err := s.Sync(ctx, cluster.ID); err != nil {
		s.logger.WithError(err).WithField("cluster_id", cluster.ID).
			Warn("Initial sync after creation failed; next sweep will retry")
	}

	return s.store.GetCluster(cluster.ID)
}

func (s *ClusterService) validateCreate(req CreateClusterRequest) error {
	if req.Identifier == "" {
		return errors.Wrap(ErrInvalidInput, "identifier is required")
	}
	if req.Size < 1 {
		return errors.Wrapf(ErrInvalidInput, "size must be at least 1, got %d", req.Size)
	}
	if req.Lifetime < 1 {
		return errors.Wrapf(ErrInvalidInput, "lifetime must be at least 1 hour, got %d", req.Lifetime)
	}
	if req.Lifetime > s.config.MaxLifetime {
		return errors.Wrapf(ErrInvalidInput, "lifetime must not exceed %d hours, got %d",
			s.config.MaxLifetime, req.Lifetime)
	}
	if req.SSHPublicKey != "" {
		if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(req.SSHPublicKey)); err != nil {
			return errors.Wrap(ErrInvalidInput, "ssh_public_key is not a valid public key")
		}
	}

	release, err := s.store.GetRelease(req.EMRRelease)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return errors.Wrapf(ErrInvalidInput, "unknown EMR release %q", req.EMRRelease)
		}
		return err
	}
	if !release.IsActive {
		return errors.Wrapf(ErrReleaseNotEligible, "EMR release %q", release.Version)
	}
	return nil
}

// provision starts the remote cluster for a record that does not have a
// handle yet. A record that already carries a handle short-circuits
// without touching the backend, which makes creation safe to re-enter.
func (s *ClusterService) provision(ctx context.Context, cluster *models.Cluster) error {
	if cluster.JobflowID != nil {
		return nil
	}

	startCtx, cancel := context.WithTimeout(ctx, s.config.StartTimeout)
	defer cancel()

	jobflowID, err := s.provisioner.Start(startCtx, provisioner.StartRequest{
		Owner:      cluster.CreatedBy,
		OwnerEmail: cluster.OwnerEmail,
		Identifier: cluster.Identifier,
		EMRRelease: cluster.EMRReleaseVersion,
		Size:       cluster.Size,
		PublicKey:  cluster.SSHPublicKey,
	})
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"cluster_id": cluster.ID,
			"identifier": cluster.Identifier,
		}).Error("Failed to start cluster")
		return errors.Wrap(ErrProvisioningFailed, err.Error())
	}

	cluster.JobflowID = &jobflowID
	if err := s.store.UpdateCluster(cluster); err != nil {
		return err
	}

	s.metrics.Record(MetricEMRVersion, nil, map[string]string{
		"version": cluster.EMRReleaseVersion,
	})
	s.logger.WithFields(map[string]interface{}{
		"cluster_id": cluster.ID,
		"jobflow_id": jobflowID,
	}).Info("Cluster provisioned")
	return nil
}

// Sync fetches a fresh snapshot from the backend and merges it into the
// persisted record. The fetch happens before any per-record
// serialization; only the read-modify-write persist step is guarded by
// the optimistic token, retried once on conflict.
func (s *ClusterService) Sync(ctx context.Context, id uint) (*models.Cluster, error) {
	cluster, err := s.store.GetCluster(id)
	if err != nil {
		return nil, err
	}
	if cluster.JobflowID == nil || cluster.IsFinal() {
		return cluster, nil
	}

	describeCtx, cancel := context.WithTimeout(ctx, s.config.DescribeTimeout)
	info, err := s.provisioner.Info(describeCtx, *cluster.JobflowID)
	cancel()
	if err != nil {
		// A failed or timed-out describe never mutates the record.
		return nil, err
	}

	var result ReconcileResult
	err = retryOnConflict(ctx, func() error {
		current, err := s.store.GetCluster(id)
		if err != nil {
			return err
		}
		result = Reconcile(current, info)
		if result.Changed {
			if err := s.store.UpdateCluster(current); err != nil {
				return err
			}
		}
		cluster = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, event := range result.Events {
		s.metrics.Record(event.Name, event.Value, event.Attributes)
	}
	if result.StatusChanged && s.events != nil {
		s.events.PublishClusterStatus(cluster)
	}
	return cluster, nil
}

// Extend pushes the expiration out by the given number of hours. The
// change is purely additive: expires_at never decreases and the
// extension counter only grows. The resulting expiration may not land
// more than MaxLifetime hours in the future.
func (s *ClusterService) Extend(ctx context.Context, id uint, hours int) (*models.Cluster, error) {
	if hours < 1 {
		return nil, errors.Wrapf(ErrInvalidInput, "hours must be at least 1, got %d", hours)
	}

	var cluster *models.Cluster
	err := retryOnConflict(ctx, func() error {
		current, err := s.store.GetCluster(id)
		if err != nil {
			return err
		}
		if current.IsFinal() {
			return errors.Wrapf(ErrNotActive, "cannot extend cluster %d", id)
		}

		now := s.now().UTC()
		expiresAt := now
		if current.ExpiresAt != nil {
			expiresAt = *current.ExpiresAt
		}
		expiresAt = expiresAt.Add(time.Duration(hours) * time.Hour)
		if expiresAt.After(now.Add(time.Duration(s.config.MaxLifetime) * time.Hour)) {
			return errors.Wrapf(ErrInvalidInput,
				"extension by %d hours exceeds the maximum lifetime of %d hours", hours, s.config.MaxLifetime)
		}
		current.ExpiresAt = &expiresAt
		current.LifetimeExtensionCount++
		// A fresh notice is owed for the new expiration.
		current.ExpirationMailSent = false

		if err := s.store.UpdateCluster(current); err != nil {
			return err
		}
		cluster = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	attrs := clusterAttributes(cluster)
	attrs["hours"] = strconv.Itoa(hours)
	s.metrics.Record(MetricClusterExtension, nil, attrs)

	s.logger.WithFields(map[string]interface{}{
		"cluster_id": cluster.ID,
		"hours":      hours,
		"expires_at": cluster.ExpiresAt,
	}).Info("Cluster lifetime extended")
	return cluster, nil
}

// Terminate asks the backend to stop the cluster and immediately syncs
// once to capture the resulting transition. Terminating an already
// terminal or handle-less record is a no-op success.
func (s *ClusterService) Terminate(ctx context.Context, id uint) (*models.Cluster, error) {
	cluster, err := s.store.GetCluster(id)
	if err != nil {
		return nil, err
	}
	if cluster.JobflowID == nil || cluster.IsFinal() {
		return cluster, nil
	}

	stopCtx, cancel := context.WithTimeout(ctx, s.config.StopTimeout)
	err = s.provisioner.Stop(stopCtx, *cluster.JobflowID)
	cancel()
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"cluster_id": cluster.ID,
		"jobflow_id": *cluster.JobflowID,
	}).Info("Cluster termination requested")

	return s.Sync(ctx, id)
}

// SweepStats summarizes one expiration sweep tick.
type SweepStats struct {
	Synced     int
	Terminated int
	Notified   int
	Errors     int
}

// RunExpirationSweep performs one sweep tick: sync all pollable
// records, terminate the expired ones, and dispatch pre-expiration
// notices inside the lookahead window. Remote failures are logged and
// left for the next tick; they never corrupt persisted records.
func (s *ClusterService) RunExpirationSweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	synced, errs := s.syncAll(ctx)
	stats.Synced = synced
	stats.Errors += errs

	now := s.now().UTC()

	expired, err := s.store.ExpiredClusters(now)
	if err != nil {
		return stats, err
	}
	for i := range expired {
		cluster := &expired[i]
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if _, err := s.Terminate(ctx, cluster.ID); err != nil {
			stats.Errors++
			s.logger.WithError(err).WithField("cluster_id", cluster.ID).
				Warn("Failed to terminate expired cluster; will retry next sweep")
			continue
		}
		stats.Terminated++
	}

	expiring, err := s.store.ExpiringClusters(now.Add(s.config.LookaheadWindow))
	if err != nil {
		return stats, err
	}
	for i := range expiring {
		cluster := &expiring[i]
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := s.notifyExpiring(ctx, cluster.ID); err != nil {
			stats.Errors++
			s.logger.WithError(err).WithField("cluster_id", cluster.ID).
				Warn("Failed to dispatch expiration notice")
			continue
		}
		stats.Notified++
	}

	return stats, nil
}

// syncAll fans out over all pollable records with bounded parallelism.
// Backend describe calls are additionally rate-limited so a large fleet
// cannot stampede the backend.
func (s *ClusterService) syncAll(ctx context.Context) (synced, errs int) {
	clusters, err := s.store.SyncableClusters()
	if err != nil {
		s.logger.WithError(err).Error("Failed to list clusters for sync")
		return 0, 1
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.config.SweepConcurrency)
	)
	for i := range clusters {
		cluster := clusters[i]

		select {
		case <-ctx.Done():
			wg.Wait()
			return synced, errs
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			_, err := s.Sync(ctx, cluster.ID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs++
				entry := s.logger.WithError(err).WithField("cluster_id", cluster.ID)
				if errors.IsTransient(err) {
					entry.Warn("Sync failed; will retry next sweep")
				} else {
					// Backend rejections do not heal on their own.
					entry.Error("Sync failed with a non-retryable backend error")
				}
				return
			}
			synced++
		}()
	}
	wg.Wait()
	return synced, errs
}

// notifyExpiring dispatches the notice and marks the record so repeated
// sweep ticks do not notify twice.
func (s *ClusterService) notifyExpiring(ctx context.Context, id uint) error {
	cluster, err := s.store.GetCluster(id)
	if err != nil {
		return err
	}
	if cluster.ExpirationMailSent || cluster.IsFinal() {
		return nil
	}

	if err := s.notifier.NotifyExpiring(ctx, cluster); err != nil {
		return err
	}

	return retryOnConflict(ctx, func() error {
		current, err := s.store.GetCluster(id)
		if err != nil {
			return err
		}
		if current.ExpirationMailSent {
			return nil
		}
		current.ExpirationMailSent = true
		return s.store.UpdateCluster(current)
	})
}

// Get fetches a cluster by ID
func (s *ClusterService) Get(id uint) (*models.Cluster, error) {
	cluster, err := s.store.GetCluster(id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return cluster, nil
}

// List returns clusters matching the filter
func (s *ClusterService) List(opts storage.ClusterListOptions) ([]models.Cluster, error) {
	return s.store.ListClusters(opts)
}
