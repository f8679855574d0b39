package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dsyorkd/emr-controller/internal/logger"
	"github.com/dsyorkd/emr-controller/internal/models"
	"github.com/dsyorkd/emr-controller/internal/provisioner"
	"github.com/dsyorkd/emr-controller/internal/storage"
)

// MockStore is a mock implementation of the Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateCluster(cluster *models.Cluster) error {
	args := m.Called(cluster)
	return args.Error(0)
}

func (m *MockStore) GetCluster(id uint) (*models.Cluster, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cluster), args.Error(1)
}

func (m *MockStore) ListClusters(opts storage.ClusterListOptions) ([]models.Cluster, error) {
	args := m.Called(opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Cluster), args.Error(1)
}

func (m *MockStore) UpdateCluster(cluster *models.Cluster) error {
	args := m.Called(cluster)
	return args.Error(0)
}

func (m *MockStore) SyncableClusters() ([]models.Cluster, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Cluster), args.Error(1)
}

func (m *MockStore) ExpiredClusters(now time.Time) ([]models.Cluster, error) {
	args := m.Called(now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Cluster), args.Error(1)
}

func (m *MockStore) ExpiringClusters(before time.Time) ([]models.Cluster, error) {
	args := m.Called(before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Cluster), args.Error(1)
}

func (m *MockStore) CreateRelease(release *models.EMRRelease) error {
	args := m.Called(release)
	return args.Error(0)
}

func (m *MockStore) UpsertRelease(release *models.EMRRelease) error {
	args := m.Called(release)
	return args.Error(0)
}

func (m *MockStore) GetRelease(version string) (*models.EMRRelease, error) {
	args := m.Called(version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EMRRelease), args.Error(1)
}

func (m *MockStore) ListReleases(activeOnly bool) ([]models.EMRRelease, error) {
	args := m.Called(activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EMRRelease), args.Error(1)
}

func (m *MockStore) RecordMetric(metric *models.Metric) error {
	args := m.Called(metric)
	return args.Error(0)
}

// MockProvisioner is a mock implementation of the Provisioner interface
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) Start(ctx context.Context, req provisioner.StartRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockProvisioner) Info(ctx context.Context, jobflowID string) (*provisioner.ClusterInfo, error) {
	args := m.Called(ctx, jobflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provisioner.ClusterInfo), args.Error(1)
}

func (m *MockProvisioner) Stop(ctx context.Context, jobflowID string) error {
	args := m.Called(ctx, jobflowID)
	return args.Error(0)
}

// MockNotifier is a mock implementation of the Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyExpiring(ctx context.Context, cluster *models.Cluster) error {
	args := m.Called(ctx, cluster)
	return args.Error(0)
}

// captureSink records every metric emission for later assertions.
type captureSink struct {
	mu     sync.Mutex
	events []MetricEvent
}

func (s *captureSink) Record(name string, value *int64, attributes map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, MetricEvent{Name: name, Value: value, Attributes: attributes})
}

func (s *captureSink) byName(name string) []MetricEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []MetricEvent
	for _, e := range s.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// recordingLogger captures the level of every emitted line so tests can
// assert how failures are classified. Field context is discarded.
type recordingLogger struct {
	mu     *sync.Mutex
	levels *[]string
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, levels: &[]string{}}
}

func (l *recordingLogger) record(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.levels = append(*l.levels, level)
}

func (l *recordingLogger) recorded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), *l.levels...)
}

func (l *recordingLogger) Debug(args ...interface{}) { l.record("debug") }
func (l *recordingLogger) Info(args ...interface{})  { l.record("info") }
func (l *recordingLogger) Warn(args ...interface{})  { l.record("warn") }
func (l *recordingLogger) Error(args ...interface{}) { l.record("error") }

func (l *recordingLogger) Debugf(format string, args ...interface{}) { l.record("debug") }
func (l *recordingLogger) Infof(format string, args ...interface{})  { l.record("info") }
func (l *recordingLogger) Warnf(format string, args ...interface{})  { l.record("warn") }
func (l *recordingLogger) Errorf(format string, args ...interface{}) { l.record("error") }
func (l *recordingLogger) Fatalf(format string, args ...interface{}) { l.record("fatal") }

func (l *recordingLogger) WithField(key string, value interface{}) logger.Interface { return l }
func (l *recordingLogger) WithFields(fields map[string]interface{}) logger.Interface {
	return l
}
func (l *recordingLogger) WithError(err error) logger.Interface { return l }

// capturePublisher records status transitions fanned out by the service.
type capturePublisher struct {
	mu       sync.Mutex
	statuses []models.ClusterStatus
}

func (p *capturePublisher) PublishClusterStatus(cluster *models.Cluster) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, cluster.MostRecentStatus)
}
