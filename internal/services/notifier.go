package services

import (
	"context"

	"github.com/dsyorkd/emr-controller/internal/logger"
	"github.com/dsyorkd/emr-controller/internal/models"
)

// Notifier dispatches pre-expiration notices to cluster owners. The
// delivery channel (mail, chat) lives outside this service.
type Notifier interface {
	NotifyExpiring(ctx context.Context, cluster *models.Cluster) error
}

// LogNotifier is the default Notifier; it only writes a log line.
type LogNotifier struct {
	logger logger.Interface
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier(log logger.Interface) *LogNotifier {
	return &LogNotifier{logger: log.WithField("component", "notifier")}
}

// NotifyExpiring logs the pending expiration
func (n *LogNotifier) NotifyExpiring(_ context.Context, cluster *models.Cluster) error {
	n.logger.WithFields(map[string]interface{}{
		"cluster_id": cluster.ID,
		"identifier": cluster.Identifier,
		"owner":      cluster.CreatedBy,
		"expires_at": cluster.ExpiresAt,
	}).Info("Cluster is expiring soon")
	return nil
}
