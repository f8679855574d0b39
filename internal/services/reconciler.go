package services

import (
	"strconv"
	"time"

	"github.com/dsyorkd/emr-controller/internal/models"
	"github.com/dsyorkd/emr-controller/internal/provisioner"
)

// Metric event names emitted by reconciliation and lifecycle operations.
const (
	MetricNormalizedInstanceHours = "cluster-normalized-instance-hours"
	MetricClusterReady            = "cluster-ready"
	MetricTimeToReady             = "cluster-time-to-ready"
	MetricClusterExtension        = "cluster-extension"
	MetricEMRVersion              = "cluster-emr-version"
)

// MetricEvent is one fire-and-forget metric emission produced as a
// side effect of reconciliation.
type MetricEvent struct {
	Name       string
	Value      *int64
	Attributes map[string]string
}

// ReconcileResult reports what a reconcile call did to the record.
// Changed covers any field; MilestonesChanged only the started/ready/
// finished timestamps, because only those trigger metrics.
type ReconcileResult struct {
	Changed           bool
	MilestonesChanged bool
	StatusChanged     bool
	Events            []MetricEvent
}

// Reconcile merges a backend snapshot into the cluster record in place
// and computes the resulting side effects. It is a pure function of
// (record, snapshot): no I/O, no clock reads.
//
// The merge is deliberately asymmetric: a field is updated only when
// the snapshot carries a value and that value differs from what is
// stored. A set field is never reverted to empty, and an identical
// value never counts as a change, so applying snapshots out of order
// still converges to the latest-known values.
//
// A terminal record is a hard barrier: any further snapshot, including
// a late one reporting an earlier status, is ignored entirely.
func Reconcile(cluster *models.Cluster, info *provisioner.ClusterInfo) ReconcileResult {
	var result ReconcileResult
	if cluster.IsFinal() {
		return result
	}

	if info.State != "" && info.State != string(cluster.MostRecentStatus) {
		cluster.MostRecentStatus = models.ClusterStatus(info.State)
		result.Changed = true
		result.StatusChanged = true
	}
	if info.StateChangeReason != "" && info.StateChangeReason != cluster.StateChangeReason {
		cluster.StateChangeReason = info.StateChangeReason
		result.Changed = true
	}
	if info.PublicDNS != nil && *info.PublicDNS != "" && *info.PublicDNS != cluster.MasterAddress {
		cluster.MasterAddress = *info.PublicDNS
		result.Changed = true
	}

	milestones := []struct {
		snapshot *time.Time
		stored   **time.Time
	}{
		{info.CreationDateTime, &cluster.StartedAt},
		{info.ReadyDateTime, &cluster.ReadyAt},
		{info.EndDateTime, &cluster.FinishedAt},
	}
	for _, m := range milestones {
		if m.snapshot == nil {
			continue
		}
		if *m.stored != nil && (*m.stored).Equal(*m.snapshot) {
			continue
		}
		value := *m.snapshot
		*m.stored = &value
		result.Changed = true
		result.MilestonesChanged = true
	}

	if result.MilestonesChanged {
		result.Events = milestoneEvents(cluster)
	}
	return result
}

// milestoneEvents derives the metrics owed after a milestone timestamp
// changed. The finished and ready branches are mutually exclusive in a
// single call: a finished cluster's ready window has already closed.
func milestoneEvents(cluster *models.Cluster) []MetricEvent {
	attrs := clusterAttributes(cluster)

	if cluster.FinishedAt != nil {
		if cluster.StartedAt == nil {
			return nil
		}
		// Billing granularity: whole elapsed seconds rounded up to the
		// next full hour, multiplied by node count.
		seconds := int64(cluster.FinishedAt.Sub(*cluster.StartedAt).Seconds())
		hours := (seconds + 3599) / 3600
		value := hours * int64(cluster.Size)
		return []MetricEvent{{
			Name:       MetricNormalizedInstanceHours,
			Value:      &value,
			Attributes: attrs,
		}}
	}

	if cluster.ReadyAt != nil {
		events := []MetricEvent{{
			Name:       MetricClusterReady,
			Attributes: attrs,
		}}
		if cluster.StartedAt != nil {
			seconds := int64(cluster.ReadyAt.Sub(*cluster.StartedAt).Seconds())
			events = append(events, MetricEvent{
				Name:       MetricTimeToReady,
				Value:      &seconds,
				Attributes: attrs,
			})
		}
		return events
	}

	return nil
}

func clusterAttributes(cluster *models.Cluster) map[string]string {
	attrs := map[string]string{
		"identifier": cluster.Identifier,
		"size":       strconv.Itoa(cluster.Size),
	}
	if cluster.JobflowID != nil {
		attrs["jobflow_id"] = *cluster.JobflowID
	}
	return attrs
}
