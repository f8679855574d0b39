package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsyorkd/emr-controller/internal/models"
	"github.com/dsyorkd/emr-controller/internal/provisioner"
)

func ts(hour, min, sec int) time.Time {
	return time.Date(2024, 3, 15, hour, min, sec, 0, time.UTC)
}

func tsp(hour, min, sec int) *time.Time {
	t := ts(hour, min, sec)
	return &t
}

func strp(s string) *string {
	return &s
}

func TestReconcile_Merge(t *testing.T) {
	t.Run("should apply status, reason and address from the snapshot", func(t *testing.T) {
		cluster := &models.Cluster{Identifier: "test", Size: 1}
		info := &provisioner.ClusterInfo{
			State:             "STARTING",
			StateChangeReason: models.StateChangeUserRequest,
			PublicDNS:         strp("ec2-1-2-3-4.compute.amazonaws.com"),
		}

		result := Reconcile(cluster, info)

		assert.True(t, result.Changed)
		assert.True(t, result.StatusChanged)
		assert.False(t, result.MilestonesChanged)
		assert.Equal(t, models.StatusStarting, cluster.MostRecentStatus)
		assert.Equal(t, models.StateChangeUserRequest, cluster.StateChangeReason)
		assert.Equal(t, "ec2-1-2-3-4.compute.amazonaws.com", cluster.MasterAddress)
	})

	t.Run("should report no change for an identical snapshot", func(t *testing.T) {
		cluster := &models.Cluster{Identifier: "test", Size: 1}
		info := &provisioner.ClusterInfo{
			State:            "RUNNING",
			PublicDNS:        strp("master.internal"),
			CreationDateTime: tsp(10, 0, 0),
			ReadyDateTime:    tsp(10, 5, 0),
		}

		first := Reconcile(cluster, info)
		assert.True(t, first.Changed)

		second := Reconcile(cluster, info)
		assert.False(t, second.Changed)
		assert.False(t, second.StatusChanged)
		assert.False(t, second.MilestonesChanged)
		assert.Empty(t, second.Events)
	})

	t.Run("should never revert a set field to empty", func(t *testing.T) {
		cluster := &models.Cluster{
			Identifier:        "test",
			Size:              1,
			MostRecentStatus:  models.StatusRunning,
			StateChangeReason: models.StateChangeUserRequest,
			MasterAddress:     "master.internal",
			StartedAt:         tsp(10, 0, 0),
			ReadyAt:           tsp(10, 5, 0),
		}

		result := Reconcile(cluster, &provisioner.ClusterInfo{State: "RUNNING"})

		assert.False(t, result.Changed)
		assert.Equal(t, models.StatusRunning, cluster.MostRecentStatus)
		assert.Equal(t, models.StateChangeUserRequest, cluster.StateChangeReason)
		assert.Equal(t, "master.internal", cluster.MasterAddress)
		assert.NotNil(t, cluster.StartedAt)
		assert.NotNil(t, cluster.ReadyAt)
	})

	t.Run("should converge when snapshots arrive out of order", func(t *testing.T) {
		newer := &provisioner.ClusterInfo{
			State:            "RUNNING",
			PublicDNS:        strp("master.internal"),
			CreationDateTime: tsp(10, 0, 0),
			ReadyDateTime:    tsp(10, 5, 0),
		}
		older := &provisioner.ClusterInfo{
			State:            "BOOTSTRAPPING",
			CreationDateTime: tsp(10, 0, 0),
		}

		cluster := &models.Cluster{Identifier: "test", Size: 1}
		Reconcile(cluster, newer)
		Reconcile(cluster, older)
		final := Reconcile(cluster, newer)

		assert.Equal(t, models.StatusRunning, cluster.MostRecentStatus)
		assert.Equal(t, "master.internal", cluster.MasterAddress)
		require.NotNil(t, cluster.ReadyAt)
		assert.True(t, cluster.ReadyAt.Equal(ts(10, 5, 0)))
		assert.True(t, final.StatusChanged)
	})
}

func TestReconcile_TerminalBarrier(t *testing.T) {
	t.Run("should ignore any snapshot once terminated", func(t *testing.T) {
		cluster := &models.Cluster{
			Identifier:       "test",
			Size:             1,
			MostRecentStatus: models.StatusTerminated,
			MasterAddress:    "master.internal",
		}
		info := &provisioner.ClusterInfo{
			State:            "RUNNING",
			PublicDNS:        strp("stale.internal"),
			CreationDateTime: tsp(10, 0, 0),
		}

		result := Reconcile(cluster, info)

		assert.False(t, result.Changed)
		assert.Empty(t, result.Events)
		assert.Equal(t, models.StatusTerminated, cluster.MostRecentStatus)
		assert.Equal(t, "master.internal", cluster.MasterAddress)
		assert.Nil(t, cluster.StartedAt)
	})

	t.Run("should ignore snapshots after a failed termination", func(t *testing.T) {
		cluster := &models.Cluster{
			Identifier:       "test",
			Size:             1,
			MostRecentStatus: models.StatusTerminatedWithErrors,
		}

		result := Reconcile(cluster, &provisioner.ClusterInfo{State: "TERMINATED"})

		assert.False(t, result.Changed)
		assert.Equal(t, models.StatusTerminatedWithErrors, cluster.MostRecentStatus)
	})
}

func TestReconcile_ReadyMetrics(t *testing.T) {
	t.Run("should emit ready and time-to-ready when the ready timestamp lands", func(t *testing.T) {
		cluster := &models.Cluster{Identifier: "test", Size: 2, JobflowID: strp("j-123")}
		info := &provisioner.ClusterInfo{
			State:            "WAITING",
			CreationDateTime: tsp(10, 0, 0),
			ReadyDateTime:    tsp(10, 7, 30),
		}

		result := Reconcile(cluster, info)

		require.Len(t, result.Events, 2)
		assert.Equal(t, MetricClusterReady, result.Events[0].Name)
		assert.Nil(t, result.Events[0].Value)

		assert.Equal(t, MetricTimeToReady, result.Events[1].Name)
		require.NotNil(t, result.Events[1].Value)
		assert.Equal(t, int64(450), *result.Events[1].Value)

		assert.Equal(t, "test", result.Events[0].Attributes["identifier"])
		assert.Equal(t, "2", result.Events[0].Attributes["size"])
		assert.Equal(t, "j-123", result.Events[0].Attributes["jobflow_id"])
	})

	t.Run("should not emit ready twice for the same timestamp", func(t *testing.T) {
		cluster := &models.Cluster{Identifier: "test", Size: 1}
		info := &provisioner.ClusterInfo{
			State:            "WAITING",
			CreationDateTime: tsp(10, 0, 0),
			ReadyDateTime:    tsp(10, 5, 0),
		}

		first := Reconcile(cluster, info)
		second := Reconcile(cluster, info)

		assert.NotEmpty(t, first.Events)
		assert.Empty(t, second.Events)
	})

	t.Run("should omit time-to-ready when the start timestamp is unknown", func(t *testing.T) {
		cluster := &models.Cluster{Identifier: "test", Size: 1}
		info := &provisioner.ClusterInfo{
			State:         "WAITING",
			ReadyDateTime: tsp(10, 5, 0),
		}

		result := Reconcile(cluster, info)

		require.Len(t, result.Events, 1)
		assert.Equal(t, MetricClusterReady, result.Events[0].Name)
	})
}

func TestReconcile_InstanceHours(t *testing.T) {
	t.Run("should round a partial hour up", func(t *testing.T) {
		cluster := &models.Cluster{Identifier: "test", Size: 3, StartedAt: tsp(10, 0, 0)}
		info := &provisioner.ClusterInfo{
			State:       "TERMINATED",
			EndDateTime: tsp(11, 0, 1),
		}

		result := Reconcile(cluster, info)

		require.Len(t, result.Events, 1)
		event := result.Events[0]
		assert.Equal(t, MetricNormalizedInstanceHours, event.Name)
		require.NotNil(t, event.Value)
		// 1h1s rounds up to 2 hours, times 3 nodes.
		assert.Equal(t, int64(6), *event.Value)
	})

	t.Run("should not round an exact hour up", func(t *testing.T) {
		cluster := &models.Cluster{Identifier: "test", Size: 2, StartedAt: tsp(10, 0, 0)}
		info := &provisioner.ClusterInfo{
			State:       "TERMINATED",
			EndDateTime: tsp(11, 0, 0),
		}

		result := Reconcile(cluster, info)

		require.Len(t, result.Events, 1)
		require.NotNil(t, result.Events[0].Value)
		assert.Equal(t, int64(2), *result.Events[0].Value)
	})

	t.Run("should emit only instance-hours when ready and end land together", func(t *testing.T) {
		cluster := &models.Cluster{Identifier: "test", Size: 1, StartedAt: tsp(10, 0, 0)}
		info := &provisioner.ClusterInfo{
			State:         "TERMINATED",
			ReadyDateTime: tsp(10, 5, 0),
			EndDateTime:   tsp(11, 30, 0),
		}

		result := Reconcile(cluster, info)

		require.Len(t, result.Events, 1)
		assert.Equal(t, MetricNormalizedInstanceHours, result.Events[0].Name)
	})

	t.Run("should emit nothing for a cluster that never started", func(t *testing.T) {
		cluster := &models.Cluster{Identifier: "test", Size: 1}
		info := &provisioner.ClusterInfo{
			State:       "TERMINATED_WITH_ERRORS",
			EndDateTime: tsp(11, 0, 0),
		}

		result := Reconcile(cluster, info)

		assert.True(t, result.MilestonesChanged)
		assert.Empty(t, result.Events)
	})
}
