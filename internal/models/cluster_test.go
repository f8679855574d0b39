package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClusterPredicates(t *testing.T) {
	cases := []struct {
		status      ClusterStatus
		active      bool
		ready       bool
		final       bool
		terminating bool
	}{
		{StatusStarting, true, false, false, false},
		{StatusBootstrapping, true, false, false, false},
		{StatusRunning, true, true, false, false},
		{StatusWaiting, true, true, false, false},
		{StatusTerminating, true, false, false, true},
		{StatusTerminated, false, false, true, false},
		{StatusTerminatedWithErrors, false, false, true, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			cluster := &Cluster{MostRecentStatus: tc.status}
			assert.Equal(t, tc.active, cluster.IsActive())
			assert.Equal(t, tc.ready, cluster.IsReady())
			assert.Equal(t, tc.final, cluster.IsFinal())
			assert.Equal(t, tc.terminating, cluster.IsTerminating())
		})
	}

	t.Run("unknown status is neither active nor final", func(t *testing.T) {
		cluster := &Cluster{}
		assert.False(t, cluster.IsActive())
		assert.False(t, cluster.IsFinal())
	})

	t.Run("terminated and failed are distinct", func(t *testing.T) {
		clean := &Cluster{MostRecentStatus: StatusTerminated}
		assert.True(t, clean.IsTerminated())
		assert.False(t, clean.IsFailed())

		failed := &Cluster{MostRecentStatus: StatusTerminatedWithErrors}
		assert.False(t, failed.IsTerminated())
		assert.True(t, failed.IsFailed())
	})
}

func TestClusterExpiration(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("no expiration never expires", func(t *testing.T) {
		cluster := &Cluster{}
		assert.False(t, cluster.IsExpired(now))
		assert.False(t, cluster.IsExpiringWithin(now, time.Hour))
	})

	t.Run("past deadline is expired", func(t *testing.T) {
		expiresAt := now.Add(-time.Minute)
		cluster := &Cluster{ExpiresAt: &expiresAt}
		assert.True(t, cluster.IsExpired(now))
	})

	t.Run("deadline exactly now is expired", func(t *testing.T) {
		expiresAt := now
		cluster := &Cluster{ExpiresAt: &expiresAt}
		assert.True(t, cluster.IsExpired(now))
	})

	t.Run("deadline inside the window is expiring", func(t *testing.T) {
		expiresAt := now.Add(30 * time.Minute)
		cluster := &Cluster{ExpiresAt: &expiresAt}
		assert.False(t, cluster.IsExpired(now))
		assert.True(t, cluster.IsExpiringWithin(now, time.Hour))
	})

	t.Run("deadline beyond the window is not expiring", func(t *testing.T) {
		expiresAt := now.Add(2 * time.Hour)
		cluster := &Cluster{ExpiresAt: &expiresAt}
		assert.False(t, cluster.IsExpiringWithin(now, time.Hour))
	})
}
