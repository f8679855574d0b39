// Package provisioner wraps the remote provisioning backend behind a
// narrow capability interface: start a cluster, describe it, stop it.
// It holds no local state; every call is a remote round-trip.
package provisioner

import (
	"context"
	"time"
)

// StartRequest carries everything the backend needs to launch a cluster.
type StartRequest struct {
	Owner      string
	OwnerEmail string
	Identifier string
	EMRRelease string
	Size       int
	PublicKey  string
}

// ClusterInfo is a point-in-time status snapshot fetched from the
// backend. Pointer fields are nil when the backend has not reported a
// value yet.
type ClusterInfo struct {
	State             string
	StateChangeReason string
	PublicDNS         *string
	CreationDateTime  *time.Time
	ReadyDateTime     *time.Time
	EndDateTime       *time.Time
}

// Provisioner is the capability contract against the remote backend.
// Info and Stop are idempotent from the caller's perspective; Start is
// not, and callers guard against duplicate invocation.
type Provisioner interface {
	Start(ctx context.Context, req StartRequest) (string, error)
	Info(ctx context.Context, jobflowID string) (*ClusterInfo, error)
	Stop(ctx context.Context, jobflowID string) error
}
