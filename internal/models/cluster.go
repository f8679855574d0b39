package models

import (
	"time"
)

// Cluster represents one remotely-provisioned EMR cluster managed by
// emr-controller. It tracks both the desired state (size, lifetime,
// release) and the observed state reported by AWS (status, timestamps,
// master address).
type Cluster struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Identity
	Identifier string `json:"identifier" gorm:"not null;index"`
	CreatedBy  string `json:"created_by" gorm:"index"`
	OwnerEmail string `json:"owner_email"`

	// Sizing
	Size              int    `json:"size" gorm:"not null"`
	EMRReleaseVersion string `json:"emr_release_version" gorm:"not null"`
	SSHPublicKey      string `json:"-" gorm:"type:text"`

	// Lifetime
	Lifetime               int        `json:"lifetime"`
	LifetimeExtensionCount int        `json:"lifetime_extension_count"`
	ExpiresAt              *time.Time `json:"expires_at"`

	// Milestone timestamps reported by the backend
	StartedAt  *time.Time `json:"started_at"`
	ReadyAt    *time.Time `json:"ready_at"`
	FinishedAt *time.Time `json:"finished_at"`

	// Remote linkage
	JobflowID     *string `json:"jobflow_id" gorm:"index"`
	MasterAddress string  `json:"master_address"`

	// Observed status
	MostRecentStatus  ClusterStatus `json:"most_recent_status" gorm:"index;default:''"`
	StateChangeReason string        `json:"state_change_reason"`

	// Whether the pre-expiration notice was already dispatched.
	ExpirationMailSent bool `json:"expiration_mail_sent"`

	// Optimistic concurrency token, bumped on every persisted update.
	SyncVersion uint `json:"-" gorm:"default:0"`
}

// ClusterStatus is the AWS-reported cluster state.
type ClusterStatus string

const (
	StatusStarting             ClusterStatus = "STARTING"
	StatusBootstrapping        ClusterStatus = "BOOTSTRAPPING"
	StatusRunning              ClusterStatus = "RUNNING"
	StatusWaiting              ClusterStatus = "WAITING"
	StatusTerminating          ClusterStatus = "TERMINATING"
	StatusTerminated           ClusterStatus = "TERMINATED"
	StatusTerminatedWithErrors ClusterStatus = "TERMINATED_WITH_ERRORS"
)

// ActiveStatuses are the states in which the remote cluster still exists
// and is worth polling.
var ActiveStatuses = []ClusterStatus{
	StatusStarting,
	StatusBootstrapping,
	StatusRunning,
	StatusWaiting,
	StatusTerminating,
}

// ReadyStatuses are the states in which the cluster accepts work.
// RUNNING and WAITING are not ordered relative to each other; the
// backend may report either repeatedly.
var ReadyStatuses = []ClusterStatus{
	StatusRunning,
	StatusWaiting,
}

// FinalStatuses are terminal: once reached no further transition is
// accepted and polling stops.
var FinalStatuses = []ClusterStatus{
	StatusTerminated,
	StatusTerminatedWithErrors,
}

// State-change reasons reported by the backend alongside a status.
const (
	StateChangeInternalError     = "INTERNAL_ERROR"
	StateChangeValidationError   = "VALIDATION_ERROR"
	StateChangeInstanceFailure   = "INSTANCE_FAILURE"
	StateChangeBootstrapFailure  = "BOOTSTRAP_FAILURE"
	StateChangeUserRequest       = "USER_REQUEST"
	StateChangeStepFailure       = "STEP_FAILURE"
	StateChangeAllStepsCompleted = "ALL_STEPS_COMPLETED"
)

// FailedStateChangeReasons indicate the backend killed the cluster
// rather than the user or normal completion.
var FailedStateChangeReasons = []string{
	StateChangeInternalError,
	StateChangeValidationError,
	StateChangeInstanceFailure,
	StateChangeBootstrapFailure,
	StateChangeStepFailure,
}

const (
	// DefaultSize is the node count used when a creation request leaves it unset.
	DefaultSize = 1
	// DefaultLifetime is the cluster lifetime in hours when unset.
	DefaultLifetime = 8
)

// IsActive returns true while the remote cluster exists in a non-terminal state.
func (c *Cluster) IsActive() bool {
	return statusIn(c.MostRecentStatus, ActiveStatuses)
}

// IsReady returns true when the cluster accepts work.
func (c *Cluster) IsReady() bool {
	return statusIn(c.MostRecentStatus, ReadyStatuses)
}

// IsTerminated returns true for a cleanly terminated cluster.
func (c *Cluster) IsTerminated() bool {
	return c.MostRecentStatus == StatusTerminated
}

// IsFailed returns true for a cluster that terminated with errors.
func (c *Cluster) IsFailed() bool {
	return c.MostRecentStatus == StatusTerminatedWithErrors
}

// IsFinal returns true once the cluster reached a terminal status.
// A terminal record accepts no further status transitions.
func (c *Cluster) IsFinal() bool {
	return statusIn(c.MostRecentStatus, FinalStatuses)
}

// IsTerminating returns true while a stop request is being honored.
func (c *Cluster) IsTerminating() bool {
	return c.MostRecentStatus == StatusTerminating
}

// IsExpiringWithin returns true when the cluster expires at or before
// now+window. Records without an expiration never expire.
func (c *Cluster) IsExpiringWithin(now time.Time, window time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !c.ExpiresAt.After(now.Add(window))
}

// IsExpired returns true once the cluster lifetime has run out.
func (c *Cluster) IsExpired(now time.Time) bool {
	return c.IsExpiringWithin(now, 0)
}

func statusIn(status ClusterStatus, set []ClusterStatus) bool {
	for _, s := range set {
		if status == s {
			return true
		}
	}
	return false
}

// TableName returns the table name for the Cluster model
func (Cluster) TableName() string {
	return "clusters"
}
