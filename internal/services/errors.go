package services

import "errors"

// Common service errors
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates a concurrent write was detected and the
	// operation did not converge after retrying
	ErrConflict = errors.New("conflict")

	// ErrNotActive indicates an operation that requires a non-terminal
	// cluster was attempted on a terminated one
	ErrNotActive = errors.New("cluster is not active")

	// ErrReleaseNotEligible indicates the referenced EMR release is not
	// active and cannot be used for new clusters
	ErrReleaseNotEligible = errors.New("release is not eligible for new clusters")

	// ErrProvisioningFailed indicates the remote start call failed and
	// the cluster was never created
	ErrProvisioningFailed = errors.New("provisioning failed")
)

// IsNotFound checks if error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput checks if error is ErrInvalidInput
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConflict checks if error is ErrConflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNotActive checks if error is ErrNotActive
func IsNotActive(err error) bool {
	return errors.Is(err, ErrNotActive)
}

// IsProvisioningFailed checks if error is ErrProvisioningFailed
func IsProvisioningFailed(err error) bool {
	return errors.Is(err, ErrProvisioningFailed)
}
