package provisioner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func TestReleaseLabel(t *testing.T) {
	t.Run("should prefix a bare catalog version", func(t *testing.T) {
		assert.Equal(t, "emr-5.11.0", releaseLabel("5.11.0"))
	})

	t.Run("should pass an already-prefixed label through", func(t *testing.T) {
		assert.Equal(t, "emr-5.11.0", releaseLabel("emr-5.11.0"))
	})
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		transient bool
	}{
		{
			name:      "deadline exceeded",
			err:       context.DeadlineExceeded,
			transient: true,
		},
		{
			name:      "cancelled call",
			err:       context.Canceled,
			transient: true,
		},
		{
			name:      "wrapped deadline",
			err:       fmt.Errorf("describe: %w", context.DeadlineExceeded),
			transient: true,
		},
		{
			name:      "throttling",
			err:       &smithy.GenericAPIError{Code: "ThrottlingException", Fault: smithy.FaultClient},
			transient: true,
		},
		{
			name:      "request limit",
			err:       &smithy.GenericAPIError{Code: "RequestLimitExceeded", Fault: smithy.FaultClient},
			transient: true,
		},
		{
			name:      "server fault",
			err:       &smithy.GenericAPIError{Code: "SomethingBroke", Fault: smithy.FaultServer},
			transient: true,
		},
		{
			name:      "validation failure",
			err:       &smithy.GenericAPIError{Code: "ValidationException", Fault: smithy.FaultClient},
			transient: false,
		},
		{
			name:      "missing cluster",
			err:       &smithy.GenericAPIError{Code: "InvalidRequestException", Fault: smithy.FaultClient},
			transient: false,
		},
		{
			name:      "bare transport error",
			err:       errors.New("connection reset by peer"),
			transient: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.transient, isTransient(tc.err))
		})
	}
}
