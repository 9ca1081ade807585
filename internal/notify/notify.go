// Package notify is the boundary to the external mail collaborator. The
// scheduler only sees the Deliverer interface.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/report"
)

// DeliveryError wraps a failed report delivery. Permanent failures (bad
// configuration) are not worth retrying; everything else is retried by the
// scheduler with bounded backoff.
type DeliveryError struct {
	Permanent bool
	Err       error
}

func (e *DeliveryError) Error() string {
	if e.Permanent {
		return fmt.Sprintf("delivery failed permanently: %v", e.Err)
	}
	return fmt.Sprintf("delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether err is a delivery failure that retries
// cannot fix.
func IsPermanent(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Permanent
}

// Deliverer hands a finished daily report to the outside world and returns
// a reference to the delivered artifact.
type Deliverer interface {
	Deliver(ctx context.Context, p report.Payload) (string, error)
}
