package erasure

import (
	"fmt"

	"github.com/juju/errors"
)

const (
	ErrAlreadySent       = errors.ConstError("request has already been sent")
	ErrInvalidTransition = errors.ConstError("status transition not allowed")
)

// DeliveryError is a Mailer failure. Engine entry points report it as
// OutcomeFailed rather than returning it.
type DeliveryError struct {
	Kind string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}
