package store

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// transientCodes are DynamoDB error codes that indicate the service could
// not serve the request right now.
var transientCodes = map[string]struct{}{
	"ProvisionedThroughputExceededException": {},
	"ThrottlingException":                    {},
	"RequestLimitExceeded":                   {},
	"InternalServerError":                    {},
	"ServiceUnavailable":                     {},
	"LimitExceededException":                 {},
	"TransactionInProgressException":         {},
}

// classify maps an SDK error to ErrUnavailable when it is transient, and
// wraps anything else as an internal failure of op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return unavailable(op, err)
	}
	return fmt.Errorf("%s item: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var sendErr *smithyhttp.RequestSendError
	if errors.As(err, &sendErr) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := transientCodes[apiErr.ErrorCode()]; ok {
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
