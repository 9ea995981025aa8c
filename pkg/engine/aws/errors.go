package aws

import (
	"errors"

	"github.com/aws/smithy-go"
)

var throttleCodes = map[string]bool{
	"Throttling":                             true,
	"ThrottlingException":                    true,
	"ThrottledException":                     true,
	"RequestLimitExceeded":                   true,
	"RequestThrottled":                       true,
	"RequestThrottledException":              true,
	"TooManyRequestsException":               true,
	"ProvisionedThroughputExceededException": true,
	"SlowDown":                               true,
}

var conflictCodes = map[string]bool{
	"ConcurrentModificationException": true,
	"ConflictException":               true,
	"OperationAbortedException":       true,
}

// IsThrottle reports whether err is a provider rate-limit rejection.
func IsThrottle(err error) bool {
	return throttleCodes[apiErrorCode(err)]
}

// IsConflict reports whether err signals a concurrent modification.
func IsConflict(err error) bool {
	return conflictCodes[apiErrorCode(err)]
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
