package endpoints

import (
	"errors"
)

const (
	API_SUCCESS      = iota + 303000 // 303000
	API_FAILURE                      // 303001 - Generic API failure
	API_UNAUTHORIZED                 // 303002 - Authentication/Authorization failure
)

const (
	METRICS_NOT_AVAILABLE = iota + 101 // 101 - No samples stored in the requested range
	INVALID_REQUEST_BODY               // 102 - POST range body is not valid JSON
	INVALID_PARAMETERS                 // 103 - Bad limit, offset, order or RFC 3339 start/end
	INVALID_TIME_RANGE                 // 104 - Start time is after end time
	REQUEST_CANCELLED                  // 105 - Request was cancelled by client or server timeout
	RATE_LIMITED                       // 106 - Too many requests from this client
)

var (
	ErrNoMetricsAvailable = errors.New("no samples available for the requested range")
	ErrInvalidRequestBody = errors.New("invalid request body format or missing fields")
	ErrInvalidParameters  = errors.New("invalid limit, offset, order or timestamp parameter")
	ErrInvalidTimeRange   = errors.New("start timestamp cannot be after end timestamp")
	ErrRequestCancelled   = errors.New("request cancelled by client or server timeout")
	ErrRateLimited        = errors.New("rate limit exceeded, retry later")
	ErrMethodNotAllowed   = errors.New("method Not Allowed. Only GET requests are supported")
)

func GetErrorCode(err error) int {
	if err == nil {
		return API_SUCCESS
	}

	switch {
	case errors.Is(err, ErrNoMetricsAvailable):
		return METRICS_NOT_AVAILABLE
	case errors.Is(err, ErrInvalidRequestBody):
		return INVALID_REQUEST_BODY
	case errors.Is(err, ErrInvalidParameters):
		return INVALID_PARAMETERS
	case errors.Is(err, ErrInvalidTimeRange):
		return INVALID_TIME_RANGE
	case errors.Is(err, ErrRequestCancelled):
		return REQUEST_CANCELLED
	case errors.Is(err, ErrRateLimited):
		return RATE_LIMITED
	default:
		return API_FAILURE // Default for any unhandled error
	}
}
