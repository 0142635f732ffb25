package response

const (
	ErrCodeSuccess        = 2000 // Success
	ErrCodeParamInvalid   = 4000 // Request parameters invalid
	ErrCodeUnauthorized   = 4001 // Missing or invalid bearer token
	ErrCodeForbidden      = 4003 // Channel access denied
	ErrCodeMalformedEvent = 4004 // Invocation envelope or message malformed
	ErrCodeConnectionGone = 4010 // Connection no longer exists
	ErrCodeRateLimited    = 4029 // Too many requests
	ErrCodeInternal       = 5000 // Unexpected server error
	ErrCodeDeliveryFailed = 5002 // Fan-out finished with delivery failures
)

// message
var msg = map[int]string{
	ErrCodeSuccess:        "success",
	ErrCodeParamInvalid:   "request parameters are invalid",
	ErrCodeUnauthorized:   "unauthorized",
	ErrCodeForbidden:      "access to channel denied",
	ErrCodeMalformedEvent: "malformed event",
	ErrCodeConnectionGone: "connection gone",
	ErrCodeRateLimited:    "rate limit exceeded",
	ErrCodeInternal:       "internal server error",
	ErrCodeDeliveryFailed: "delivery failed",
}

// Msg returns the message for a code.
func Msg(code int) string {
	if m, ok := msg[code]; ok {
		return m
	}
	return msg[ErrCodeInternal]
}
