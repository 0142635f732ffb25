package response

// ErrorBody is the JSON error envelope of the HTTP API.
type ErrorBody struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func NewError(code int) ErrorBody {
	return ErrorBody{Code: code, Error: Msg(code)}
}

// WithDetails returns a copy carrying extra detail.
func (b ErrorBody) WithDetails(details string) ErrorBody {
	b.Details = details
	return b
}
