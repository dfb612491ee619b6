package types

// SuccessEnvelope wraps every 2xx body so clients always unwrap the
// same "data" field.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error shape. Details is populated only for
// codes that allow them.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
