package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error body. Reason is the stable business code
// clients branch on; Kind tells them whether the failure is theirs to fix.
type APIError struct {
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
