package dto

// ErrorResponse is the body of every failed request. Failures lists the
// per-user errors of a batch operation.
type ErrorResponse struct {
	Error    string            `json:"error"`
	Failures map[string]string `json:"failures,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
