package dto

import "time"

// Response is the envelope every API endpoint returns.
type Response struct {
	Success   bool        `json:"success"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Error codes
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeUpstream          = "UPSTREAM_ERROR"
	CodeNoAvailableWorker = "NO_AVAILABLE_WORKER"
	CodeInternal          = "INTERNAL_ERROR"
)

func OK(data interface{}) Response {
	return Response{Success: true, Timestamp: time.Now().UTC(), Data: data}
}

func Fail(code, message string, details ...string) Response {
	return Response{
		Success:   false,
		Timestamp: time.Now().UTC(),
		Error:     &ErrorBody{Code: code, Message: message, Details: details},
	}
}
