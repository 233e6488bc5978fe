package model

import "fmt"

// QueryError is a non-success response from the build or pull request
// service. It carries the HTTP status code and response body so operators
// can tell a permissions problem (401/403) from a bad request.
type QueryError struct {
	Op         string // Which query failed, e.g. "find active build".
	StatusCode int
	Body       string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: status=%d body=%s", e.Op, e.StatusCode, e.Body)
}

// DeliveryError is a non-2xx response from the notification webhook.
// Delivery is best-effort: callers log it and never retry.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook delivery failed: status=%d body=%s", e.StatusCode, e.Body)
}
