package responses

import "github.com/billing-resolver/app/models"

// ResolveResponse returns one tagged result per requested row, in
// request order.
type ResolveResponse struct {
	Results          []models.ResolutionResult `json:"results"`
	ProcessingTimeMs int64                     `json:"processing_time_ms"`
	RequestID        string                    `json:"request_id,omitempty"`
}

// ErrorResponse is the generic failure envelope.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthCheckResponse reports service liveness.
type HealthCheckResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services,omitempty"`
}
