package model

import "time"

type OperationStatus string

const (
	OperationSuccess OperationStatus = "SUCCESS"
	OperationError   OperationStatus = "ERROR"
)

// OperationLog is one entry of the append-only audit trail.
type OperationLog struct {
	ID           int64           `json:"id"`
	Operation    string          `json:"operation"`
	Details      string          `json:"details"`
	Status       OperationStatus `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}
