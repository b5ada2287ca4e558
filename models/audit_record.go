package models

import "time"

// AuditRecord captures the outcome metadata of one relay exchange.
// It deliberately has no field for either blob: payload contents must
// never be persisted.
type AuditRecord struct {
	RecordId       string    `json:"record_id"`
	RequestId      string    `json:"request_id"`
	UserId         string    `json:"user_id"`
	Flow           string    `json:"flow"`
	Success        bool      `json:"success"`
	LivenessPassed bool      `json:"liveness_passed"`
	Reason         string    `json:"reason"`
	ElapsedMs      int64     `json:"elapsed_ms"`
	CreatedAt      time.Time `json:"created_at"`
}
