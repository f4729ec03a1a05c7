package domain

import "time"

// ClassifyJob is the payload of a deferred classification request.
type ClassifyJob struct {
	DocumentID string    `json:"document_id"`
	BackendKey string    `json:"backend_key"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
