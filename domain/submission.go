package domain

import "github.com/bytedance/sonic"

// Submission is a backend write request built from a draft.
type Submission struct {
	// ID carries the idempotency key when enqueued to the submission queue.
	ID             string                 `json:"id,omitempty"`
	IdempotencyKey string                 `json:"idempotencyKey"`
	DraftID        string                 `json:"draftId"`
	Kind           DraftKind              `json:"kind"`
	Method         string                 `json:"method"`
	Path           string                 `json:"path"`
	Payload        sonic.NoCopyRawMessage `json:"payload,omitempty"`
	Timestamp      int64                  `json:"timestamp"`
}

// PayloadRef points at a submission payload kept outside the queue message
// because it would not fit in one.
type PayloadRef struct {
	Table        string `json:"table"`
	PartitionKey string `json:"partitionKey"`
	RowKey       string `json:"rowKey"`
}

// SubmissionEnvelope wraps a submission with the user performing it. When
// PayloadRef is set, Submission.Payload is empty and the payload is read from
// the referenced table row.
type SubmissionEnvelope struct {
	UserID     string      `json:"userId"`
	Submission Submission  `json:"submission"`
	PayloadRef *PayloadRef `json:"payloadRef,omitempty"`
}
