package api

import (
	"context"

	"eproba-editor/domain"
)

// Storage abstracts draft persistence and submission delivery for handlers.
type Storage interface {
	FetchDraft(ctx context.Context, ownerID, draftID string) (domain.Draft, error)
	CreateDraft(ctx context.Context, d domain.Draft) (domain.Draft, error)
	// SaveDraft fails with storage.ErrConcurrencyConflict when d.ETag is stale.
	SaveDraft(ctx context.Context, d domain.Draft) (domain.Draft, error)
	DeleteDraft(ctx context.Context, ownerID, draftID string) error
	EnqueueSubmission(ctx context.Context, userID string, sub domain.Submission) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents processing of duplicate submissions.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when downstream processing fails.
	Remove(ctx context.Context, userID, key string) error
}
