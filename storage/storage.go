package storage

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"eproba-editor/domain"
)

type draftTable interface {
	GetEntity(ctx context.Context, partitionKey, rowKey string, o *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	AddEntity(ctx context.Context, entity []byte, o *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, o *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, o *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
}

type messageQueue interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// Storage keeps drafts in Azure Table Storage and hands submissions to an
// Azure Storage Queue.
type Storage struct {
	draftTable      draftTable
	tableName       string
	submissionQueue messageQueue
}

// Azure Queue messages hold at most 64 KiB; the rest is left for XML escaping.
const maxQueueMessageBytes = 48 * 1024

var retryStatusCodes = []int{408, 429, 500, 502, 503, 504}

// New creates a Storage instance from the given connection string.
func New(connStr, draftsTable, submissionQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 2,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, submissionQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{draftTable: svc.NewClient(draftsTable), tableName: draftsTable, submissionQueue: q}, nil
}

func encodeDraftEntity(d domain.Draft) ([]byte, error) {
	data, err := sonic.MarshalString(d)
	if err != nil {
		return nil, err
	}
	return encodeChunkedEntity(d.OwnerID, d.ID, map[string]any{"Kind": string(d.Kind)}, data)
}

func decodeDraftEntity(value []byte, etag azcore.ETag) (domain.Draft, error) {
	keys, data, err := decodeChunkedEntity(value)
	if err != nil {
		return domain.Draft{}, err
	}
	var d domain.Draft
	if err := sonic.UnmarshalString(data, &d); err != nil {
		return domain.Draft{}, err
	}
	d.OwnerID = keys.PartitionKey
	d.ID = keys.RowKey
	d.ETag = string(etag)
	return d, nil
}

// FetchDraft loads the owner's draft.
func (s *Storage) FetchDraft(ctx context.Context, ownerID, draftID string) (domain.Draft, error) {
	resp, err := s.draftTable.GetEntity(ctx, ownerID, draftID, nil)
	if err != nil {
		return domain.Draft{}, mapAzureError(err)
	}
	return decodeDraftEntity(resp.Value, resp.ETag)
}

// CreateDraft inserts a new draft; an existing row yields ErrConcurrencyConflict.
func (s *Storage) CreateDraft(ctx context.Context, d domain.Draft) (domain.Draft, error) {
	payload, err := encodeDraftEntity(d)
	if err != nil {
		return domain.Draft{}, err
	}
	resp, err := s.draftTable.AddEntity(ctx, payload, nil)
	if err != nil {
		return domain.Draft{}, mapAzureError(err)
	}
	d.ETag = string(resp.ETag)
	return d, nil
}

// SaveDraft replaces the draft if its ETag still matches the stored row.
func (s *Storage) SaveDraft(ctx context.Context, d domain.Draft) (domain.Draft, error) {
	payload, err := encodeDraftEntity(d)
	if err != nil {
		return domain.Draft{}, err
	}
	et := azcore.ETag(d.ETag)
	if d.ETag == "" {
		et = azcore.ETagAny
	}
	resp, err := s.draftTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeReplace})
	if err != nil {
		return domain.Draft{}, mapAzureError(err)
	}
	d.ETag = string(resp.ETag)
	return d, nil
}

// DeleteDraft removes the draft regardless of its ETag.
func (s *Storage) DeleteDraft(ctx context.Context, ownerID, draftID string) error {
	et := azcore.ETagAny
	_, err := s.draftTable.DeleteEntity(ctx, ownerID, draftID, &aztables.DeleteEntityOptions{IfMatch: &et})
	return mapAzureError(err)
}

// EnqueueSubmission sends the submission to the submission queue. A message
// that would not fit the queue carries a PayloadRef instead of the payload,
// which is written to the drafts table under the user's partition.
func (s *Storage) EnqueueSubmission(ctx context.Context, userID string, sub domain.Submission) error {
	env := domain.SubmissionEnvelope{UserID: userID, Submission: sub}
	data, err := sonic.MarshalString(env)
	if err != nil {
		return err
	}
	if len(data) > maxQueueMessageBytes {
		ref, err := s.storePayload(ctx, userID, sub)
		if err != nil {
			return err
		}
		env.Submission.Payload = nil
		env.PayloadRef = &ref
		if data, err = sonic.MarshalString(env); err != nil {
			return err
		}
		if len(data) > maxQueueMessageBytes {
			return ErrTooLarge
		}
	}
	_, err = s.submissionQueue.EnqueueMessage(ctx, data, nil)
	return mapAzureError(err)
}

func (s *Storage) storePayload(ctx context.Context, userID string, sub domain.Submission) (domain.PayloadRef, error) {
	ref := domain.PayloadRef{Table: s.tableName, PartitionKey: userID, RowKey: "submission-" + uuid.NewString()}
	entity, err := encodeChunkedEntity(ref.PartitionKey, ref.RowKey, map[string]any{
		"Kind":           "submission",
		"DraftId":        sub.DraftID,
		"IdempotencyKey": sub.IdempotencyKey,
	}, string(sub.Payload))
	if err != nil {
		return domain.PayloadRef{}, err
	}
	if _, err := s.draftTable.AddEntity(ctx, entity, nil); err != nil {
		return domain.PayloadRef{}, mapAzureError(err)
	}
	return ref, nil
}
