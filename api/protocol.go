package api

import "eproba-editor/domain"

// maxBodySize fits a document with every field at its domain limit, written
// with multi-byte characters.
const maxBodySize = 2 << 20 // 2 MiB

// POST /api/editors request body
type openEditorRequest struct {
	Kind     string               `json:"kind"`
	Document *domain.WireDocument `json:"document,omitempty"`
}

// PUT /api/editors/:id/categories request body
type categoriesRequest struct {
	Enabled *bool `json:"enabled"`
}

// POST /api/editors/:id/tasks request body
type addTaskRequest struct {
	Category string `json:"category"`
}

// POST /api/editors/:id/reorder request body
type reorderRequest struct {
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
	Edge     string `json:"edge,omitempty"`
}

// POST /api/editors/:id/move request body
type moveRequest struct {
	SourceID     string `json:"sourceId"`
	DestCategory string `json:"destCategory"`
	TargetID     string `json:"targetId,omitempty"`
	Edge         string `json:"edge,omitempty"`
}

// POST /api/editors/:id/transfer request body
type transferRequest struct {
	SourceCategory string `json:"sourceCategory"`
	DestCategory   string `json:"destCategory"`
}

// POST /api/editors/:id/submit request body
type submitRequest struct {
	IdempotencyKey      string   `json:"idempotencyKey,omitempty"`
	AcknowledgeModified bool     `json:"acknowledgeModified,omitempty"`
	// ClearStatus names the modified reviewed tasks whose review status the
	// backend should reset. Ids of other tasks are ignored.
	ClearStatus         []string `json:"clearStatus,omitempty"`
}

// editor routes response body
type editorResponse struct {
	Draft         domain.Draft          `json:"draft"`
	Changed       bool                  `json:"changed"`
	TaskID        string                `json:"taskId,omitempty"`
	ModifiedTasks []domain.ModifiedTask `json:"modifiedTasks,omitempty"`
}

// POST /api/editors/:id/submit response body
type submitResponse struct {
	IdempotencyKey string                `json:"idempotencyKey,omitempty"`
	Method         string                `json:"method,omitempty"`
	Path           string                `json:"path,omitempty"`
	ModifiedTasks  []domain.ModifiedTask `json:"modifiedTasks,omitempty"`
	Error          string                `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
