package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"eproba-editor/domain"
	"eproba-editor/storage"
)

const defaultTasksPerCategory = 3

// Options tunes editor behaviour that is not tied to a backing service.
type Options struct {
	DefaultTasksPerCategory int
}

var errInvalidRequest = errors.New("invalid request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, fmt.Sprintf(format, args...))
}

type handlers struct {
	svc     *editorService
	auth    Authenticator
	deduper Deduper
	sender  *SubmissionSender
	logger  *log.Logger
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, auth Authenticator, deduper Deduper, sender *SubmissionSender, logger *log.Logger, opts Options) {
	h := &handlers{
		svc:     newEditorService(store, logger, opts),
		auth:    auth,
		deduper: deduper,
		sender:  sender,
		logger:  logger,
	}

	e.POST("/api/editors", h.route("/api/editors", "open", h.openEditor))
	e.GET("/api/editors/:id", h.route("/api/editors/:id", "get", h.getEditor))
	e.DELETE("/api/editors/:id", h.route("/api/editors/:id", "discard", h.discardEditor))
	e.PATCH("/api/editors/:id", h.route("/api/editors/:id", "update_info", h.updateInfo))
	e.PUT("/api/editors/:id/categories", h.route("/api/editors/:id/categories", "categories", h.setCategories))
	e.POST("/api/editors/:id/tasks", h.route("/api/editors/:id/tasks", "add_task", h.addTask))
	e.PATCH("/api/editors/:id/tasks/:taskId", h.route("/api/editors/:id/tasks/:taskId", "update_task", h.updateTask))
	e.DELETE("/api/editors/:id/tasks/:taskId", h.route("/api/editors/:id/tasks/:taskId", "remove_task", h.removeTask))
	e.POST("/api/editors/:id/reorder", h.route("/api/editors/:id/reorder", "reorder", h.reorder))
	e.POST("/api/editors/:id/move", h.route("/api/editors/:id/move", "move", h.move))
	e.POST("/api/editors/:id/transfer", h.route("/api/editors/:id/transfer", "transfer", h.transfer))
	e.POST("/api/editors/:id/drop", h.route("/api/editors/:id/drop", "drop", h.drop))
	e.POST("/api/editors/:id/steps", h.route("/api/editors/:id/steps", "step", h.step))
	e.POST("/api/editors/:id/submit", h.route("/api/editors/:id/submit", "submit", h.submit))
	e.GET("/healthz", healthz)
}

func healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// editorRequest is the authenticated part of a request shared by every route.
type editorRequest struct {
	ctx     context.Context
	userID  string
	metrics *editorRequestMetrics
}

type editorHandler func(c echo.Context, req *editorRequest) error

// route wraps fn with tracing, the observability event and bearer auth.
func (h *handlers) route(path, operation string, fn editorHandler) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newEditorRequestMetrics(c.Request().Context(), h.logger, path, operation)
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := h.auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.Fail("auth", authErr)
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: authErr.Error()})
		}
		return fn(c, &editorRequest{ctx: ctx, userID: userID, metrics: metrics})
	}
}

// decodeBody reads a JSON body of at most maxBodySize bytes. An empty body is
// accepted only when optional is set.
func decodeBody(c echo.Context, v any, optional bool) error {
	if optional && c.Request().ContentLength == 0 {
		return nil
	}
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return badRequest("invalid body")
	}
	return nil
}

// fail maps err to a status code and writes the error body.
func (h *handlers) fail(c echo.Context, req *editorRequest, stage string, err error) error {
	req.metrics.Fail(stage, err)

	var verr domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, errInvalidRequest):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "editor not found"})
	case errors.Is(err, errTaskNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrConcurrencyConflict):
		return c.JSON(http.StatusConflict, errorResponse{Error: "editor was changed concurrently"})
	case errors.Is(err, storage.ErrTooLarge):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "editor content exceeds storage limits", Field: "tasks"})
	case errors.Is(err, domain.ErrNoContent):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Field: "tasks"})
	default:
		h.logger.WithFields(log.Fields{
			"user":  req.userID,
			"stage": stage,
		}).Errorf("editor request failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *handlers) respond(c echo.Context, req *editorRequest, status int, resp editorResponse) error {
	req.metrics.SetTasks(len(resp.Draft.Tasks))
	req.metrics.SetChanged(resp.Changed)
	return c.JSON(status, resp)
}

// apply runs fn through the load, apply and save loop and answers with the
// resulting draft.
func (h *handlers) apply(c echo.Context, req *editorRequest, fn mutation) error {
	d, changed, err := h.svc.mutate(req.ctx, req.metrics, req.userID, c.Param("id"), fn)
	if err != nil {
		return h.fail(c, req, "", err)
	}
	return h.respond(c, req, http.StatusOK, editorResponse{Draft: d, Changed: changed})
}

func (h *handlers) openEditor(c echo.Context, req *editorRequest) error {
	var body openEditorRequest
	if err := decodeBody(c, &body, false); err != nil {
		return h.fail(c, req, "decode", err)
	}
	kind, ok := domain.ParseDraftKind(body.Kind)
	if !ok {
		return h.fail(c, req, "decode", badRequest("unknown kind %q", body.Kind))
	}

	saveStart := time.Now()
	d, err := h.svc.open(req.ctx, req.userID, kind, body.Document)
	req.metrics.ObserveSave(time.Since(saveStart))
	if err != nil {
		return h.fail(c, req, "save", err)
	}
	return h.respond(c, req, http.StatusCreated, editorResponse{Draft: d, Changed: true})
}

func (h *handlers) getEditor(c echo.Context, req *editorRequest) error {
	loadStart := time.Now()
	d, err := h.svc.store.FetchDraft(req.ctx, req.userID, c.Param("id"))
	req.metrics.ObserveLoad(time.Since(loadStart))
	if err != nil {
		return h.fail(c, req, "load", err)
	}
	return h.respond(c, req, http.StatusOK, editorResponse{Draft: d, ModifiedTasks: d.ModifiedReviewedTasks()})
}

func (h *handlers) discardEditor(c echo.Context, req *editorRequest) error {
	saveStart := time.Now()
	err := h.svc.store.DeleteDraft(req.ctx, req.userID, c.Param("id"))
	req.metrics.ObserveSave(time.Since(saveStart))
	if err != nil {
		return h.fail(c, req, "delete", err)
	}
	req.metrics.SetChanged(true)
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) updateInfo(c echo.Context, req *editorRequest) error {
	var info domain.DraftInfo
	if err := decodeBody(c, &info, false); err != nil {
		return h.fail(c, req, "decode", err)
	}
	return h.apply(c, req, func(d *domain.Draft) (bool, error) {
		before := *d
		d.ApplyInfo(info)
		if err := d.ValidateLimits(); err != nil {
			return false, err
		}
		return !sameInfo(before, *d), nil
	})
}

func (h *handlers) setCategories(c echo.Context, req *editorRequest) error {
	var body categoriesRequest
	if err := decodeBody(c, &body, false); err != nil {
		return h.fail(c, req, "decode", err)
	}
	if body.Enabled == nil {
		return h.fail(c, req, "decode", badRequest("enabled is required"))
	}
	return h.apply(c, req, func(d *domain.Draft) (bool, error) {
		wasEnabled, before := d.CategoriesEnabled, d.Tasks
		d.SetCategoriesEnabled(*body.Enabled)
		return wasEnabled != d.CategoriesEnabled || !domain.Equal(before, d.Tasks), nil
	})
}

func (h *handlers) addTask(c echo.Context, req *editorRequest) error {
	var body addTaskRequest
	if err := decodeBody(c, &body, false); err != nil {
		return h.fail(c, req, "decode", err)
	}
	category, ok := domain.ParseCategory(body.Category)
	if !ok {
		return h.fail(c, req, "decode", badRequest("unknown category %q", body.Category))
	}

	taskID := h.svc.newID()
	d, changed, err := h.svc.mutate(req.ctx, req.metrics, req.userID, c.Param("id"), func(d *domain.Draft) (bool, error) {
		if category == domain.CategoryIndividual && !d.CategoriesEnabled {
			return false, domain.ValidationError{Field: "category", Message: "categories are disabled"}
		}
		if len(d.Tasks) >= domain.MaxTasks {
			return false, domain.ValidationError{Field: "tasks", Message: fmt.Sprintf("at most %d tasks", domain.MaxTasks)}
		}
		d.Tasks = domain.AddTask(d.Tasks, category, taskID)
		return true, nil
	})
	if err != nil {
		return h.fail(c, req, "", err)
	}
	return h.respond(c, req, http.StatusCreated, editorResponse{Draft: d, Changed: changed, TaskID: taskID})
}

func (h *handlers) updateTask(c echo.Context, req *editorRequest) error {
	var u domain.TaskUpdate
	if err := decodeBody(c, &u, false); err != nil {
		return h.fail(c, req, "decode", err)
	}
	taskID := c.Param("taskId")
	return h.apply(c, req, func(d *domain.Draft) (bool, error) {
		before, ok := findTask(d.Tasks, taskID)
		if !ok {
			return false, errTaskNotFound
		}
		next := domain.UpdateTask(d.Tasks, taskID, u)
		after, _ := findTask(next, taskID)
		if err := after.Validate(); err != nil {
			return false, err
		}
		d.Tasks = next
		return before != after, nil
	})
}

func (h *handlers) removeTask(c echo.Context, req *editorRequest) error {
	taskID := c.Param("taskId")
	return h.apply(c, req, func(d *domain.Draft) (bool, error) {
		if _, ok := findTask(d.Tasks, taskID); !ok {
			return false, errTaskNotFound
		}
		d.Tasks = domain.RemoveTask(d.Tasks, taskID)
		return true, nil
	})
}

func (h *handlers) reorder(c echo.Context, req *editorRequest) error {
	var body reorderRequest
	if err := decodeBody(c, &body, false); err != nil {
		return h.fail(c, req, "decode", err)
	}
	if body.SourceID == "" || body.TargetID == "" {
		return h.fail(c, req, "decode", badRequest("sourceId and targetId are required"))
	}
	edge := domain.ParseEdge(body.Edge)
	return h.apply(c, req, reorderTasks(func(tasks []domain.Task) []domain.Task {
		return domain.Reorder(tasks, body.SourceID, body.TargetID, edge)
	}))
}

func (h *handlers) move(c echo.Context, req *editorRequest) error {
	var body moveRequest
	if err := decodeBody(c, &body, false); err != nil {
		return h.fail(c, req, "decode", err)
	}
	if body.SourceID == "" {
		return h.fail(c, req, "decode", badRequest("sourceId is required"))
	}
	dest, ok := domain.ParseCategory(body.DestCategory)
	if !ok {
		return h.fail(c, req, "decode", badRequest("unknown category %q", body.DestCategory))
	}
	edge := domain.ParseEdge(body.Edge)
	return h.apply(c, req, reorderTasks(func(tasks []domain.Task) []domain.Task {
		return domain.MoveBetweenCategories(tasks, body.SourceID, dest, body.TargetID, edge)
	}))
}

func (h *handlers) transfer(c echo.Context, req *editorRequest) error {
	var body transferRequest
	if err := decodeBody(c, &body, false); err != nil {
		return h.fail(c, req, "decode", err)
	}
	source, ok := domain.ParseCategory(body.SourceCategory)
	if !ok {
		return h.fail(c, req, "decode", badRequest("unknown category %q", body.SourceCategory))
	}
	dest, ok := domain.ParseCategory(body.DestCategory)
	if !ok {
		return h.fail(c, req, "decode", badRequest("unknown category %q", body.DestCategory))
	}
	return h.apply(c, req, reorderTasks(func(tasks []domain.Task) []domain.Task {
		return domain.TransferAll(tasks, source, dest)
	}))
}

func (h *handlers) drop(c echo.Context, req *editorRequest) error {
	var ev domain.DropEvent
	if err := decodeBody(c, &ev, false); err != nil {
		return h.fail(c, req, "decode", err)
	}
	if ev.SourceID == "" {
		return h.fail(c, req, "decode", badRequest("sourceId is required"))
	}
	return h.apply(c, req, dropTasks(ev))
}

func (h *handlers) step(c echo.Context, req *editorRequest) error {
	var s domain.Step
	if err := decodeBody(c, &s, false); err != nil {
		return h.fail(c, req, "decode", err)
	}
	switch s.Action {
	case domain.StepUp, domain.StepDown:
	case domain.StepCategory:
		if !s.Category.Valid() {
			return h.fail(c, req, "decode", badRequest("unknown category %q", s.Category))
		}
	default:
		return h.fail(c, req, "decode", badRequest("unknown action %q", s.Action))
	}
	return h.apply(c, req, reorderTasks(func(tasks []domain.Task) []domain.Task {
		return domain.ApplyStep(tasks, s)
	}))
}

func (h *handlers) submit(c echo.Context, req *editorRequest) error {
	var body submitRequest
	if err := decodeBody(c, &body, true); err != nil {
		return h.fail(c, req, "decode", err)
	}

	loadStart := time.Now()
	d, err := h.svc.store.FetchDraft(req.ctx, req.userID, c.Param("id"))
	req.metrics.ObserveLoad(time.Since(loadStart))
	if err != nil {
		return h.fail(c, req, "load", err)
	}
	req.metrics.SetTasks(len(d.Tasks))

	if err := d.Validate(); err != nil {
		return h.fail(c, req, "validate", err)
	}
	modified := d.ModifiedReviewedTasks()
	if len(modified) > 0 && !body.AcknowledgeModified {
		req.metrics.SetErrorStage("modified_tasks")
		return c.JSON(http.StatusConflict, submitResponse{
			ModifiedTasks: modified,
			Error:         "reviewed tasks were modified",
		})
	}
	reset := clearableTasks(modified, body.ClearStatus)

	key := body.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	sub, err := d.Submission(key, reset, nextTimestamp())
	if err != nil {
		return h.fail(c, req, "validate", err)
	}

	added, err := h.deduper.Add(req.ctx, req.userID, key)
	if err != nil {
		return h.fail(c, req, "dedupe", err)
	}
	if !added {
		req.metrics.SetErrorStage("duplicate")
		return c.JSON(http.StatusConflict, submitResponse{IdempotencyKey: key, Error: "duplicate submission"})
	}

	if err := h.sender.Send(req.ctx, req.userID, sub); err != nil {
		return h.fail(c, req, "enqueue", err)
	}
	req.metrics.SetChanged(true)
	return c.JSON(http.StatusAccepted, submitResponse{
		IdempotencyKey: key,
		Method:         sub.Method,
		Path:           sub.Path,
		ModifiedTasks:  modified,
	})
}

// clearableTasks keeps the requested ids that name a modified reviewed task.
func clearableTasks(modified []domain.ModifiedTask, requested []string) []string {
	if len(requested) == 0 {
		return nil
	}
	want := make(map[string]bool, len(requested))
	for _, id := range requested {
		want[id] = true
	}
	var out []string
	for _, m := range modified {
		if want[m.ID] {
			out = append(out, m.ID)
		}
	}
	return out
}

func findTask(tasks []domain.Task, id string) (domain.Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

func sameInfo(a, b domain.Draft) bool {
	sameOrg := (a.Organization == nil) == (b.Organization == nil) &&
		(a.Organization == nil || *a.Organization == *b.Organization)
	return sameOrg &&
		a.Name == b.Name &&
		a.Description == b.Description &&
		a.Supervisor == b.Supervisor &&
		a.UserID == b.UserID &&
		a.Scope == b.Scope &&
		a.Team == b.Team &&
		a.TemplateNotes == b.TemplateNotes &&
		a.FinalChallenge == b.FinalChallenge &&
		a.FinalChallengeDescription == b.FinalChallengeDescription
}
