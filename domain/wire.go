package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// ErrNoContent is returned when a draft has no task worth submitting.
var ErrNoContent = errors.New("add at least one task")

// WireTask is the backend representation of a task.
type WireTask struct {
	ID            string      `json:"id,omitempty"`
	Task          string      `json:"task"`
	Description   string      `json:"description"`
	Category      Category    `json:"category,omitempty"`
	Order         int         `json:"order"`
	TemplateNotes string      `json:"template_notes,omitempty"`
	Status        *TaskStatus `json:"status,omitempty"`
	ClearStatus   bool        `json:"clear_status,omitempty"`
}

// WireDocument is a worksheet or template as served by the backend.
type WireDocument struct {
	ID                        string     `json:"id"`
	Name                      string     `json:"name"`
	Description               string     `json:"description"`
	Supervisor                string     `json:"supervisor,omitempty"`
	User                      string     `json:"user,omitempty"`
	TemplateID                string     `json:"template_id,omitempty"`
	Scope                     string     `json:"scope,omitempty"`
	Team                      string     `json:"team,omitempty"`
	Organization              *int64     `json:"organization,omitempty"`
	TemplateNotes             string     `json:"template_notes,omitempty"`
	FinalChallenge            string     `json:"final_challenge,omitempty"`
	FinalChallengeDescription string     `json:"final_challenge_description,omitempty"`
	Tasks                     []WireTask `json:"tasks"`
}

// TasksFromWire converts backend tasks and settles their order. Tasks without
// an id get a fresh one and unknown categories fall back to general.
func TasksFromWire(in []WireTask) []Task {
	tasks := make([]Task, 0, len(in))
	for _, w := range in {
		c := w.Category
		if !c.Valid() {
			c = CategoryGeneral
		}
		id := w.ID
		if id == "" {
			id = NewTaskID()
		}
		tasks = append(tasks, Task{
			ID:            id,
			Name:          w.Task,
			Description:   w.Description,
			Category:      c,
			Order:         w.Order,
			TemplateNotes: w.TemplateNotes,
		})
	}
	return settle(Sorted(tasks))
}

// TasksToWire keeps the tasks that carry content and trims their text. Notes
// count as content and are sent only when withNotes is set.
func TasksToWire(tasks []Task, resetStatus map[string]bool, withNotes bool) []WireTask {
	var out []WireTask
	for _, t := range Sorted(tasks) {
		name := strings.TrimSpace(t.Name)
		desc := strings.TrimSpace(t.Description)
		notes := ""
		if withNotes {
			notes = strings.TrimSpace(t.TemplateNotes)
		}
		if name == "" && desc == "" && notes == "" {
			continue
		}
		out = append(out, WireTask{
			ID:            t.ID,
			Task:          name,
			Description:   desc,
			Category:      t.Category,
			Order:         t.Order,
			TemplateNotes: notes,
			ClearStatus:   resetStatus[t.ID],
		})
	}
	return out
}

// DraftFromWire opens an editor on an existing document. A document without
// tasks gets the default blank set.
func DraftFromWire(id, ownerID string, kind DraftKind, doc WireDocument, perCategory int, now time.Time) Draft {
	d := NewDraft(id, ownerID, kind, perCategory, now)
	d.SourceID = doc.ID
	d.Name = doc.Name
	d.Description = doc.Description
	d.Supervisor = doc.Supervisor
	d.UserID = doc.User
	d.TemplateID = doc.TemplateID
	d.Team = doc.Team
	d.Organization = doc.Organization
	d.TemplateNotes = doc.TemplateNotes
	d.FinalChallenge = doc.FinalChallenge
	d.FinalChallengeDescription = doc.FinalChallengeDescription
	if doc.Scope != "" {
		d.Scope = TemplateScope(doc.Scope)
	}
	if len(doc.Tasks) > 0 {
		d.Tasks = TasksFromWire(doc.Tasks)
		d.CategoriesEnabled = len(InCategory(d.Tasks, CategoryIndividual)) > 0
	}
	for _, w := range doc.Tasks {
		if w.Status == nil || w.ID == "" {
			continue
		}
		d.Baseline = append(d.Baseline, BaselineTask{ID: w.ID, Name: w.Task, Description: w.Description, Status: *w.Status})
	}
	return d
}

// WorksheetPayload is the body of a worksheet create or update request.
type WorksheetPayload struct {
	UserID                    string     `json:"user_id,omitempty"`
	Name                      string     `json:"name"`
	Description               string     `json:"description"`
	Supervisor                string     `json:"supervisor"`
	Tasks                     []WireTask `json:"tasks"`
	TemplateID                string     `json:"template_id,omitempty"`
	FinalChallenge            string     `json:"final_challenge"`
	FinalChallengeDescription string     `json:"final_challenge_description"`
}

// TemplatePayload is the body of a template create or update request.
type TemplatePayload struct {
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Scope         TemplateScope `json:"scope"`
	Team          string        `json:"team,omitempty"`
	Organization  *int64        `json:"organization,omitempty"`
	TemplateNotes string        `json:"template_notes,omitempty"`
	Tasks         []WireTask    `json:"tasks"`
}

// Submission builds the backend request that hands the draft over. resetIDs names
// the tasks whose review status the backend should reset.
func (d Draft) Submission(key string, resetIDs []string, ts int64) (Submission, error) {
	clearSet := make(map[string]bool, len(resetIDs))
	for _, id := range resetIDs {
		clearSet[id] = true
	}

	var payload any
	var tasks []WireTask
	switch d.Kind {
	case KindTemplate:
		tasks = TasksToWire(d.Tasks, nil, true)
		payload = TemplatePayload{
			Name:          strings.TrimSpace(d.Name),
			Description:   strings.TrimSpace(d.Description),
			Scope:         d.Scope,
			Team:          d.Team,
			Organization:  d.Organization,
			TemplateNotes: strings.TrimSpace(d.TemplateNotes),
			Tasks:         tasks,
		}
	default:
		tasks = TasksToWire(d.Tasks, clearSet, false)
		payload = WorksheetPayload{
			UserID:                    d.UserID,
			Name:                      strings.TrimSpace(d.Name),
			Description:               strings.TrimSpace(d.Description),
			Supervisor:                d.Supervisor,
			Tasks:                     tasks,
			TemplateID:                d.TemplateID,
			FinalChallenge:            strings.TrimSpace(d.FinalChallenge),
			FinalChallengeDescription: strings.TrimSpace(d.FinalChallengeDescription),
		}
	}
	if len(tasks) == 0 {
		return Submission{}, ErrNoContent
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return Submission{}, err
	}
	method, path := d.endpoint()
	return Submission{
		ID:             key,
		IdempotencyKey: key,
		DraftID:        d.ID,
		Kind:           d.Kind,
		Method:         method,
		Path:           path,
		Payload:        body,
		Timestamp:      ts,
	}, nil
}

func (d Draft) endpoint() (method, path string) {
	collection := "/worksheets/"
	if d.Kind == KindTemplate {
		collection = "/templates/"
	}
	if !d.Editing() {
		return "POST", collection
	}
	return "PUT", collection + d.SourceID + "/"
}
