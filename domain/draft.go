package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DraftKind tells worksheet editors from template editors.
type DraftKind string

const (
	KindWorksheet DraftKind = "worksheet"
	KindTemplate  DraftKind = "template"
)

// ParseDraftKind returns the kind named by s.
func ParseDraftKind(s string) (DraftKind, bool) {
	k := DraftKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k == KindWorksheet || k == KindTemplate
}

// TemplateScope is the owner level of a template.
type TemplateScope string

const (
	ScopeTeam         TemplateScope = "team"
	ScopeOrganization TemplateScope = "organization"
)

// TaskStatus mirrors the review state the backend keeps per worksheet task.
type TaskStatus int

const (
	StatusTodo TaskStatus = iota
	StatusAwaitingApproval
	StatusApproved
	StatusRejected
)

const (
	MinDraftNameLength        = 3
	MaxDraftNameLength        = 100
	MaxDraftDescriptionLength = 500
)

// BaselineTask is a task as it was when an existing worksheet was opened.
type BaselineTask struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
}

// ModifiedTask is a reviewed task whose text was edited in the draft.
type ModifiedTask struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	OriginalStatus TaskStatus `json:"originalStatus"`
}

// Draft is the state of one open worksheet or template editor.
type Draft struct {
	ID                        string         `json:"id"`
	OwnerID                   string         `json:"ownerId"`
	Kind                      DraftKind      `json:"kind"`
	SourceID                  string         `json:"sourceId,omitempty"`
	TemplateID                string         `json:"templateId,omitempty"`
	Name                      string         `json:"name"`
	Description               string         `json:"description"`
	Supervisor                string         `json:"supervisor,omitempty"`
	UserID                    string         `json:"userId,omitempty"`
	Scope                     TemplateScope  `json:"scope,omitempty"`
	Team                      string         `json:"team,omitempty"`
	Organization              *int64         `json:"organization,omitempty"`
	TemplateNotes             string         `json:"templateNotes,omitempty"`
	FinalChallenge            string         `json:"finalChallenge,omitempty"`
	FinalChallengeDescription string         `json:"finalChallengeDescription,omitempty"`
	CategoriesEnabled         bool           `json:"categoriesEnabled"`
	Tasks                     []Task         `json:"tasks"`
	Baseline                  []BaselineTask `json:"baseline,omitempty"`
	CreatedAt                 time.Time      `json:"createdAt"`
	UpdatedAt                 time.Time      `json:"updatedAt"`

	// ETag is the storage concurrency token of the loaded copy.
	ETag string `json:"-"`
}

// NewDraft opens an empty editor with perCategory blank tasks per category.
func NewDraft(id, ownerID string, kind DraftKind, perCategory int, now time.Time) Draft {
	d := Draft{
		ID:                id,
		OwnerID:           ownerID,
		Kind:              kind,
		CategoriesEnabled: true,
		Tasks:             DefaultTasks(perCategory, nil),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if kind == KindTemplate {
		d.Scope = ScopeTeam
	}
	return d
}

// Editing reports whether the draft edits an existing worksheet or template.
func (d Draft) Editing() bool {
	return d.SourceID != ""
}

// SetCategoriesEnabled switches the category split. Turning it off folds the
// individual tasks into general.
func (d *Draft) SetCategoriesEnabled(enabled bool) {
	if !enabled && d.CategoriesEnabled {
		d.Tasks = TransferAll(d.Tasks, CategoryIndividual, CategoryGeneral)
	}
	d.CategoriesEnabled = enabled
}

// DraftInfo carries basic-info edits; nil fields are left alone.
type DraftInfo struct {
	Name                      *string        `json:"name,omitempty"`
	Description               *string        `json:"description,omitempty"`
	Supervisor                *string        `json:"supervisor,omitempty"`
	UserID                    *string        `json:"userId,omitempty"`
	Scope                     *TemplateScope `json:"scope,omitempty"`
	Team                      *string        `json:"team,omitempty"`
	Organization              *int64         `json:"organization,omitempty"`
	TemplateNotes             *string        `json:"templateNotes,omitempty"`
	FinalChallenge            *string        `json:"finalChallenge,omitempty"`
	FinalChallengeDescription *string        `json:"finalChallengeDescription,omitempty"`
}

// ApplyInfo copies the non-nil fields of info into d.
func (d *Draft) ApplyInfo(info DraftInfo) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&d.Name, info.Name)
	set(&d.Description, info.Description)
	set(&d.Supervisor, info.Supervisor)
	set(&d.UserID, info.UserID)
	set(&d.Team, info.Team)
	set(&d.TemplateNotes, info.TemplateNotes)
	set(&d.FinalChallenge, info.FinalChallenge)
	set(&d.FinalChallengeDescription, info.FinalChallengeDescription)
	if info.Scope != nil {
		d.Scope = *info.Scope
	}
	if info.Organization != nil {
		org := *info.Organization
		d.Organization = &org
	}
}

// Validate checks the draft the way the editor form does before submitting.
func (d Draft) Validate() error {
	name := strings.TrimSpace(d.Name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return ValidationError{Field: "name", Message: "name is required"}
	case n < MinDraftNameLength:
		return ValidationError{Field: "name", Message: fmt.Sprintf("name must have at least %d characters", MinDraftNameLength)}
	}
	return d.ValidateLimits()
}

// ValidateLimits checks only the upper bounds, so a half-filled form passes.
func (d Draft) ValidateLimits() error {
	if utf8.RuneCountInString(strings.TrimSpace(d.Name)) > MaxDraftNameLength {
		return ValidationError{Field: "name", Message: fmt.Sprintf("name exceeds %d characters", MaxDraftNameLength)}
	}
	if utf8.RuneCountInString(d.Description) > MaxDraftDescriptionLength {
		return ValidationError{Field: "description", Message: fmt.Sprintf("description exceeds %d characters", MaxDraftDescriptionLength)}
	}
	if utf8.RuneCountInString(d.TemplateNotes) > MaxTemplateNotesLength {
		return ValidationError{Field: "templateNotes", Message: fmt.Sprintf("template notes exceed %d characters", MaxTemplateNotesLength)}
	}
	if d.Kind == KindTemplate && d.Scope != ScopeTeam && d.Scope != ScopeOrganization {
		return ValidationError{Field: "scope", Message: "template must belong to a team or an organization"}
	}
	return ValidateTasks(d.Tasks)
}

// ValidateTasks checks the task count, id uniqueness and every task.
func ValidateTasks(tasks []Task) error {
	if len(tasks) > MaxTasks {
		return ValidationError{Field: "tasks", Message: fmt.Sprintf("at most %d tasks", MaxTasks)}
	}
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return err
		}
		if seen[t.ID] {
			return ValidationError{Field: "tasks.id", Message: fmt.Sprintf("duplicate task id %s", t.ID)}
		}
		seen[t.ID] = true
	}
	return nil
}

// ModifiedReviewedTasks lists tasks whose name or description changed since the
// draft was opened while the backend already holds a non-TODO status for them.
func (d Draft) ModifiedReviewedTasks() []ModifiedTask {
	if len(d.Baseline) == 0 {
		return nil
	}
	base := make(map[string]BaselineTask, len(d.Baseline))
	for _, b := range d.Baseline {
		base[b.ID] = b
	}
	var out []ModifiedTask
	for _, t := range Sorted(d.Tasks) {
		b, ok := base[t.ID]
		if !ok || b.Status == StatusTodo {
			continue
		}
		if t.Name != b.Name || t.Description != b.Description {
			out = append(out, ModifiedTask{ID: t.ID, Name: t.Name, OriginalStatus: b.Status})
		}
	}
	return out
}
