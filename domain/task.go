package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Category groups tasks inside a worksheet or template.
type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryIndividual Category = "individual"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryGeneral, CategoryIndividual}

// ParseCategory returns the category named by s.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryGeneral || c == CategoryIndividual
}

func (c Category) rank() int {
	switch c {
	case CategoryGeneral:
		return 0
	case CategoryIndividual:
		return 1
	default:
		return 2
	}
}

// Edge selects the side of a reference task a moved task is inserted on.
type Edge string

const (
	EdgeNone   Edge = ""
	EdgeTop    Edge = "top"
	EdgeBottom Edge = "bottom"
)

// ParseEdge maps unknown markers to EdgeNone, which inserts after the reference.
func ParseEdge(s string) Edge {
	switch Edge(strings.ToLower(strings.TrimSpace(s))) {
	case EdgeTop:
		return EdgeTop
	case EdgeBottom:
		return EdgeBottom
	default:
		return EdgeNone
	}
}

const (
	MaxTaskNameLength        = 200
	MaxTaskDescriptionLength = 2000
	MaxTemplateNotesLength   = 1000
	MaxTasks                 = 100
)

// Task is one requirement inside a worksheet or template.
type Task struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Description   string   `json:"description" yaml:"description,omitempty"`
	Category      Category `json:"category" yaml:"category"`
	Order         int      `json:"order" yaml:"order"`
	TemplateNotes string   `json:"templateNotes,omitempty" yaml:"template_notes,omitempty"`
}

// HasContent reports whether the task would survive submission filtering.
func (t Task) HasContent() bool {
	return strings.TrimSpace(t.Name) != "" ||
		strings.TrimSpace(t.Description) != "" ||
		strings.TrimSpace(t.TemplateNotes) != ""
}

// Validate checks the category and the length limits of the text fields.
func (t Task) Validate() error {
	if t.ID == "" {
		return ValidationError{Field: "tasks.id", Message: "task id is required"}
	}
	if !t.Category.Valid() {
		return ValidationError{Field: "tasks.category", Message: fmt.Sprintf("unknown category %q", t.Category)}
	}
	if utf8.RuneCountInString(t.Name) > MaxTaskNameLength {
		return ValidationError{Field: "tasks.name", Message: fmt.Sprintf("task name exceeds %d characters", MaxTaskNameLength)}
	}
	if utf8.RuneCountInString(t.Description) > MaxTaskDescriptionLength {
		return ValidationError{Field: "tasks.description", Message: fmt.Sprintf("task description exceeds %d characters", MaxTaskDescriptionLength)}
	}
	if utf8.RuneCountInString(t.TemplateNotes) > MaxTemplateNotesLength {
		return ValidationError{Field: "tasks.templateNotes", Message: fmt.Sprintf("template notes exceed %d characters", MaxTemplateNotesLength)}
	}
	return nil
}

// ValidationError describes a form field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
