package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

func TestTaskMarshalIncludesZeroOrder(t *testing.T) {
	task := Task{ID: "t1", Name: "Title", Category: CategoryGeneral, Order: 0}

	payload, err := sonic.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}

	if !strings.Contains(string(payload), "\"order\":0") {
		t.Fatalf("expected order field to be present, got %s", payload)
	}
}

func TestParseCategory(t *testing.T) {
	if c, ok := ParseCategory(" Individual "); !ok || c != CategoryIndividual {
		t.Fatalf("expected individual, got %q %v", c, ok)
	}
	if _, ok := ParseCategory("normal"); ok {
		t.Fatalf("expected unknown category to be rejected")
	}
}

func TestParseEdgeDefaultsToNone(t *testing.T) {
	tests := map[string]Edge{"top": EdgeTop, "BOTTOM": EdgeBottom, "left": EdgeNone, "": EdgeNone}
	for in, want := range tests {
		if got := ParseEdge(in); got != want {
			t.Fatalf("ParseEdge(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name  string
		task  Task
		field string
	}{
		{"valid", Task{ID: "a", Category: CategoryGeneral}, ""},
		{"missing id", Task{Category: CategoryGeneral}, "tasks.id"},
		{"bad category", Task{ID: "a", Category: "misc"}, "tasks.category"},
		{"long name", Task{ID: "a", Category: CategoryGeneral, Name: strings.Repeat("ż", MaxTaskNameLength+1)}, "tasks.name"},
		{"long description", Task{ID: "a", Category: CategoryGeneral, Description: strings.Repeat("x", MaxTaskDescriptionLength+1)}, "tasks.description"},
		{"long notes", Task{ID: "a", Category: CategoryGeneral, TemplateNotes: strings.Repeat("x", MaxTemplateNotesLength+1)}, "tasks.templateNotes"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.task.Validate()
			if tc.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("expected %s validation error, got %v", tc.field, err)
			}
		})
	}
}

func TestHasContent(t *testing.T) {
	if (Task{Name: "  "}).HasContent() {
		t.Fatalf("blank task should have no content")
	}
	if !(Task{TemplateNotes: "hint"}).HasContent() {
		t.Fatalf("notes count as content")
	}
}
