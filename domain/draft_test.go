package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewDraftSeedsDefaultTasks(t *testing.T) {
	d := NewDraft("d1", "user-1", KindTemplate, 3, testNow)

	if len(InCategory(d.Tasks, CategoryGeneral)) != 3 || len(InCategory(d.Tasks, CategoryIndividual)) != 3 {
		t.Fatalf("expected three blank tasks per category, got %+v", d.Tasks)
	}
	if !d.CategoriesEnabled {
		t.Fatalf("expected categories to be enabled")
	}
	if d.Scope != ScopeTeam {
		t.Fatalf("expected template to default to team scope, got %q", d.Scope)
	}
	if d.Editing() {
		t.Fatalf("new draft should not be in edit mode")
	}
}

func TestDisablingCategoriesTransfersIndividualTasks(t *testing.T) {
	d := Draft{CategoriesEnabled: true, Tasks: dropFixture()}

	d.SetCategoriesEnabled(false)

	expectLayout(t, d.Tasks, []string{"A", "B", "X", "Y"}, nil)
	d.SetCategoriesEnabled(true)
	expectLayout(t, d.Tasks, []string{"A", "B", "X", "Y"}, nil)
}

func TestDraftValidate(t *testing.T) {
	valid := Draft{Name: "Próba", Kind: KindWorksheet, Tasks: dropFixture()}
	tests := []struct {
		name   string
		mutate func(*Draft)
		field  string
	}{
		{"valid", func(*Draft) {}, ""},
		{"missing name", func(d *Draft) { d.Name = "  " }, "name"},
		{"short name", func(d *Draft) { d.Name = "ab" }, "name"},
		{"long name", func(d *Draft) { d.Name = strings.Repeat("n", MaxDraftNameLength+1) }, "name"},
		{"long description", func(d *Draft) { d.Description = strings.Repeat("d", MaxDraftDescriptionLength+1) }, "description"},
		{"template without scope", func(d *Draft) { d.Kind = KindTemplate }, "scope"},
		{"duplicate task", func(d *Draft) { d.Tasks = append(d.Tasks, task("A", CategoryGeneral, 9)) }, "tasks.id"},
		{"too many tasks", func(d *Draft) {
			d.Tasks = DefaultTasks(MaxTasks/2+1, nil)
		}, "tasks"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := valid
			d.Tasks = append([]Task(nil), valid.Tasks...)
			tc.mutate(&d)
			err := d.Validate()
			if tc.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("expected %s error, got %v", tc.field, err)
			}
		})
	}
}

func TestApplyInfo(t *testing.T) {
	d := Draft{Name: "Old", Description: "keep"}
	name := "New"
	org := int64(7)

	d.ApplyInfo(DraftInfo{Name: &name, Organization: &org})

	if d.Name != "New" || d.Description != "keep" {
		t.Fatalf("unexpected draft after update: %+v", d)
	}
	org = 8
	if d.Organization == nil || *d.Organization != 7 {
		t.Fatalf("expected organization to be copied, got %v", d.Organization)
	}
}

func TestModifiedReviewedTasks(t *testing.T) {
	d := Draft{
		SourceID: "ws-1",
		Tasks: []Task{
			{ID: "a", Name: "changed", Category: CategoryGeneral, Order: 0},
			{ID: "b", Name: "same", Category: CategoryGeneral, Order: 1},
			{ID: "c", Name: "edited todo", Category: CategoryGeneral, Order: 2},
			{ID: "d", Name: "new", Category: CategoryGeneral, Order: 3},
		},
		Baseline: []BaselineTask{
			{ID: "a", Name: "original", Status: StatusApproved},
			{ID: "b", Name: "same", Status: StatusRejected},
			{ID: "c", Name: "todo", Status: StatusTodo},
		},
	}

	got := d.ModifiedReviewedTasks()

	if len(got) != 1 || got[0].ID != "a" || got[0].OriginalStatus != StatusApproved {
		t.Fatalf("expected only task a, got %+v", got)
	}
}
