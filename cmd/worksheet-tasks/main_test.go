package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"eproba-editor/domain"
)

const sampleFile = `tasks:
  - id: c
    name: Third
    category: general
    order: 2
  - id: a
    name: First
    category: general
    order: 0
  - id: b
    name: Second
    category: general
    order: 1
  - id: x
    name: Own
    category: individual
    order: 0
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	if err := os.WriteFile(path, []byte(sampleFile), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func layout(t *testing.T, data []byte) string {
	t.Helper()
	var f taskFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		t.Fatalf("invalid yaml output: %v\n%s", err, data)
	}
	parts := make([]string, 0, len(f.Tasks))
	for _, task := range domain.Sorted(f.Tasks) {
		parts = append(parts, string(task.Category[0])+":"+task.ID)
	}
	return strings.Join(parts, " ")
}

func TestOrderingCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "reorder", args: []string{"reorder", "c", "a", "--edge", "top"}, want: "g:c g:a g:b i:x"},
		{name: "move append", args: []string{"move", "a", "individual"}, want: "g:b g:c i:x i:a"},
		{name: "move with target", args: []string{"move", "a", "individual", "--target", "x", "--edge", "top"}, want: "g:b g:c i:a i:x"},
		{name: "transfer", args: []string{"transfer", "individual", "general"}, want: "g:a g:b g:c g:x"},
		{name: "step down", args: []string{"step", "down", "a"}, want: "g:b g:a g:c i:x"},
		{name: "step category", args: []string{"step", "category", "b", "--category", "individual"}, want: "g:a g:c i:x i:b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSample(t)
			args := append([]string{tt.args[0], path}, tt.args[1:]...)
			stdout, _, err := execute(t, args...)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			if got := layout(t, []byte(stdout)); got != tt.want {
				t.Fatalf("layout = %s, want %s", got, tt.want)
			}
			data, _ := os.ReadFile(path)
			if string(data) != sampleFile {
				t.Fatal("expected file to stay untouched without --write")
			}
		})
	}
}

func TestWriteFlagPersistsSettledList(t *testing.T) {
	path := writeSample(t)
	if _, _, err := execute(t, "reorder", path, "c", "a", "--edge", "top", "--write"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := layout(t, data); got != "g:c g:a g:b i:x" {
		t.Fatalf("unexpected written layout %s", got)
	}
	tasks, err := loadTasks(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !domain.Contiguous(tasks) {
		t.Fatalf("expected contiguous orders, got %#v", tasks)
	}
}

func TestNoOpReportsNoChange(t *testing.T) {
	path := writeSample(t)
	_, stderr, err := execute(t, "reorder", path, "a", "a")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stderr, "no change") {
		t.Fatalf("expected no change notice, got %q", stderr)
	}
}

func TestReplayDropEvents(t *testing.T) {
	path := writeSample(t)
	events := filepath.Join(t.TempDir(), "events.yaml")
	body := `- source_id: a
  source_category: general
  drop_targets:
    - task_id: x
      category: individual
      edge: top
    - category: individual
- source_id: c
  source_category: general
  drop_targets: []
- source_id: b
  source_category: general
  drop_targets:
    - category: individual
`
	if err := os.WriteFile(events, []byte(body), 0o644); err != nil {
		t.Fatalf("write events: %v", err)
	}

	stdout, _, err := execute(t, "replay", path, events)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := layout(t, []byte(stdout)); got != "g:c i:a i:x i:b" {
		t.Fatalf("unexpected layout %s", got)
	}
}

func TestCheckReportsProblems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	body := `tasks:
  - {id: a, name: A, category: general, order: 0}
  - {id: a, name: B, category: general, order: 3}
  - {id: c, name: C, category: bonus, order: 0}
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stdout, _, err := execute(t, "check", path)
	if !errors.Is(err, errProblemsFound) {
		t.Fatalf("expected problems error, got %v", err)
	}
	for _, want := range []string{"duplicate id a", `unknown category "bonus"`, "general: orders 0,3"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in output:\n%s", want, stdout)
		}
	}

	stdout, _, err = execute(t, "check", writeSample(t))
	if err != nil || !strings.Contains(stdout, "ok: 4 tasks") {
		t.Fatalf("expected clean check, got %v %q", err, stdout)
	}
}

func TestShowAndBadArguments(t *testing.T) {
	path := writeSample(t)
	stdout, _, err := execute(t, "show", path)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(stdout, "general\n   0  a  First") || !strings.Contains(stdout, "individual\n   0  x  Own") {
		t.Fatalf("unexpected show output:\n%s", stdout)
	}

	if _, _, err := execute(t, "move", path, "a", "bonus"); err == nil {
		t.Fatal("expected unknown category error")
	}
	if _, _, err := execute(t, "step", path, "sideways", "a"); err == nil {
		t.Fatal("expected unknown action error")
	}
}
