package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"eproba-editor/domain"
)

// taskFile is the on-disk layout of a worksheet task list.
type taskFile struct {
	Tasks []domain.Task `yaml:"tasks"`
}

func loadTasks(path string) ([]domain.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f taskFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f.Tasks, nil
}

func encodeTasks(tasks []domain.Task) ([]byte, error) {
	return yaml.Marshal(taskFile{Tasks: domain.Sorted(tasks)})
}

func saveTasks(path string, tasks []domain.Task) error {
	data, err := encodeTasks(tasks)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadDropEvents(path string) ([]domain.DropEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var events []domain.DropEvent
	if err := yaml.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return events, nil
}

// problems lists everything that keeps tasks from being a settled list.
func problems(tasks []domain.Task) []string {
	var out []string
	seen := make(map[string]bool, len(tasks))
	orders := make(map[domain.Category][]int)
	for _, t := range tasks {
		switch {
		case t.ID == "":
			out = append(out, "task without id")
		case seen[t.ID]:
			out = append(out, fmt.Sprintf("duplicate id %s", t.ID))
		}
		seen[t.ID] = true
		if !t.Category.Valid() {
			out = append(out, fmt.Sprintf("%s: unknown category %q", t.ID, t.Category))
			continue
		}
		orders[t.Category] = append(orders[t.Category], t.Order)
	}
	for _, c := range domain.Categories {
		got := orders[c]
		sort.Ints(got)
		for i, o := range got {
			if o != i {
				out = append(out, fmt.Sprintf("%s: orders %s are not 0..%d", c, joinInts(got), len(got)-1))
				break
			}
		}
	}
	return out
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ",")
}
