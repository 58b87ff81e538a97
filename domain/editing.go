package domain

import "github.com/google/uuid"

// NewTaskID returns a fresh task identifier.
func NewTaskID() string {
	return uuid.NewString()
}

// DefaultTasks builds perCategory blank tasks in every category.
func DefaultTasks(perCategory int, newID func() string) []Task {
	if newID == nil {
		newID = NewTaskID
	}
	tasks := make([]Task, 0, perCategory*len(Categories))
	for _, c := range Categories {
		for i := 0; i < perCategory; i++ {
			tasks = append(tasks, Task{ID: newID(), Category: c, Order: i})
		}
	}
	return tasks
}

// AddTask appends a blank task with the given id to the end of c.
func AddTask(tasks []Task, c Category, id string) []Task {
	if !c.Valid() || id == "" || indexOf(tasks, id) >= 0 {
		return tasks
	}
	seq := append(Sorted(tasks), Task{ID: id, Category: c})
	return settle(seq)
}

// RemoveTask drops the task and closes the gap it leaves.
func RemoveTask(tasks []Task, id string) []Task {
	i := indexOf(tasks, id)
	if i < 0 {
		return tasks
	}
	_, rest := take(Sorted(tasks), id)
	return settle(rest)
}

// TaskUpdate carries the text fields to change; nil fields are left alone.
type TaskUpdate struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	TemplateNotes *string `json:"templateNotes,omitempty"`
}

// Empty reports whether u changes nothing.
func (u TaskUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.TemplateNotes == nil
}

// UpdateTask applies u to the task with id.
func UpdateTask(tasks []Task, id string, u TaskUpdate) []Task {
	i := indexOf(tasks, id)
	if i < 0 || u.Empty() {
		return tasks
	}
	out := append([]Task(nil), tasks...)
	if u.Name != nil {
		out[i].Name = *u.Name
	}
	if u.Description != nil {
		out[i].Description = *u.Description
	}
	if u.TemplateNotes != nil {
		out[i].TemplateNotes = *u.TemplateNotes
	}
	return out
}
