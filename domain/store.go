package domain

import "sync"

// TaskStore holds the task list of one open editor. Every write replaces the
// whole list.
type TaskStore struct {
	mu    sync.Mutex
	tasks []Task
}

func NewTaskStore(tasks []Task) *TaskStore {
	return &TaskStore{tasks: Sorted(tasks)}
}

// Tasks returns a copy of the current list.
func (s *TaskStore) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Task(nil), s.tasks...)
}

// Replace swaps in a new list.
func (s *TaskStore) Replace(tasks []Task) {
	s.mu.Lock()
	s.tasks = append([]Task(nil), tasks...)
	s.mu.Unlock()
}

// Apply runs op against the current list and stores its result. It reports
// whether any task moved or changed category.
func (s *TaskStore) Apply(op func([]Task) []Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := op(append([]Task(nil), s.tasks...))
	changed := !Equal(s.tasks, next)
	s.tasks = next
	return changed
}

// WatchDrops applies every drop published on m until the returned release
// function is called.
func (s *TaskStore) WatchDrops(m *DragMonitor) (release func()) {
	return m.Subscribe(func(ev DropEvent) {
		s.Apply(func(tasks []Task) []Task { return ApplyDrop(tasks, ev) })
	})
}
