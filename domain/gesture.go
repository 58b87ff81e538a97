package domain

import "sync"

// DropTarget is a drop zone under the pointer when a drag completes. TaskID is
// empty for a category's empty area or its end-of-list zone.
type DropTarget struct {
	TaskID   string   `json:"taskId,omitempty" yaml:"task_id,omitempty"`
	Category Category `json:"category" yaml:"category"`
	Edge     Edge     `json:"edge,omitempty" yaml:"edge,omitempty"`
}

// DropEvent reports a completed drag. DropTargets is innermost first.
type DropEvent struct {
	SourceID       string       `json:"sourceId" yaml:"source_id"`
	SourceCategory Category     `json:"sourceCategory" yaml:"source_category"`
	DropTargets    []DropTarget `json:"dropTargets" yaml:"drop_targets"`
}

// Destination returns the innermost drop target, if any.
func (ev DropEvent) Destination() (DropTarget, bool) {
	if len(ev.DropTargets) == 0 {
		return DropTarget{}, false
	}
	return ev.DropTargets[0], true
}

// ApplyDrop turns a completed drag into a Reorder or MoveBetweenCategories call.
func ApplyDrop(tasks []Task, ev DropEvent) []Task {
	dest, ok := ev.Destination()
	if !ok {
		return tasks
	}
	if ev.SourceCategory == dest.Category {
		if dest.TaskID == "" {
			return tasks
		}
		return Reorder(tasks, ev.SourceID, dest.TaskID, dest.Edge)
	}
	if dest.TaskID == "" {
		return MoveBetweenCategories(tasks, ev.SourceID, dest.Category, "", EdgeNone)
	}
	return MoveBetweenCategories(tasks, ev.SourceID, dest.Category, dest.TaskID, dest.Edge)
}

// DragMonitor delivers drop events to its current subscribers.
type DragMonitor struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]func(DropEvent)
}

func NewDragMonitor() *DragMonitor {
	return &DragMonitor{subs: make(map[uint64]func(DropEvent))}
}

// Subscribe registers fn and returns the function that removes it. Calling the
// returned function more than once is harmless.
func (m *DragMonitor) Subscribe(fn func(DropEvent)) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Publish hands ev to every subscriber registered at the time of the call.
func (m *DragMonitor) Publish(ev DropEvent) {
	m.mu.Lock()
	handlers := make([]func(DropEvent), 0, len(m.subs))
	for _, fn := range m.subs {
		handlers = append(handlers, fn)
	}
	m.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Subscribers returns the number of registered handlers.
func (m *DragMonitor) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
