package domain

import "testing"

func TestTaskStoreApplyReportsChange(t *testing.T) {
	s := NewTaskStore(dropFixture())

	if s.Apply(func(tasks []Task) []Task { return Reorder(tasks, "A", "A", EdgeTop) }) {
		t.Fatalf("self reorder should not report a change")
	}
	if !s.Apply(func(tasks []Task) []Task { return Reorder(tasks, "B", "A", EdgeTop) }) {
		t.Fatalf("expected reorder to report a change")
	}
	expectLayout(t, s.Tasks(), []string{"B", "A"}, []string{"X", "Y"})
}

func TestTaskStoreTasksReturnsCopy(t *testing.T) {
	s := NewTaskStore(dropFixture())
	tasks := s.Tasks()
	tasks[0].Name = "changed"

	if s.Tasks()[0].Name == "changed" {
		t.Fatalf("store exposed its internal slice")
	}
}

func TestTaskStoreWatchDrops(t *testing.T) {
	s := NewTaskStore(dropFixture())
	m := NewDragMonitor()
	release := s.WatchDrops(m)

	m.Publish(DropEvent{SourceID: "A", SourceCategory: CategoryGeneral, DropTargets: []DropTarget{
		{TaskID: "Y", Category: CategoryIndividual, Edge: EdgeTop},
	}})
	expectLayout(t, s.Tasks(), []string{"B"}, []string{"X", "A", "Y"})

	release()
	m.Publish(DropEvent{SourceID: "B", SourceCategory: CategoryGeneral, DropTargets: []DropTarget{
		{Category: CategoryIndividual},
	}})
	expectLayout(t, s.Tasks(), []string{"B"}, []string{"X", "A", "Y"})
}
