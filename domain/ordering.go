package domain

import "sort"

// Sorted returns a copy of tasks ordered by category, then by order. Ties keep
// their relative position.
func Sorted(tasks []Task) []Task {
	out := append([]Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Category.rank(), out[j].Category.rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].Order < out[j].Order
	})
	return out
}

// Renumber returns a copy of tasks where each task's order is its position among
// the tasks of the same category, in slice sequence.
func Renumber(tasks []Task) []Task {
	out := append([]Task(nil), tasks...)
	next := make(map[Category]int, len(Categories))
	for i := range out {
		out[i].Order = next[out[i].Category]
		next[out[i].Category]++
	}
	return out
}

// settle renumbers seq and returns it in canonical sequence.
func settle(seq []Task) []Task {
	return Sorted(Renumber(seq))
}

// InCategory returns the tasks of c in order.
func InCategory(tasks []Task, c Category) []Task {
	var out []Task
	for _, t := range Sorted(tasks) {
		if t.Category == c {
			out = append(out, t)
		}
	}
	return out
}

// Contiguous reports whether every category's orders are exactly 0..N-1.
func Contiguous(tasks []Task) bool {
	seen := make(map[Category]map[int]bool)
	for _, t := range tasks {
		if seen[t.Category] == nil {
			seen[t.Category] = make(map[int]bool)
		}
		if seen[t.Category][t.Order] {
			return false
		}
		seen[t.Category][t.Order] = true
	}
	for _, orders := range seen {
		for i := 0; i < len(orders); i++ {
			if !orders[i] {
				return false
			}
		}
	}
	return true
}

// Equal compares two lists by id, category and order, ignoring sequence.
func Equal(a, b []Task) bool {
	if len(a) != len(b) {
		return false
	}
	type placement struct {
		category Category
		order    int
	}
	want := make(map[string]placement, len(a))
	for _, t := range a {
		want[t.ID] = placement{t.Category, t.Order}
	}
	for _, t := range b {
		p, ok := want[t.ID]
		if !ok || p != (placement{t.Category, t.Order}) {
			return false
		}
	}
	return true
}

// Reorder moves sourceID next to targetID: before it for EdgeTop, after it
// otherwise. The moved task takes the target's category. Unknown ids or a
// self-targeted move return tasks unchanged.
func Reorder(tasks []Task, sourceID, targetID string, edge Edge) []Task {
	if sourceID == targetID || indexOf(tasks, sourceID) < 0 || indexOf(tasks, targetID) < 0 {
		return tasks
	}
	seq := Sorted(tasks)
	moved, rest := take(seq, sourceID)
	ti := indexOf(rest, targetID)
	moved.Category = rest[ti].Category
	pos := ti + 1
	if edge == EdgeTop {
		pos = ti
	}
	return settle(insertAt(rest, pos, moved))
}

// MoveBetweenCategories reassigns sourceID to dest. When targetID names a task
// already in dest the task is placed next to it using the Reorder edge rules,
// otherwise it is appended to the end of dest.
func MoveBetweenCategories(tasks []Task, sourceID string, dest Category, targetID string, edge Edge) []Task {
	if !dest.Valid() || indexOf(tasks, sourceID) < 0 {
		return tasks
	}
	seq := Sorted(tasks)
	moved, rest := take(seq, sourceID)
	moved.Category = dest

	ti := -1
	if targetID != "" && targetID != sourceID {
		ti = indexOf(rest, targetID)
		if ti >= 0 && rest[ti].Category != dest {
			ti = -1
		}
	}
	if ti < 0 {
		return settle(append(rest, moved))
	}
	pos := ti + 1
	if edge == EdgeTop {
		pos = ti
	}
	return settle(insertAt(rest, pos, moved))
}

// TransferAll moves every task of source into dest, after the tasks dest
// already holds and in their previous relative order.
func TransferAll(tasks []Task, source, dest Category) []Task {
	if source == dest || !dest.Valid() {
		return tasks
	}
	seq := Sorted(tasks)
	kept := make([]Task, 0, len(seq))
	var movers []Task
	for _, t := range seq {
		if t.Category == source {
			t.Category = dest
			movers = append(movers, t)
			continue
		}
		kept = append(kept, t)
	}
	if len(movers) == 0 {
		return tasks
	}
	return settle(append(kept, movers...))
}

func indexOf(tasks []Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// take splits seq into the task with id and a new slice holding the rest.
func take(seq []Task, id string) (Task, []Task) {
	i := indexOf(seq, id)
	rest := make([]Task, 0, len(seq)-1)
	rest = append(rest, seq[:i]...)
	rest = append(rest, seq[i+1:]...)
	return seq[i], rest
}

func insertAt(tasks []Task, pos int, t Task) []Task {
	if pos < 0 {
		pos = 0
	}
	if pos > len(tasks) {
		pos = len(tasks)
	}
	out := make([]Task, 0, len(tasks)+1)
	out = append(out, tasks[:pos]...)
	out = append(out, t)
	return append(out, tasks[pos:]...)
}
