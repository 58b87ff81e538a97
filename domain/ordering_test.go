package domain

import (
	"math/rand"
	"testing"
)

func task(id string, c Category, order int) Task {
	return Task{ID: id, Name: id, Category: c, Order: order}
}

// layout renders tasks as category -> ids in order for easy comparison.
func layout(tasks []Task) map[Category][]string {
	out := make(map[Category][]string)
	for _, c := range Categories {
		for _, t := range InCategory(tasks, c) {
			out[c] = append(out[c], t.ID)
		}
	}
	return out
}

func expectLayout(t *testing.T, tasks []Task, general, individual []string) {
	t.Helper()
	got := layout(tasks)
	if !sameIDs(got[CategoryGeneral], general) || !sameIDs(got[CategoryIndividual], individual) {
		t.Fatalf("expected general=%v individual=%v, got general=%v individual=%v",
			general, individual, got[CategoryGeneral], got[CategoryIndividual])
	}
	if !Contiguous(tasks) {
		t.Fatalf("orders are not contiguous: %+v", tasks)
	}
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReorderToTop(t *testing.T) {
	tasks := []Task{task("A", CategoryGeneral, 0), task("B", CategoryGeneral, 1), task("C", CategoryGeneral, 2)}

	got := Reorder(tasks, "C", "A", EdgeTop)

	expectLayout(t, got, []string{"C", "A", "B"}, nil)
	for i, id := range []string{"C", "A", "B"} {
		if got[i].ID != id || got[i].Order != i {
			t.Fatalf("expected %s at order %d, got %+v", id, i, got[i])
		}
	}
}

func TestReorderEdges(t *testing.T) {
	base := []Task{task("A", CategoryGeneral, 0), task("B", CategoryGeneral, 1), task("C", CategoryGeneral, 2), task("D", CategoryGeneral, 3)}
	tests := []struct {
		name   string
		source string
		target string
		edge   Edge
		want   []string
	}{
		{"down after", "A", "C", EdgeBottom, []string{"B", "C", "A", "D"}},
		{"down before", "A", "C", EdgeTop, []string{"B", "A", "C", "D"}},
		{"up before", "D", "B", EdgeTop, []string{"A", "D", "B", "C"}},
		{"up after", "D", "B", EdgeBottom, []string{"A", "B", "D", "C"}},
		{"missing edge inserts after", "A", "B", EdgeNone, []string{"B", "A", "C", "D"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expectLayout(t, Reorder(base, tc.source, tc.target, tc.edge), tc.want, nil)
		})
	}
}

func TestReorderNoOps(t *testing.T) {
	tasks := []Task{task("A", CategoryGeneral, 0), task("B", CategoryGeneral, 1)}
	for name, got := range map[string][]Task{
		"self":           Reorder(tasks, "A", "A", EdgeTop),
		"unknown source": Reorder(tasks, "Z", "A", EdgeTop),
		"unknown target": Reorder(tasks, "A", "Z", EdgeTop),
	} {
		if !Equal(got, tasks) {
			t.Fatalf("%s: expected unchanged list, got %+v", name, got)
		}
	}
}

func TestReorderAcrossCategoriesAdoptsTargetCategory(t *testing.T) {
	tasks := []Task{task("A", CategoryGeneral, 0), task("B", CategoryGeneral, 1), task("X", CategoryIndividual, 0)}

	got := Reorder(tasks, "A", "X", EdgeTop)

	expectLayout(t, got, []string{"B"}, []string{"A", "X"})
}

func TestMoveBetweenCategoriesNextToTarget(t *testing.T) {
	tasks := []Task{task("A", CategoryGeneral, 0), task("X", CategoryIndividual, 0), task("Y", CategoryIndividual, 1)}

	got := MoveBetweenCategories(tasks, "A", CategoryIndividual, "X", EdgeBottom)

	expectLayout(t, got, nil, []string{"X", "A", "Y"})
}

func TestMoveBetweenCategoriesAppends(t *testing.T) {
	tasks := []Task{task("A", CategoryGeneral, 0), task("B", CategoryGeneral, 1), task("X", CategoryIndividual, 0)}

	tests := []struct {
		name   string
		target string
	}{
		{"no target", ""},
		{"unknown target", "Z"},
		{"target outside destination", "B"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MoveBetweenCategories(tasks, "A", CategoryIndividual, tc.target, EdgeTop)
			expectLayout(t, got, []string{"B"}, []string{"X", "A"})
		})
	}
}

func TestMoveBetweenCategoriesIntoEmptyCategory(t *testing.T) {
	tasks := []Task{task("A", CategoryGeneral, 0), task("B", CategoryGeneral, 1)}

	got := MoveBetweenCategories(tasks, "B", CategoryIndividual, "", EdgeNone)

	expectLayout(t, got, []string{"A"}, []string{"B"})
}

func TestMoveBetweenCategoriesRejectsUnknowns(t *testing.T) {
	tasks := []Task{task("A", CategoryGeneral, 0)}
	if got := MoveBetweenCategories(tasks, "Z", CategoryIndividual, "", EdgeNone); !Equal(got, tasks) {
		t.Fatalf("unknown source should be a no-op, got %+v", got)
	}
	if got := MoveBetweenCategories(tasks, "A", "misc", "", EdgeNone); !Equal(got, tasks) {
		t.Fatalf("unknown category should be a no-op, got %+v", got)
	}
}

func TestTransferAll(t *testing.T) {
	tasks := []Task{
		task("A", CategoryGeneral, 0),
		task("X", CategoryIndividual, 0),
		task("B", CategoryGeneral, 1),
		task("Y", CategoryIndividual, 1),
	}

	got := TransferAll(tasks, CategoryIndividual, CategoryGeneral)

	expectLayout(t, got, []string{"A", "B", "X", "Y"}, nil)
}

func TestTransferAllNoOps(t *testing.T) {
	tasks := []Task{task("A", CategoryGeneral, 0)}
	if got := TransferAll(tasks, CategoryIndividual, CategoryGeneral); !Equal(got, tasks) {
		t.Fatalf("empty source should be a no-op, got %+v", got)
	}
	if got := TransferAll(tasks, CategoryGeneral, CategoryGeneral); !Equal(got, tasks) {
		t.Fatalf("same category should be a no-op, got %+v", got)
	}
}

func TestSortedSettlesUnorderedInput(t *testing.T) {
	tasks := []Task{task("Y", CategoryIndividual, 5), task("B", CategoryGeneral, 7), task("A", CategoryGeneral, 2)}

	got := settle(Sorted(tasks))

	expectLayout(t, got, []string{"A", "B"}, []string{"Y"})
}

func randomTasks(r *rand.Rand, n int) []Task {
	var tasks []Task
	next := map[Category]int{}
	for i := 0; i < n; i++ {
		c := Categories[r.Intn(len(Categories))]
		tasks = append(tasks, task(string(rune('a'+i)), c, next[c]))
		next[c]++
	}
	r.Shuffle(len(tasks), func(i, j int) { tasks[i], tasks[j] = tasks[j], tasks[i] })
	return tasks
}

func TestOperationsPreserveTasksAndContiguity(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	edges := []Edge{EdgeTop, EdgeBottom, EdgeNone}
	for i := 0; i < 500; i++ {
		tasks := randomTasks(r, 1+r.Intn(8))
		src := tasks[r.Intn(len(tasks))].ID
		dst := tasks[r.Intn(len(tasks))].ID
		edge := edges[r.Intn(len(edges))]
		cat := Categories[r.Intn(len(Categories))]

		results := map[string][]Task{
			"reorder":  Reorder(tasks, src, dst, edge),
			"move":     MoveBetweenCategories(tasks, src, cat, dst, edge),
			"transfer": TransferAll(tasks, cat, Categories[r.Intn(len(Categories))]),
		}
		for name, got := range results {
			if len(got) != len(tasks) {
				t.Fatalf("%s changed task count: %d -> %d", name, len(tasks), len(got))
			}
			if !Contiguous(got) {
				t.Fatalf("%s broke contiguity: %+v", name, got)
			}
			ids := map[string]bool{}
			for _, tk := range got {
				ids[tk.ID] = true
			}
			for _, tk := range tasks {
				if !ids[tk.ID] {
					t.Fatalf("%s lost task %s", name, tk.ID)
				}
			}
		}
	}
}

func TestReorderRoundTrip(t *testing.T) {
	tasks := []Task{task("A", CategoryGeneral, 0), task("B", CategoryGeneral, 1), task("C", CategoryGeneral, 2)}

	moved := Reorder(tasks, "A", "B", EdgeBottom)
	back := Reorder(moved, "A", "B", EdgeTop)

	if !Equal(back, tasks) {
		t.Fatalf("expected round trip to restore the list, got %+v", back)
	}
}

func TestOperationsDoNotMutateInput(t *testing.T) {
	tasks := []Task{task("A", CategoryGeneral, 0), task("B", CategoryGeneral, 1), task("X", CategoryIndividual, 0)}
	snapshot := append([]Task(nil), tasks...)

	Reorder(tasks, "B", "A", EdgeTop)
	MoveBetweenCategories(tasks, "A", CategoryIndividual, "X", EdgeTop)
	TransferAll(tasks, CategoryIndividual, CategoryGeneral)

	for i := range tasks {
		if tasks[i] != snapshot[i] {
			t.Fatalf("input mutated at %d: %+v", i, tasks[i])
		}
	}
}
