package domain

// StepAction names a button-driven move used where drag and drop is unavailable.
type StepAction string

const (
	StepUp       StepAction = "up"
	StepDown     StepAction = "down"
	StepCategory StepAction = "category"
)

// Step is one explicit move request.
type Step struct {
	Action   StepAction `json:"action" yaml:"action"`
	TaskID   string     `json:"taskId" yaml:"task_id"`
	Category Category   `json:"category,omitempty" yaml:"category,omitempty"`
}

// ApplyStep dispatches s to MoveUp, MoveDown or MoveToCategory. Unknown actions
// leave tasks unchanged.
func ApplyStep(tasks []Task, s Step) []Task {
	switch s.Action {
	case StepUp:
		return MoveUp(tasks, s.TaskID)
	case StepDown:
		return MoveDown(tasks, s.TaskID)
	case StepCategory:
		return MoveToCategory(tasks, s.TaskID, s.Category)
	default:
		return tasks
	}
}

// MoveUp swaps the task with its predecessor in the same category.
func MoveUp(tasks []Task, id string) []Task {
	siblings, i := siblingsOf(tasks, id)
	if i <= 0 {
		return tasks
	}
	return Reorder(tasks, id, siblings[i-1].ID, EdgeTop)
}

// MoveDown swaps the task with its successor in the same category.
func MoveDown(tasks []Task, id string) []Task {
	siblings, i := siblingsOf(tasks, id)
	if i < 0 || i >= len(siblings)-1 {
		return tasks
	}
	return Reorder(tasks, id, siblings[i+1].ID, EdgeBottom)
}

// MoveToCategory appends the task to the end of dest. An empty dest simply
// receives the task.
func MoveToCategory(tasks []Task, id string, dest Category) []Task {
	existing := InCategory(tasks, dest)
	if len(existing) > 0 {
		return MoveBetweenCategories(tasks, id, dest, existing[len(existing)-1].ID, EdgeBottom)
	}
	return MoveBetweenCategories(tasks, id, dest, "", EdgeNone)
}

// siblingsOf returns the ordered tasks sharing id's category and id's index
// among them, or -1 when id is unknown.
func siblingsOf(tasks []Task, id string) ([]Task, int) {
	i := indexOf(tasks, id)
	if i < 0 {
		return nil, -1
	}
	siblings := InCategory(tasks, tasks[i].Category)
	return siblings, indexOf(siblings, id)
}
