package model

// Status is the workflow stage a task occupies.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// stages lists the workflow in order. Index 0 is the entry stage.
var stages = []Status{StatusTodo, StatusInProgress, StatusReview, StatusDone}

// adjacency defines the only legal moves: one step forward or back.
//
//	todo <-> in_progress <-> review <-> done
var adjacency = map[Status]struct{ next, prev Status }{
	StatusTodo:       {next: StatusInProgress},
	StatusInProgress: {next: StatusReview, prev: StatusTodo},
	StatusReview:     {next: StatusDone, prev: StatusInProgress},
	StatusDone:       {prev: StatusReview},
}

// AllStatuses returns the stages in workflow order.
func AllStatuses() []Status {
	out := make([]Status, len(stages))
	copy(out, stages)
	return out
}

// Next returns the following stage, or false when s is the last stage.
func (s Status) Next() (Status, bool) {
	adj, ok := adjacency[s]
	if !ok || adj.next == "" {
		return s, false
	}
	return adj.next, true
}

// Prev returns the preceding stage, or false when s is the first stage.
func (s Status) Prev() (Status, bool) {
	adj, ok := adjacency[s]
	if !ok || adj.prev == "" {
		return s, false
	}
	return adj.prev, true
}

// Index returns the position of s in the workflow, or -1 if unknown.
func (s Status) Index() int {
	for i, st := range stages {
		if st == s {
			return i
		}
	}
	return -1
}

// IsValid reports whether s is one of the four stages.
func (s Status) IsValid() bool {
	_, ok := adjacency[s]
	return ok
}

// Display returns a human-readable stage name.
func (s Status) Display() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusReview:
		return "Review"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}
