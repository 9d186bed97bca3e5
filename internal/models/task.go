package models

import "time"

// TaskStatus is the board column a task lives in.
//
// The three assignable statuses are set by users. Overdue is flagged by a
// server-side job when a due date passes; the client renders it but never
// assigns or derives it from DueDate.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "Not Started"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
	StatusOverdue    TaskStatus = "Overdue"
)

// AssignableStatuses are the statuses a client may set on a task, in board
// column order.
var AssignableStatuses = []TaskStatus{StatusNotStarted, StatusInProgress, StatusCompleted}

// Assignable reports whether a client is allowed to move a task into s.
func (s TaskStatus) Assignable() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Valid reports whether s is any known status, including Overdue.
func (s TaskStatus) Valid() bool {
	return s.Assignable() || s == StatusOverdue
}

// ParseTaskStatus matches a string against the known statuses. It accepts
// the wire form ("In Progress") as well as a lowercase hyphen/underscore
// form ("in-progress") for CLI convenience.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch normalizeStatus(s) {
	case "not started":
		return StatusNotStarted, true
	case "in progress":
		return StatusInProgress, true
	case "completed":
		return StatusCompleted, true
	case "overdue":
		return StatusOverdue, true
	}
	return "", false
}

func normalizeStatus(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == '-' || r == '_':
			out = append(out, ' ')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// Task represents a task record as served by the QubicBall API.
// Version follows the same optimistic-concurrency contract as Project.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	ProjectID   int64      `json:"project_id"`
	AssigneeID  *int64     `json:"assignee_id,omitempty"`
	Assignee    *User      `json:"assignee,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Board groups tasks into column order for the kanban view: the three
// assignable columns plus a read-only overdue lane.
type Board struct {
	NotStarted []Task
	InProgress []Task
	Completed  []Task
	Overdue    []Task
}

// BuildBoard buckets tasks by status. Tasks with an unknown status are
// treated as not started rather than dropped.
func BuildBoard(tasks []Task) Board {
	var b Board
	for _, t := range tasks {
		switch t.Status {
		case StatusInProgress:
			b.InProgress = append(b.InProgress, t)
		case StatusCompleted:
			b.Completed = append(b.Completed, t)
		case StatusOverdue:
			b.Overdue = append(b.Overdue, t)
		default:
			b.NotStarted = append(b.NotStarted, t)
		}
	}
	return b
}
