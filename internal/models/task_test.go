package models

import "testing"

func TestParseTaskStatus(t *testing.T) {
	tests := []struct {
		input  string
		want   TaskStatus
		wantOK bool
	}{
		{"Not Started", StatusNotStarted, true},
		{"not-started", StatusNotStarted, true},
		{"in_progress", StatusInProgress, true},
		{"In Progress", StatusInProgress, true},
		{"COMPLETED", StatusCompleted, true},
		{"overdue", StatusOverdue, true},
		{"done", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseTaskStatus(tt.input)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseTaskStatus(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestStatusAssignable(t *testing.T) {
	if StatusOverdue.Assignable() {
		t.Error("overdue must not be assignable by the client")
	}
	for _, s := range AssignableStatuses {
		if !s.Assignable() {
			t.Errorf("%q should be assignable", s)
		}
	}
}

func TestRoleCanWrite(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleAdmin, true},
		{RoleManager, true},
		{RoleMember, false},
		{Role("unknown"), false},
	}

	for _, tt := range tests {
		if got := tt.role.CanWrite(); got != tt.want {
			t.Errorf("%q.CanWrite() = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestBuildBoard(t *testing.T) {
	tasks := []Task{
		{ID: 1, Status: StatusNotStarted},
		{ID: 2, Status: StatusInProgress},
		{ID: 3, Status: StatusCompleted},
		{ID: 4, Status: StatusOverdue},
		{ID: 5, Status: TaskStatus("bogus")},
	}

	b := BuildBoard(tasks)
	if len(b.NotStarted) != 2 {
		t.Errorf("NotStarted = %d tasks, want 2 (includes unknown status)", len(b.NotStarted))
	}
	if len(b.InProgress) != 1 || len(b.Completed) != 1 || len(b.Overdue) != 1 {
		t.Errorf("unexpected bucket sizes: %d/%d/%d", len(b.InProgress), len(b.Completed), len(b.Overdue))
	}
}
