package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TaskID identifies a task for its whole lifetime.
type TaskID int64

func (id TaskID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseTaskID accepts the decimal form produced by String.
func ParseTaskID(s string) (TaskID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q: %w", s, err)
	}
	return TaskID(n), nil
}

// Priority is one of Low, Medium or High.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (p *Priority) UnmarshalText(b []byte) error {
	v := Priority(b)
	if !v.Valid() {
		return fmt.Errorf("unknown priority %q", string(b))
	}
	*p = v
	return nil
}

// ParsePriority returns the zero Priority and false for unknown values.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(s)
	return p, p.Valid()
}

// Status names the lane a task lives in.
type Status string

const (
	StatusToDo       Status = "To-Do"
	StatusInProgress Status = "In-Progress"
	StatusCompleted  Status = "Completed"
)

// Lanes is the fixed display order of the board.
var Lanes = [3]Status{StatusToDo, StatusInProgress, StatusCompleted}

func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (s *Status) UnmarshalText(b []byte) error {
	v := Status(b)
	if !v.Valid() {
		return fmt.Errorf("unknown status %q", string(b))
	}
	*s = v
	return nil
}

// ParseStatus returns the zero Status and false for unknown values.
func ParseStatus(s string) (Status, bool) {
	v := Status(s)
	return v, v.Valid()
}

func laneIndex(s Status) int {
	for i, l := range Lanes {
		if l == s {
			return i
		}
	}
	return -1
}

// DueDateLayout is the calendar date format used by the edit form.
const DueDateLayout = "2006-01-02"

// Task represents a single card on the board.
type Task struct {
	ID          TaskID    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	DueDate     string    `json:"dueDate"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Due parses DueDate. Empty or malformed values report false.
func (t Task) Due() (time.Time, bool) {
	raw := strings.TrimSpace(t.DueDate)
	if raw == "" {
		return time.Time{}, false
	}
	if d, err := time.Parse(DueDateLayout, raw); err == nil {
		return d, true
	}
	if d, err := time.Parse(time.RFC3339, raw); err == nil {
		return d, true
	}
	return time.Time{}, false
}

// Validate reports a record that cannot be placed in a lane. JSON decoding
// only checks enumerations that are present, so a missing priority or status
// has to be caught here.
func (t Task) Validate() error {
	if !t.Priority.Valid() {
		return fmt.Errorf("task %d: invalid priority %q", t.ID, t.Priority)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("task %d: invalid status %q", t.ID, t.Status)
	}
	return nil
}

// ValidateAll returns the first Validate error in tasks.
func ValidateAll(tasks []Task) error {
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}
