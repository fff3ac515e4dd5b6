package domain

import (
	"strings"
	"time"
)

// Fields are the user-editable parts of a task.
type Fields struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`
	DueDate     string   `json:"dueDate"`
}

// NewFields returns the form defaults used when adding a task.
func NewFields() Fields {
	return Fields{Priority: PriorityLow, Status: StatusToDo}
}

func (f Fields) blankTitle() bool {
	return strings.TrimSpace(f.Title) == ""
}

// normalized fills unset or unknown enumerations with the form defaults.
func (f Fields) normalized() Fields {
	if !f.Priority.Valid() {
		f.Priority = PriorityLow
	}
	if !f.Status.Valid() {
		f.Status = StatusToDo
	}
	return f
}

// Draft is the content of the add/edit form. It is either an AddDraft or an
// EditDraft.
type Draft interface {
	draftFields() Fields
}

// AddDraft describes a task that does not exist yet.
type AddDraft struct {
	Fields
}

func (d AddDraft) draftFields() Fields { return d.Fields }

// EditDraft carries replacement fields for an existing task together with
// the identity that must survive the edit.
type EditDraft struct {
	Fields
	originalID        TaskID
	originalCreatedAt time.Time
}

func (d EditDraft) draftFields() Fields { return d.Fields }

// EditDraftFor seeds an edit form from t.
func EditDraftFor(t Task) EditDraft {
	return EditDraft{
		Fields: Fields{
			Title:       t.Title,
			Description: t.Description,
			Priority:    t.Priority,
			Status:      t.Status,
			DueDate:     t.DueDate,
		},
		originalID:        t.ID,
		originalCreatedAt: t.CreatedAt,
	}
}

// ID is the task the draft edits.
func (d EditDraft) ID() TaskID { return d.originalID }

// CreatedAt is the creation time of the edited task.
func (d EditDraft) CreatedAt() time.Time { return d.originalCreatedAt }
