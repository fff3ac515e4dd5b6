package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	BoardLoaded = "board-loaded"
	TaskCreated = "task-created"
	TaskUpdated = "task-updated"
	TaskMoved   = "task-moved"
	TaskDeleted = "task-deleted"
)

// Event describes a committed change to the board.
type Event struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	TaskID TaskID `json:"taskId,omitempty"`
	Status Status `json:"status,omitempty"`
	Time   int64  `json:"time"`
}

func newEvent(typ string, t Task, now time.Time) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   typ,
		TaskID: t.ID,
		Status: t.Status,
		Time:   now.UnixMilli(),
	}
}
