package api

import (
	"context"

	"taskboard/domain"
)

// Board is the part of the task store the HTTP adapter drives.
type Board interface {
	Tasks() []domain.Task
	Get(id domain.TaskID) (domain.Task, bool)
	View(c domain.Criteria) domain.View
	AddTask(ctx context.Context, f domain.Fields) (domain.Task, bool, error)
	EditTask(ctx context.Context, id domain.TaskID, f domain.Fields) (domain.Task, bool, error)
	DeleteTask(ctx context.Context, id domain.TaskID, c domain.Confirmer) (bool, error)
	ApplyDrag(ctx context.Context, o domain.DragOutcome) (bool, error)
}

// Authenticator resolves the caller from an Authorization header.
type Authenticator interface {
	SubjectFromAuthHeader(h string) (string, error)
}

// Subscriber hands out change wake-ups for streaming clients. A closed
// channel ends the stream.
type Subscriber interface {
	Subscribe() chan struct{}
	Unsubscribe(ch chan struct{})
}
