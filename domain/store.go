package domain

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Gateway persists the whole collection in one slot.
type Gateway interface {
	// Load never fails; unreadable data is reported as an empty collection.
	Load(ctx context.Context) []Task
	Save(ctx context.Context, tasks []Task) error
}

// SeedSource fetches initial tasks once. done is called exactly once.
type SeedSource interface {
	Fetch(ctx context.Context, done func([]Task, error))
}

// Confirmer gates deletions.
type Confirmer interface {
	Confirm(t Task) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(t Task) bool

func (f ConfirmFunc) Confirm(t Task) bool { return f(t) }

// Notifier receives an event after every committed change.
type Notifier interface {
	Notify(ev Event)
}

// Store owns the task collection. Every mutation is written through to the
// gateway before it returns.
type Store struct {
	mu       sync.Mutex
	tasks    []Task
	gateway  Gateway
	notifier Notifier
	now      func() time.Time
}

// NewStore creates an empty store. notifier may be nil.
func NewStore(gateway Gateway, notifier Notifier) *Store {
	if gateway == nil {
		panic("domain.NewStore: gateway is nil")
	}
	return &Store{gateway: gateway, notifier: notifier, now: time.Now}
}

// Bootstrap loads the persisted collection. When nothing is stored and seed
// is non-nil, it starts a one-shot seed fetch. The returned channel is closed
// once the board is initialized.
func (s *Store) Bootstrap(ctx context.Context, seed SeedSource) <-chan struct{} {
	done := make(chan struct{})
	loaded := uniqueByID(s.gateway.Load(ctx))

	s.mu.Lock()
	s.tasks = loaded
	s.mu.Unlock()

	if len(loaded) > 0 || seed == nil {
		log.WithField("tasks", len(loaded)).Info("board loaded from storage")
		s.emit(BoardLoaded, Task{})
		close(done)
		return done
	}

	seed.Fetch(ctx, func(tasks []Task, err error) {
		defer close(done)
		if err != nil {
			log.WithError(err).Info("seed data unavailable, starting with an empty board")
			return
		}
		s.adoptSeed(ctx, tasks)
	})
	return done
}

func (s *Store) adoptSeed(ctx context.Context, tasks []Task) {
	if err := ValidateAll(tasks); err != nil {
		log.WithError(err).Warn("seed data rejected, starting with an empty board")
		return
	}
	tasks = uniqueByID(tasks)
	if len(tasks) == 0 {
		return
	}
	s.mu.Lock()
	if len(s.tasks) > 0 {
		s.mu.Unlock()
		log.Warn("board changed before seed data arrived; ignoring seed")
		return
	}
	s.tasks = tasks
	_ = s.persistLocked(ctx)
	s.mu.Unlock()

	log.WithField("tasks", len(tasks)).Info("board seeded")
	s.emit(BoardLoaded, Task{})
}

// Tasks returns a copy of the collection in insertion order.
func (s *Store) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Task(nil), s.tasks...)
}

// Get returns the task with the given id.
func (s *Store) Get(id TaskID) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i], true
	}
	return Task{}, false
}

// Submit saves the form content, adding or editing depending on the draft.
func (s *Store) Submit(ctx context.Context, d Draft) (Task, bool, error) {
	switch d := d.(type) {
	case AddDraft:
		return s.AddTask(ctx, d.Fields)
	case EditDraft:
		return s.editTask(ctx, d.ID(), d.CreatedAt(), d.Fields)
	}
	return Task{}, false, nil
}

// AddTask appends a new task. A blank title is a no-op.
func (s *Store) AddTask(ctx context.Context, f Fields) (Task, bool, error) {
	if f.blankTitle() {
		return Task{}, false, nil
	}
	f = f.normalized()

	s.mu.Lock()
	t := Task{
		ID:          NextID(s.tasks),
		Title:       f.Title,
		Description: f.Description,
		Priority:    f.Priority,
		Status:      f.Status,
		DueDate:     f.DueDate,
		CreatedAt:   s.now().UTC(),
	}
	s.tasks = append(s.tasks, t)
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.emit(TaskCreated, t)
	return t, true, err
}

// EditTask replaces every field of the task except its id and creation time.
// A blank title or an unknown id is a no-op.
func (s *Store) EditTask(ctx context.Context, id TaskID, f Fields) (Task, bool, error) {
	return s.editTask(ctx, id, time.Time{}, f)
}

// editTask applies f when the task still has the expected creation time.
// A zero createdAt skips the check.
func (s *Store) editTask(ctx context.Context, id TaskID, createdAt time.Time, f Fields) (Task, bool, error) {
	if f.blankTitle() {
		return Task{}, false, nil
	}
	f = f.normalized()

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 || (!createdAt.IsZero() && !s.tasks[i].CreatedAt.Equal(createdAt)) {
		s.mu.Unlock()
		return Task{}, false, nil
	}
	t := Task{
		ID:          id,
		Title:       f.Title,
		Description: f.Description,
		Priority:    f.Priority,
		Status:      f.Status,
		DueDate:     f.DueDate,
		CreatedAt:   s.tasks[i].CreatedAt,
	}
	s.tasks[i] = t
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.emit(TaskUpdated, t)
	return t, true, err
}

// DeleteTask removes the task once c confirms it. Unknown ids are a no-op and
// do not prompt.
func (s *Store) DeleteTask(ctx context.Context, id TaskID, c Confirmer) (bool, error) {
	t, ok := s.Get(id)
	if !ok {
		return false, nil
	}
	if c == nil || !c.Confirm(t) {
		return false, nil
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.emit(TaskDeleted, t)
	return true, err
}

// MoveTask changes only the status of a task. Moving to the current lane or
// an unknown lane is a no-op.
func (s *Store) MoveTask(ctx context.Context, id TaskID, status Status) (bool, error) {
	if !status.Valid() {
		return false, nil
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 || s.tasks[i].Status == status {
		s.mu.Unlock()
		return false, nil
	}
	s.tasks[i].Status = status
	t := s.tasks[i]
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.emit(TaskMoved, t)
	return true, err
}

// ApplyDrag reconciles a drag outcome and applies the resulting move.
func (s *Store) ApplyDrag(ctx context.Context, o DragOutcome) (bool, error) {
	req, ok := Reconcile(o)
	if !ok {
		return false, nil
	}
	return s.MoveTask(ctx, req.ID, req.Status)
}

// View projects the current collection.
func (s *Store) View(c Criteria) View {
	return Project(s.Tasks(), c)
}

func (s *Store) indexLocked(id TaskID) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the collection. A failure leaves memory untouched.
func (s *Store) persistLocked(ctx context.Context) error {
	snapshot := append([]Task(nil), s.tasks...)
	if err := s.gateway.Save(ctx, snapshot); err != nil {
		log.WithError(err).WithField("tasks", len(snapshot)).Error("failed to persist tasks")
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

func (s *Store) emit(typ string, t Task) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(newEvent(typ, t, s.now()))
}

// uniqueByID keeps the first record for every id.
func uniqueByID(tasks []Task) []Task {
	seen := make(map[TaskID]struct{}, len(tasks))
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if _, dup := seen[t.ID]; dup {
			log.WithField("id", t.ID).Warn("dropping task with duplicate id")
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
