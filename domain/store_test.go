package domain

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func newTestStore(t *testing.T, existing ...Task) (*Store, *fakeGateway, *recordingNotifier) {
	t.Helper()
	gw := &fakeGateway{stored: existing}
	n := &recordingNotifier{}
	s := NewStore(gw, n)
	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	<-s.Bootstrap(context.Background(), nil)
	return s, gw, n
}

func TestAddTaskAssignsDistinctIDs(t *testing.T) {
	s, gw, _ := newTestStore(t)
	ctx := context.Background()

	seen := map[TaskID]bool{}
	for i := 0; i < 20; i++ {
		task, ok, err := s.AddTask(ctx, Fields{Title: "task"})
		if err != nil || !ok {
			t.Fatalf("add %d: ok=%v err=%v", i, ok, err)
		}
		if seen[task.ID] {
			t.Fatalf("duplicate id %d", task.ID)
		}
		seen[task.ID] = true
	}
	if gw.Saves() != 20 {
		t.Fatalf("expected a save per add, got %d", gw.Saves())
	}
}

func TestAddTaskAfterReloadDoesNotReuseIDs(t *testing.T) {
	existing := []Task{
		{ID: 7, Title: "a", Priority: PriorityLow, Status: StatusToDo},
		{ID: 3, Title: "b", Priority: PriorityLow, Status: StatusToDo},
	}
	s, _, _ := newTestStore(t, existing...)

	task, ok, err := s.AddTask(context.Background(), Fields{Title: "c"})
	if err != nil || !ok {
		t.Fatalf("add: ok=%v err=%v", ok, err)
	}
	if task.ID != 8 {
		t.Fatalf("expected id 8, got %d", task.ID)
	}
}

func TestAddTaskAppliesFormDefaults(t *testing.T) {
	s, _, _ := newTestStore(t)
	task, ok, _ := s.AddTask(context.Background(), Fields{Title: "defaults"})
	if !ok {
		t.Fatal("expected task to be added")
	}
	if task.Priority != PriorityLow || task.Status != StatusToDo {
		t.Fatalf("unexpected defaults: %#v", task)
	}
	if task.CreatedAt.IsZero() {
		t.Fatal("createdAt not stamped")
	}
}

func TestAddTaskRejectsBlankTitle(t *testing.T) {
	s, gw, n := newTestStore(t)
	for _, title := range []string{"", "   ", "\t\n"} {
		if _, ok, err := s.AddTask(context.Background(), Fields{Title: title}); ok || err != nil {
			t.Fatalf("title %q: ok=%v err=%v", title, ok, err)
		}
	}
	if len(s.Tasks()) != 0 {
		t.Fatalf("collection changed: %#v", s.Tasks())
	}
	if gw.Saves() != 0 {
		t.Fatalf("rejected add must not save, saves=%d", gw.Saves())
	}
	if got := n.Types(); !reflect.DeepEqual(got, []string{BoardLoaded}) {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestEditTaskPreservesIDAndCreatedAt(t *testing.T) {
	s, _, n := newTestStore(t)
	ctx := context.Background()
	orig, _, _ := s.AddTask(ctx, Fields{Title: "Write report", Priority: PriorityHigh})

	edited, ok, err := s.EditTask(ctx, orig.ID, Fields{
		Title:       "Write final report",
		Description: "for Q2",
		Priority:    PriorityMedium,
		Status:      StatusInProgress,
		DueDate:     "2024-06-01",
	})
	if err != nil || !ok {
		t.Fatalf("edit: ok=%v err=%v", ok, err)
	}
	if edited.ID != orig.ID || !edited.CreatedAt.Equal(orig.CreatedAt) {
		t.Fatalf("identity changed: before %#v after %#v", orig, edited)
	}
	got, _ := s.Get(orig.ID)
	if got.Title != "Write final report" || got.Status != StatusInProgress || got.DueDate != "2024-06-01" {
		t.Fatalf("fields not replaced: %#v", got)
	}
	if types := n.Types(); types[len(types)-1] != TaskUpdated {
		t.Fatalf("expected task-updated event, got %v", types)
	}
}

func TestEditTaskRejectsBlankTitleAndUnknownID(t *testing.T) {
	s, gw, _ := newTestStore(t)
	ctx := context.Background()
	orig, _, _ := s.AddTask(ctx, Fields{Title: "keep"})
	saves := gw.Saves()

	if _, ok, _ := s.EditTask(ctx, orig.ID, Fields{Title: "  "}); ok {
		t.Fatal("blank title edit accepted")
	}
	if _, ok, _ := s.EditTask(ctx, orig.ID+100, Fields{Title: "x"}); ok {
		t.Fatal("edit of unknown id accepted")
	}
	got, _ := s.Get(orig.ID)
	if got != orig {
		t.Fatalf("task changed: %#v", got)
	}
	if gw.Saves() != saves {
		t.Fatalf("no-op edits must not save")
	}
}

func TestSubmitDispatchesOnDraftKind(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	added, ok, _ := s.Submit(ctx, AddDraft{Fields: Fields{Title: "draft"}})
	if !ok {
		t.Fatal("add draft rejected")
	}
	d := EditDraftFor(added)
	d.Title = "renamed"
	edited, ok, _ := s.Submit(ctx, d)
	if !ok {
		t.Fatal("edit draft rejected")
	}
	if edited.ID != added.ID || !edited.CreatedAt.Equal(added.CreatedAt) || edited.Title != "renamed" {
		t.Fatalf("unexpected edit result: %#v", edited)
	}
	if len(s.Tasks()) != 1 {
		t.Fatalf("edit draft must not add, got %d tasks", len(s.Tasks()))
	}
}

func TestSubmitIgnoresStaleEditDraft(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	old, _, _ := s.AddTask(ctx, Fields{Title: "old"})
	d := EditDraftFor(old)
	if ok, _ := s.DeleteTask(ctx, old.ID, confirmYes); !ok {
		t.Fatal("delete rejected")
	}
	// the freed id is handed to the next task
	reused, _, _ := s.AddTask(ctx, Fields{Title: "new"})
	if reused.ID != old.ID {
		t.Fatalf("expected id %d to be reused, got %d", old.ID, reused.ID)
	}

	d.Title = "overwritten"
	if _, ok, _ := s.Submit(ctx, d); ok {
		t.Fatal("stale draft applied to a different task")
	}
	if got, _ := s.Get(reused.ID); got.Title != "new" {
		t.Fatalf("task changed by stale draft: %#v", got)
	}
}

func TestDeleteTaskRequiresConfirmation(t *testing.T) {
	s, gw, _ := newTestStore(t)
	ctx := context.Background()
	a, _, _ := s.AddTask(ctx, Fields{Title: "a"})
	b, _, _ := s.AddTask(ctx, Fields{Title: "b"})
	saves := gw.Saves()

	if ok, _ := s.DeleteTask(ctx, a.ID, confirmNo); ok {
		t.Fatal("delete without confirmation succeeded")
	}
	if ok, _ := s.DeleteTask(ctx, a.ID, nil); ok {
		t.Fatal("delete without confirmer succeeded")
	}
	if len(s.Tasks()) != 2 || gw.Saves() != saves {
		t.Fatalf("denied delete changed the board")
	}

	ok, err := s.DeleteTask(ctx, a.ID, confirmYes)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if got := s.Tasks(); len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("unexpected remaining tasks: %#v", got)
	}
}

func TestDeleteUnknownTaskDoesNotPrompt(t *testing.T) {
	s, _, _ := newTestStore(t)
	prompted := false
	ok, err := s.DeleteTask(context.Background(), 42, ConfirmFunc(func(Task) bool {
		prompted = true
		return true
	}))
	if ok || err != nil || prompted {
		t.Fatalf("ok=%v err=%v prompted=%v", ok, err, prompted)
	}
}

func TestMoveTaskChangesOnlyStatus(t *testing.T) {
	s, gw, _ := newTestStore(t)
	ctx := context.Background()
	orig, _, _ := s.AddTask(ctx, Fields{Title: "move me", Description: "d", Priority: PriorityHigh, DueDate: "2024-07-01"})

	ok, err := s.MoveTask(ctx, orig.ID, StatusCompleted)
	if err != nil || !ok {
		t.Fatalf("move: ok=%v err=%v", ok, err)
	}
	got, _ := s.Get(orig.ID)
	want := orig
	want.Status = StatusCompleted
	if got != want {
		t.Fatalf("unexpected task after move: %#v", got)
	}

	saves := gw.Saves()
	if ok, _ := s.MoveTask(ctx, orig.ID, StatusCompleted); ok {
		t.Fatal("same-lane move reported a mutation")
	}
	if ok, _ := s.MoveTask(ctx, orig.ID+1, StatusToDo); ok {
		t.Fatal("move of unknown id reported a mutation")
	}
	if ok, _ := s.MoveTask(ctx, orig.ID, Status("Archived")); ok {
		t.Fatal("move to unknown lane reported a mutation")
	}
	if gw.Saves() != saves {
		t.Fatal("no-op moves must not save")
	}
}

func TestApplyDragCrossLane(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	five := Task{ID: 5, Title: "five", Description: "d", Priority: PriorityMedium, Status: StatusToDo, DueDate: "2024-02-01", CreatedAt: created}
	other := Task{ID: 6, Title: "six", Priority: PriorityLow, Status: StatusToDo, CreatedAt: created}
	s, _, _ := newTestStore(t, five, other)

	ok, err := s.ApplyDrag(context.Background(), DragOutcome{
		Source:      LaneRef{LaneID: "To-Do"},
		Destination: &LaneRef{LaneID: "Completed"},
		DraggedID:   "5",
	})
	if err != nil || !ok {
		t.Fatalf("drag: ok=%v err=%v", ok, err)
	}
	got, _ := s.Get(5)
	want := five
	want.Status = StatusCompleted
	if got != want {
		t.Fatalf("unexpected task 5: %#v", got)
	}
	if o, _ := s.Get(6); o != other {
		t.Fatalf("task 6 changed: %#v", o)
	}
}

func TestApplyDragSameLaneIsNoop(t *testing.T) {
	tasks := []Task{
		{ID: 1, Title: "a", Priority: PriorityLow, Status: StatusToDo},
		{ID: 2, Title: "b", Priority: PriorityLow, Status: StatusInProgress},
	}
	s, gw, _ := newTestStore(t, tasks...)

	for _, o := range []DragOutcome{
		{Source: LaneRef{"To-Do"}, Destination: &LaneRef{"To-Do"}, DraggedID: "1"},
		{Source: LaneRef{"To-Do"}, Destination: nil, DraggedID: "1"},
	} {
		if ok, err := s.ApplyDrag(context.Background(), o); ok || err != nil {
			t.Fatalf("outcome %#v: ok=%v err=%v", o, ok, err)
		}
	}
	if !reflect.DeepEqual(s.Tasks(), tasks) {
		t.Fatalf("statuses changed: %#v", s.Tasks())
	}
	if gw.Saves() != 0 {
		t.Fatalf("no-op drags must not save")
	}
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	s, gw, _ := newTestStore(t)
	gw.saveErr = errors.New("quota exceeded")

	task, ok, err := s.AddTask(context.Background(), Fields{Title: "unsaved"})
	if !ok {
		t.Fatal("add should still apply in memory")
	}
	if !errors.Is(err, gw.saveErr) {
		t.Fatalf("expected wrapped save error, got %v", err)
	}
	if got, found := s.Get(task.ID); !found || got.Title != "unsaved" {
		t.Fatalf("in-memory task missing: %#v", got)
	}
}

func TestBootstrapPrefersStoredTasks(t *testing.T) {
	stored := []Task{{ID: 1, Title: "stored", Priority: PriorityLow, Status: StatusToDo}}
	gw := &fakeGateway{stored: stored}
	seed := &fakeSeed{tasks: []Task{{ID: 9, Title: "seed", Priority: PriorityLow, Status: StatusToDo}}}
	s := NewStore(gw, nil)

	waitBootstrap(t, s.Bootstrap(context.Background(), seed))
	if seed.calls != 0 {
		t.Fatalf("seed fetched although storage had data")
	}
	if !reflect.DeepEqual(s.Tasks(), stored) {
		t.Fatalf("unexpected tasks: %#v", s.Tasks())
	}
}

func TestBootstrapAdoptsSeedWhenEmpty(t *testing.T) {
	seeded := []Task{
		{ID: 1, Title: "one", Priority: PriorityLow, Status: StatusToDo},
		{ID: 1, Title: "dup", Priority: PriorityLow, Status: StatusToDo},
		{ID: 2, Title: "two", Priority: PriorityHigh, Status: StatusCompleted},
	}
	gw := &fakeGateway{}
	n := &recordingNotifier{}
	s := NewStore(gw, n)

	waitBootstrap(t, s.Bootstrap(context.Background(), &fakeSeed{tasks: seeded}))
	got := s.Tasks()
	if len(got) != 2 || got[0].Title != "one" || got[1].ID != 2 {
		t.Fatalf("unexpected seeded tasks: %#v", got)
	}
	if len(gw.Load(context.Background())) != 2 {
		t.Fatalf("seed not persisted")
	}
	if types := n.Types(); !reflect.DeepEqual(types, []string{BoardLoaded}) {
		t.Fatalf("unexpected events: %v", types)
	}
}

func TestBootstrapSeedFailureYieldsEmptyBoard(t *testing.T) {
	gw := &fakeGateway{}
	s := NewStore(gw, nil)

	waitBootstrap(t, s.Bootstrap(context.Background(), &fakeSeed{err: errors.New("offline")}))
	if len(s.Tasks()) != 0 {
		t.Fatalf("expected empty board, got %#v", s.Tasks())
	}
	if gw.Saves() != 0 {
		t.Fatalf("failed seed must not save")
	}
}

func TestBootstrapRejectsSeedWithoutLane(t *testing.T) {
	seeded := []Task{
		{ID: 1, Title: "no lane", Priority: PriorityLow},
		{ID: 2, Title: "fine", Priority: PriorityLow, Status: StatusToDo},
	}
	gw := &fakeGateway{}
	s := NewStore(gw, nil)

	waitBootstrap(t, s.Bootstrap(context.Background(), &fakeSeed{tasks: seeded}))
	if len(s.Tasks()) != 0 {
		t.Fatalf("expected invalid seed to be rejected, got %#v", s.Tasks())
	}
	if gw.Saves() != 0 {
		t.Fatalf("rejected seed must not save")
	}
}

func TestValidateAll(t *testing.T) {
	ok := []Task{{ID: 1, Priority: PriorityHigh, Status: StatusCompleted}}
	if err := ValidateAll(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range []Task{
		{ID: 2, Priority: PriorityHigh},
		{ID: 3, Status: StatusToDo},
		{ID: 4, Priority: "Urgent", Status: StatusToDo},
	} {
		if err := ValidateAll(append(ok, bad)); err == nil {
			t.Fatalf("task %d accepted", bad.ID)
		}
	}
}

func TestSeedIgnoredWhenBoardAlreadyChanged(t *testing.T) {
	s := NewStore(&fakeGateway{}, nil)
	<-s.Bootstrap(context.Background(), nil)
	if _, ok, _ := s.AddTask(context.Background(), Fields{Title: "mine"}); !ok {
		t.Fatal("add rejected")
	}
	s.adoptSeed(context.Background(), []Task{{ID: 1, Title: "seed", Priority: PriorityLow, Status: StatusToDo}})
	if got := s.Tasks(); len(got) != 1 || got[0].Title != "mine" {
		t.Fatalf("seed overwrote user data: %#v", got)
	}
}

func waitBootstrap(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bootstrap did not finish")
	}
}
