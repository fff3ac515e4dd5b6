package domain

import (
	"context"
	"sync"
)

type fakeGateway struct {
	mu      sync.Mutex
	stored  []Task
	saves   int
	saveErr error
}

func (f *fakeGateway) Load(ctx context.Context) []Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Task(nil), f.stored...)
}

func (f *fakeGateway) Save(ctx context.Context, tasks []Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.stored = append([]Task(nil), tasks...)
	return nil
}

func (f *fakeGateway) Saves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

type fakeSeed struct {
	tasks []Task
	err   error
	calls int
}

func (f *fakeSeed) Fetch(ctx context.Context, done func([]Task, error)) {
	f.calls++
	go done(f.tasks, f.err)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

var (
	confirmYes = ConfirmFunc(func(Task) bool { return true })
	confirmNo  = ConfirmFunc(func(Task) bool { return false })
)
