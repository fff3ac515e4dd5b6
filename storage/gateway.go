package storage

import (
	"context"
	"errors"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

// Gateway stores the whole board as a JSON array in a single slot key.
type Gateway struct {
	slot Slot
	key  string
}

// NewGateway creates a Gateway. An empty key selects DefaultKey.
func NewGateway(slot Slot, key string) *Gateway {
	if slot == nil {
		panic("storage.NewGateway: slot is nil")
	}
	if key == "" {
		key = DefaultKey
	}
	return &Gateway{slot: slot, key: key}
}

// Key is the namespace used by the gateway.
func (g *Gateway) Key() string { return g.key }

// Load returns the stored tasks. Missing, unreadable and corrupt data all
// load as an empty board.
func (g *Gateway) Load(ctx context.Context) []domain.Task {
	data, err := g.slot.Get(ctx, g.key)
	if err != nil {
		if !errors.Is(err, ErrSlotEmpty) {
			log.WithError(err).WithField("key", g.key).Warn("failed to read task slot")
		}
		return []domain.Task{}
	}
	tasks, err := decodeTasks(data)
	if err != nil {
		log.WithError(err).WithField("key", g.key).Warn("task slot is corrupt, starting empty")
		return []domain.Task{}
	}
	return tasks
}

// Save overwrites the slot with tasks.
func (g *Gateway) Save(ctx context.Context, tasks []domain.Task) error {
	data, err := encodeTasks(tasks)
	if err != nil {
		return err
	}
	return g.slot.Put(ctx, g.key, data)
}

func encodeTasks(tasks []domain.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return sonic.ConfigStd.Marshal(tasks)
}

func decodeTasks(data []byte) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := sonic.ConfigStd.Unmarshal(data, &tasks); err != nil {
		return nil, err
	}
	if err := domain.ValidateAll(tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}
