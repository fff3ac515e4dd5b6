package notify

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

// Sink delivers an encoded change event somewhere.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev domain.Event, payload []byte) error
}

// Config tunes the dispatcher worker pool.
type Config struct {
	Workers        int
	Buffer         int
	SendTimeout    time.Duration
	HandoffTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.HandoffTimeout < 0 {
		c.HandoffTimeout = 0
	}
	return c
}

// Dispatcher fans change events out to sinks on a fixed set of workers so
// board mutations never wait on the network.
type Dispatcher struct {
	cfg    Config
	sinks  []Sink
	logger *log.Logger

	mu     sync.RWMutex
	jobs   chan domain.Event
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts the workers.
func NewDispatcher(cfg Config, logger *log.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		panic("notify.NewDispatcher: logger is nil")
	}
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		cfg:    cfg,
		sinks:  sinks,
		logger: logger,
		jobs:   make(chan domain.Event, cfg.Buffer),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	logger.Infof("change dispatcher started, workers: %d, buffer: %d, sinks: %d, handoff: %v", cfg.Workers, cfg.Buffer, len(sinks), cfg.HandoffTimeout)
	return d
}

// Notify queues ev. When the buffer stays full for longer than the handoff
// timeout the event is dropped.
func (d *Dispatcher) Notify(ev domain.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed || len(d.sinks) == 0 {
		return
	}

	select {
	case d.jobs <- ev:
		return
	default:
	}

	if d.cfg.HandoffTimeout > 0 {
		timer := time.NewTimer(d.cfg.HandoffTimeout)
		defer timer.Stop()
		select {
		case d.jobs <- ev:
			return
		case <-timer.C:
		}
	}
	d.logger.WithField("event", ev.Type).WithField("task", ev.TaskID).Warn("change buffer saturated; dropping event")
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for ev := range d.jobs {
		payload, err := sonic.ConfigStd.Marshal(ev)
		if err != nil {
			d.logger.WithError(err).Error("failed to encode change event")
			continue
		}
		for _, s := range d.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
			err := s.Send(ctx, ev, payload)
			cancel()
			if err != nil {
				d.logger.WithError(err).WithFields(log.Fields{
					"sink":   s.Name(),
					"event":  ev.Type,
					"worker": id,
				}).Error("change delivery failed")
			}
		}
	}
}
