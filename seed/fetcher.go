package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

// DefaultPath is where the bundled seed file is served from.
const DefaultPath = "/tasks.json"

const maxSeedSize = 4 << 20

// ErrStatus is returned when the seed endpoint answers with a non-2xx code.
var ErrStatus = errors.New("unexpected seed response status")

// Fetcher retrieves the initial task list once.
type Fetcher struct {
	URL    string
	Client *http.Client
}

// New creates a Fetcher for url.
func New(url string) *Fetcher {
	return &Fetcher{URL: url, Client: &http.Client{Timeout: 30 * time.Second}}
}

// Fetch starts the request on its own goroutine and reports the outcome to
// done exactly once. There are no retries.
func (f *Fetcher) Fetch(ctx context.Context, done func([]domain.Task, error)) {
	go func() {
		tasks, err := f.get(ctx)
		if err != nil {
			done(nil, err)
			return
		}
		log.WithField("tasks", len(tasks)).WithField("url", f.URL).Debug("seed data fetched")
		done(tasks, nil)
	}()
}

func (f *Fetcher) get(ctx context.Context) ([]domain.Task, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSeedSize))
	if err != nil {
		return nil, err
	}
	var tasks []domain.Task
	if err := sonic.ConfigStd.Unmarshal(body, &tasks); err != nil {
		return nil, fmt.Errorf("decode seed data: %w", err)
	}
	if err := domain.ValidateAll(tasks); err != nil {
		return nil, fmt.Errorf("invalid seed data: %w", err)
	}
	return tasks, nil
}
