// Command stream-load holds many board streams open and reports how many
// events arrived. It exits non-zero when nothing arrived or more than 1% of
// connection attempts failed.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

type counters struct {
	events   atomic.Uint64
	attempts atomic.Uint64
	failures atomic.Uint64
}

func main() {
	var (
		streamURL = flag.String("url", "http://localhost:8080/api/stream", "board stream endpoint")
		conns     = flag.Int("conns", 200, "concurrent streams")
		duration  = flag.Duration("duration", 2*time.Minute, "test length")
	)
	flag.Parse()
	bearer := os.Getenv("BEARER_TOKEN")

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var c counters
	var wg sync.WaitGroup
	for range *conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hold(ctx, *streamURL, bearer, &c)
		}()
	}
	wg.Wait()

	attempts, failures, events := c.attempts.Load(), c.failures.Load(), c.events.Load()
	rate := 0.0
	if attempts > 0 {
		rate = float64(failures) / float64(attempts)
	}
	log.WithFields(log.Fields{
		"connections": *conns,
		"duration":    duration.String(),
		"events":      events,
		"attempts":    attempts,
		"failures":    failures,
	}).Info("stream load finished")
	if events == 0 || rate > 0.01 {
		os.Exit(1)
	}
}

// hold keeps one stream open until ctx ends, reconnecting with backoff.
func hold(ctx context.Context, url, bearer string, c *counters) {
	backoff := time.Second
	for ctx.Err() == nil {
		c.attempts.Add(1)
		if err := consume(ctx, url, bearer, c); err != nil && ctx.Err() == nil {
			c.failures.Add(1)
			log.WithError(err).Debug("stream dropped")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff = min(backoff*2, 5*time.Second)
			continue
		}
		backoff = time.Second
	}
}

func consume(ctx context.Context, url, bearer string, c *counters) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "event: board") {
			c.events.Add(1)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errStreamClosed
}

type statusError struct{ code int }

func (e *statusError) Error() string { return "unexpected status " + http.StatusText(e.code) }

var errStreamClosed = errors.New("stream closed by server")
