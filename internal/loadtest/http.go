package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/trackrank/internal/domain/types"
	"github.com/okian/trackrank/pkg/logger"
)

// HTTPClient wraps http.Client with a base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// do sends a request and decodes a 2xx JSON answer into out when out is set.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// worker picks the submitter of a login. A player's runs stay in order on
// one submitter, like a single game client would send them.
func worker(login string, workers int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(login))
	return int(h.Sum32() % uint32(workers))
}

// submitFinishes posts finishes concurrently.
func submitFinishes(ctx context.Context, client *HTTPClient, config *Config, finishes []Finish, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting finishes", logger.Int("finishes", len(finishes)), logger.Int("workers", config.Workers))

	var submitted, improved, failed atomic.Int64
	lanes := make([]chan Finish, config.Workers)
	var wg sync.WaitGroup

	for i := range lanes {
		lanes[i] = make(chan Finish, config.Workers*2)
		wg.Add(1)
		go func(lane <-chan Finish) {
			defer wg.Done()
			for f := range lane {
				var resp types.FinishedResponse
				_, err := client.do(ctx, http.MethodPost, "/player/finished", f, &resp)
				n := submitted.Add(1)
				switch {
				case err != nil:
					failed.Add(1)
					if config.Verbose {
						log.Warn(ctx, "finish rejected", logger.String("login", f.Login), logger.Error(err))
					}
				case resp.HasImproved:
					improved.Add(1)
				}
				if config.Verbose && n%1000 == 0 {
					log.Info(ctx, "progress", logger.Int64("submitted", n), logger.Int64("failed", failed.Load()))
				}
			}
		}(lanes[i])
	}

	for _, f := range finishes {
		if ctx.Err() != nil {
			break
		}
		lanes[worker(f.Login, len(lanes))] <- f
	}
	for _, lane := range lanes {
		close(lane)
	}
	wg.Wait()

	stats.FinishesSubmitted = int(submitted.Load())
	stats.FinishesImproved = int(improved.Load())
	stats.FinishesFailed = int(failed.Load())
	log.Info(ctx, "finish submission completed",
		logger.Int("submitted", stats.FinishesSubmitted),
		logger.Int("improved", stats.FinishesImproved),
		logger.Int("failed", stats.FinishesFailed))
}
