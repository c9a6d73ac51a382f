package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"canvas/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// HTTP client for the remote shape store
// ─────────────────────────────────────────────────────────────

const (
	shapesPath = "/api/v0/shapes"
	pathsPath  = "/api/v0/multipage-paths"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// ListAttempts bounds the retries of idempotent reads on transient errors.
	ListAttempts int
	ListDelay    time.Duration

	Breaker BreakerConfig
}

// BreakerConfig mirrors gobreaker.Settings with a failure-ratio trip rule.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Timeout:      10 * time.Second,
		ListAttempts: 3,
		ListDelay:    200 * time.Millisecond,
		Breaker: BreakerConfig{
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          60 * time.Second,
			FailureThreshold: 0.8,
			MinRequests:      5,
		},
	}
}

// Client talks to the shape and path endpoints. It implements
// optimistic.Remote.
type Client struct {
	base string
	http *http.Client
	cb   *gobreaker.CircuitBreaker
	cfg  Config
	log  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		base: strings.TrimSuffix(cfg.BaseURL, "/"),
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
		log:  logger,
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "shape-store",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.Breaker.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.Breaker.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// 4xx answers are the store working as intended
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Code < 500
			}
			return err == nil
		},
	})
	return c
}

// ── Shapes ─────────────────────────────────────────────────

func (c *Client) ListShapes(ctx context.Context) ([]domain.Shape, error) {
	var out struct {
		Shapes []domain.Shape `json:"shapes"`
	}
	err := Retry(ctx, c.cfg.ListAttempts, c.cfg.ListDelay, func() error {
		_, err := c.do(ctx, http.MethodGet, shapesPath, nil, &out)
		return retryable(err)
	})
	if err != nil {
		return nil, fmt.Errorf("list shapes: %w", err)
	}
	return out.Shapes, nil
}

func (c *Client) CreateShape(ctx context.Context, s domain.Shape) (domain.Shape, error) {
	var out struct {
		Shape domain.Shape `json:"shape"`
	}
	if _, err := c.do(ctx, http.MethodPost, shapesPath+"/create", s, &out); err != nil {
		return domain.Shape{}, fmt.Errorf("create shape %s: %w", s.ID, err)
	}
	return out.Shape, nil
}

func (c *Client) UpdateShape(ctx context.Context, id string, f domain.Fields) error {
	if _, err := c.do(ctx, http.MethodPost, shapesPath+"/"+url.PathEscape(id)+"/update", f, nil); err != nil {
		return fmt.Errorf("update shape %s: %w", id, err)
	}
	return nil
}

// BatchUpdate returns the per-item results on 207 and nil items on 200.
func (c *Client) BatchUpdate(ctx context.Context, updates []domain.ShapeUpdate) ([]domain.BatchItemResult, error) {
	var raw json.RawMessage
	code, err := c.do(ctx, http.MethodPost, shapesPath+"/batch-update", updates, &raw)
	if err != nil {
		return nil, fmt.Errorf("batch update: %w", err)
	}
	if code != http.StatusMultiStatus {
		// the body of a plain 2xx is not part of the contract
		return nil, nil
	}
	var items []domain.BatchItemResult
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("batch update: decode results: %w", err)
	}
	return items, nil
}

func (c *Client) DeleteShape(ctx context.Context, id string) error {
	if _, err := c.do(ctx, http.MethodPost, shapesPath+"/"+url.PathEscape(id)+"/delete", nil, nil); err != nil {
		return fmt.Errorf("delete shape %s: %w", id, err)
	}
	return nil
}

func (c *Client) BatchDelete(ctx context.Context, ids []string) error {
	body := map[string][]string{"shapeIds": ids}
	if _, err := c.do(ctx, http.MethodPost, shapesPath+"/batch-delete", body, nil); err != nil {
		return fmt.Errorf("batch delete: %w", err)
	}
	return nil
}

func (c *Client) CopyShapes(ctx context.Context, shapes []domain.Shape) ([]domain.Shape, error) {
	var out struct {
		Shapes []domain.Shape `json:"shapes"`
	}
	body := map[string][]domain.Shape{"shapes": shapes}
	if _, err := c.do(ctx, http.MethodPost, shapesPath+"/copy", body, &out); err != nil {
		return nil, fmt.Errorf("copy shapes: %w", err)
	}
	return out.Shapes, nil
}

// ── Multipage paths ────────────────────────────────────────

func (c *Client) ListPaths(ctx context.Context) ([]domain.Path, error) {
	var out struct {
		Paths []domain.Path `json:"paths"`
	}
	err := Retry(ctx, c.cfg.ListAttempts, c.cfg.ListDelay, func() error {
		_, err := c.do(ctx, http.MethodGet, pathsPath, nil, &out)
		return retryable(err)
	})
	if err != nil {
		return nil, fmt.Errorf("list paths: %w", err)
	}
	return out.Paths, nil
}

func (c *Client) GetPath(ctx context.Context, id string) (domain.Path, error) {
	var out struct {
		Path domain.Path `json:"multipagePath"`
	}
	if _, err := c.do(ctx, http.MethodGet, pathsPath+"/"+url.PathEscape(id), nil, &out); err != nil {
		return domain.Path{}, fmt.Errorf("get path %s: %w", id, err)
	}
	return out.Path, nil
}

func (c *Client) CreatePath(ctx context.Context, p domain.Path) (domain.Path, error) {
	var out struct {
		Path domain.Path `json:"multipagePath"`
	}
	if _, err := c.do(ctx, http.MethodPost, pathsPath+"/create", p, &out); err != nil {
		return domain.Path{}, fmt.Errorf("create path: %w", err)
	}
	return out.Path, nil
}

func (c *Client) UpdatePath(ctx context.Context, id string, u domain.PathUpdate) error {
	if _, err := c.do(ctx, http.MethodPost, pathsPath+"/"+url.PathEscape(id)+"/update", u, nil); err != nil {
		return fmt.Errorf("update path %s: %w", id, err)
	}
	return nil
}

func (c *Client) DeletePath(ctx context.Context, id string) error {
	if _, err := c.do(ctx, http.MethodPost, pathsPath+"/"+url.PathEscape(id)+"/delete", nil, nil); err != nil {
		return fmt.Errorf("delete path %s: %w", id, err)
	}
	return nil
}

// ── Transport ──────────────────────────────────────────────

// do sends one JSON request through the circuit breaker and decodes a 2xx
// body into out (when out is non-nil). Non-2xx answers become *StatusError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	res, err := c.cb.Execute(func() (any, error) {
		var body io.Reader
		if in != nil {
			data, err := json.Marshal(in)
			if err != nil {
				return 0, fmt.Errorf("encode request: %w", err)
			}
			body = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
		if err != nil {
			return 0, err
		}
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		if err != nil {
			return resp.StatusCode, fmt.Errorf("read response: %w", err)
		}
		c.log.Debug("remote call",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Duration("took", time.Since(start)))

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return resp.StatusCode, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		}
		if out != nil && len(bytes.TrimSpace(data)) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return resp.StatusCode, fmt.Errorf("decode response: %w", err)
			}
		}
		return resp.StatusCode, nil
	})
	code, _ := res.(int)
	return code, err
}
