// Package evaluator is a client for the position evaluation service, a
// wrapper around GNU Backgammon that ranks the plays of a position and gives
// cube advice.
package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/bgtutor/pkg/engine"
)

// ErrUnavailable wraps every transport failure, non-2xx status and
// malformed body. Callers fall back to local play when they see it.
var ErrUnavailable = errors.New("evaluator unavailable")

// ErrInvalidPosition is returned for boards that break the checker count
// invariant. They are never sent.
var ErrInvalidPosition = errors.New("invalid position")

// Config configures the client.
type Config struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Ply     int           `mapstructure:"ply"`
}

// DefaultConfig returns the settings of a local evaluation server.
func DefaultConfig() Config {
	return Config{
		URL:     "http://localhost:8000",
		Timeout: 30 * time.Second,
		Ply:     2,
	}
}

// Client calls the evaluation service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// New creates a client. A nil logger discards logs.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     logger.Named("evaluator"),
	}
}

// RankedPlay is one play of an evaluation with its equity for the mover.
type RankedPlay struct {
	Rank             int         `json:"rank"`
	Play             engine.Play `json:"play"`
	Notation         string      `json:"notation"`
	Equity           float64     `json:"equity"`
	WinProbability   float64     `json:"win_probability"`
	EquityDifference float64     `json:"equity_difference"`
}

// Evaluation ranks the plays of a position for one roll.
type Evaluation struct {
	Best       engine.Play  `json:"best"`
	BestEquity float64      `json:"best_equity"`
	Plays      []RankedPlay `json:"plays"`
}

// CubeAction is the service's cube recommendation.
type CubeAction string

const (
	NoDouble   CubeAction = "no_double"
	DoubleTake CubeAction = "double_take"
	DoublePass CubeAction = "double_pass"
)

// CubeDecision is the cube advice for the player on roll.
type CubeDecision struct {
	Recommendation   CubeAction `json:"recommendation"`
	NoDoubleEquity   float64    `json:"no_double_equity"`
	DoubleTakeEquity float64    `json:"double_take_equity"`
	DoublePassEquity float64    `json:"double_pass_equity"`
	ProperCubeAction string     `json:"proper_cube_action"`
	WinProbability   float64    `json:"win_probability"`
	GammonThreat     float64    `json:"gammon_threat"`
}

// ShouldDouble reports whether the advice is to double.
func (d *CubeDecision) ShouldDouble() bool {
	return d.Recommendation == DoubleTake || d.Recommendation == DoublePass
}

// ShouldTake reports whether the opponent should accept the double.
func (d *CubeDecision) ShouldTake() bool {
	return d.Recommendation != DoublePass
}

// Health is the liveness report of the service.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"gnubg_version"`
	Ready   bool   `json:"engine_ready"`
}

// Evaluate ranks the plays of b.Turn for dice, searching ply plies.
func (c *Client) Evaluate(ctx context.Context, b engine.Board, dice engine.Dice, ply int) (*Evaluation, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	req := newPositionRequest(&b, ply)
	req.Dice = []int{dice[0], dice[1]}

	var resp evaluateResponse
	if err := c.post(ctx, "/evaluate", req, &resp); err != nil {
		return nil, err
	}
	return resp.toEvaluation(b.Turn), nil
}

// Cube asks for the cube decision of b.Turn before rolling.
func (c *Client) Cube(ctx context.Context, b engine.Board, ply int) (*CubeDecision, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	req := newPositionRequest(&b, ply)
	req.CubeValue = b.Cube.Value
	req.CubeOwner = b.Cube.Owner.String()
	if b.Cube.Owner == engine.NoPlayer {
		req.CubeOwner = "centered"
	}

	var resp CubeDecision
	if err := c.post(ctx, "/cube", req, &resp); err != nil {
		return nil, err
	}
	switch resp.Recommendation {
	case NoDouble, DoubleTake, DoublePass:
	default:
		return nil, fmt.Errorf("%w: unknown recommendation %q", ErrUnavailable, resp.Recommendation)
	}
	return &resp, nil
}

// Health checks that the service is up.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var h Health
	if err := c.do(httpReq, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, out)
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("path", req.URL.Path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("bad status",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", msg))
		return fmt.Errorf("%w: %s returned %d", ErrUnavailable, req.URL.Path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.Warn("malformed response", zap.String("path", req.URL.Path), zap.Error(err))
		return fmt.Errorf("%w: decoding %s: %v", ErrUnavailable, req.URL.Path, err)
	}
	c.log.Debug("request done", zap.String("path", req.URL.Path), zap.Duration("elapsed", time.Since(start)))
	return nil
}
