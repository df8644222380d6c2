// Package coach is a client for the coaching service, which explains
// mistakes in plain language, reviews finished games and comments on
// patterns across games.
package coach

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

	"github.com/yourusername/bgtutor/internal/positionid"
	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/match"
)

// ErrUnavailable wraps every transport failure, non-2xx status and
// malformed body. Coaching is optional, so callers skip it on this error.
var ErrUnavailable = errors.New("coach unavailable")

// Config configures the client.
type Config struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Client calls the coaching service over HTTP.
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
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     logger.Named("coach"),
	}
}

// ExplainRequest describes one questionable play.
type ExplainRequest struct {
	Position     engine.Board     `json:"position"`
	PositionID   string           `json:"position_id"`
	Dice         engine.Dice      `json:"dice"`
	Played       string           `json:"played"`
	Best         string           `json:"best"`
	PlayedEquity float64          `json:"played_equity"`
	BestEquity   float64          `json:"best_equity"`
	EquityLoss   float64          `json:"equity_loss"`
	Skill        engine.SkillType `json:"skill"`
}

// NewExplainRequest builds the request for an evaluated turn.
func NewExplainRequest(t *match.TurnRecord) ExplainRequest {
	req := ExplainRequest{
		Position:   t.Before,
		PositionID: t.PositionID,
		Dice:       t.Dice,
		Played:     t.Play.String(),
	}
	if req.PositionID == "" {
		req.PositionID = positionid.Encode(t.Before)
	}
	if t.Eval != nil {
		req.Best = t.Eval.BestPlay.String()
		req.PlayedEquity = t.Eval.PlayedEquity
		req.BestEquity = t.Eval.BestEquity
		req.EquityLoss = t.Eval.EquityLoss
		req.Skill = t.Eval.Skill
	}
	return req
}

// Explain asks why the played move was worse than the best one.
func (c *Client) Explain(ctx context.Context, req ExplainRequest) (*match.Coaching, error) {
	var resp match.Coaching
	if err := c.post(ctx, "/explain", req, &resp); err != nil {
		return nil, err
	}
	if resp.Explanation == "" {
		return nil, fmt.Errorf("%w: empty explanation", ErrUnavailable)
	}
	return &resp, nil
}

// turnSummary is the compact form of a turn sent for post-game review.
type turnSummary struct {
	Number     int              `json:"number"`
	Player     engine.Player    `json:"player"`
	Dice       engine.Dice      `json:"dice"`
	Play       string           `json:"play"`
	PositionID string           `json:"position_id"`
	EquityLoss *float64         `json:"equity_loss,omitempty"`
	Skill      engine.SkillType `json:"skill"`
}

type summaryRequest struct {
	GameID string            `json:"game_id"`
	Result *match.GameResult `json:"result,omitempty"`
	Turns  []turnSummary     `json:"turns"`
}

// Summarize asks for a review of a finished game: the critical turns and the
// key lesson.
func (c *Client) Summarize(ctx context.Context, g *match.GameRecord) (*match.Summary, error) {
	req := summaryRequest{GameID: g.ID, Result: g.Result}
	for _, t := range g.Turns {
		ts := turnSummary{
			Number:     t.Number,
			Player:     t.Player,
			Dice:       t.Dice,
			Play:       t.Play.String(),
			PositionID: t.PositionID,
			Skill:      engine.SkillNone,
		}
		if t.Eval != nil {
			loss := t.Eval.EquityLoss
			ts.EquityLoss = &loss
			ts.Skill = t.Eval.Skill
		}
		req.Turns = append(req.Turns, ts)
	}

	var resp match.Summary
	if err := c.post(ctx, "/summary", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Patterns is the coach's commentary across several games.
type Patterns struct {
	Text  string   `json:"text"`
	Focus []string `json:"focus,omitempty"`
}

// Patterns asks for recurring weaknesses in the given per-game stats.
func (c *Client) Patterns(ctx context.Context, stats []GameStats) (*Patterns, error) {
	var resp Patterns
	if err := c.post(ctx, "/patterns", map[string]any{"games": stats}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("bad status", zap.String("path", path), zap.Int("status", resp.StatusCode), zap.ByteString("body", msg))
		return fmt.Errorf("%w: %s returned %d", ErrUnavailable, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrUnavailable, path, err)
	}
	return nil
}
