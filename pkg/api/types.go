// Package api serves game sessions over HTTP/JSON, Server-Sent Events and
// WebSocket.
package api

import (
	"github.com/yourusername/bgtutor/internal/pool"
	"github.com/yourusername/bgtutor/pkg/coach"
	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/game"
)

// ============================================================================
// Request Types
// ============================================================================

// PlaysRequest asks for the legal plays of a position. The position is
// either a full board or a gnubg position ID with the side on roll.
type PlaysRequest struct {
	Board    *engine.Board `json:"board,omitempty"`
	Position string        `json:"position,omitempty"` // Position ID (gnubg format)
	Turn     engine.Player `json:"turn"`               // Side on roll for Position
	Dice     engine.Dice   `json:"dice"`
}

// CreateMatchRequest starts a session. Zero fields take the server defaults.
type CreateMatchRequest struct {
	Length     *int             `json:"length,omitempty"`     // 0 = money game
	Jacoby     bool             `json:"jacoby,omitempty"`     // money only
	Beaver     bool             `json:"beaver,omitempty"`     // money only
	Difficulty *game.Difficulty `json:"difficulty,omitempty"` // beginner, intermediate, expert
	Computer   *string          `json:"computer,omitempty"`   // "white", "black" or "none"
	Players    [2]string        `json:"players,omitempty"`    // names for the .mat export
	AutoRoll   *bool            `json:"auto_roll,omitempty"`
	Threshold  *float64         `json:"coach_threshold,omitempty"`
	Seed       uint64           `json:"seed,omitempty"` // 0 = random dice
	User       string           `json:"user,omitempty"` // fills unset fields from saved preferences
}

// IntentRequest is the body of a move intent, and of every intent sent over
// the WebSocket.
type IntentRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
	Die  int `json:"die,omitempty"` // 0 = any die that makes the move
}

// ============================================================================
// Response Types
// ============================================================================

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse reports the server state.
type HealthResponse struct {
	Status        string      `json:"status"`
	Version       string      `json:"version"`
	Sessions      int         `json:"sessions"`
	Pool          *pool.Stats `json:"pool,omitempty"`
	EvaluatorUp   bool        `json:"evaluator_up"`
	EvaluatorInfo string      `json:"evaluator_info,omitempty"`
}

// PlayResponse is one legal play.
type PlayResponse struct {
	Play       engine.Play  `json:"play"`
	Notation   string       `json:"notation"`
	Result     engine.Board `json:"result"`
	PositionID string       `json:"position_id"` // of Result
}

// PlaysResponse lists every legal play for a roll.
type PlaysResponse struct {
	Dice     engine.Dice    `json:"dice"`
	MaxMoves int            `json:"max_moves"`
	Plays    []PlayResponse `json:"plays"`
}

// MatchResponse is a session and its current state.
type MatchResponse struct {
	ID       string        `json:"id"`
	Config   game.Config   `json:"config"`
	Snapshot game.Snapshot `json:"snapshot"`
}

// PatternsResponse is one player's per-game statistics for the match with the
// coach's commentary across them.
type PatternsResponse struct {
	Player   engine.Player     `json:"player"`
	Games    []coach.GameStats `json:"games"`
	Patterns *coach.Patterns   `json:"patterns,omitempty"`
}
