// Package match keeps the score of a backgammon match and the records of the
// games played in it. Played games export to the Jellyfish .mat format.
package match

import (
	"fmt"

	"github.com/yourusername/bgtutor/internal/met"
	"github.com/yourusername/bgtutor/pkg/engine"
)

// Config describes the kind of match. It does not change once play starts.
type Config struct {
	Length int  `json:"length" mapstructure:"length"` // 0 = money game
	Jacoby bool `json:"jacoby" mapstructure:"jacoby"` // money only: gammons need a turned cube
	Beaver bool `json:"beaver" mapstructure:"beaver"` // money only: taker may redouble at once
}

// IsMoney reports whether this is an unlimited money session.
func (c Config) IsMoney() bool {
	return c.Length <= 0
}

// Validate rejects negative lengths and match-only rules in money play.
func (c Config) Validate() error {
	if c.Length < 0 {
		return fmt.Errorf("match length %d is negative", c.Length)
	}
	if !c.IsMoney() && (c.Jacoby || c.Beaver) {
		return fmt.Errorf("jacoby and beaver apply to money games only")
	}
	return nil
}

// State is the running score of a match.
type State struct {
	Config       Config `json:"config"`
	Score        [2]int `json:"score"`
	Game         int    `json:"game"` // games completed
	Crawford     bool   `json:"crawford"`
	PostCrawford bool   `json:"post_crawford"`
}

// NewState starts a match at 0-0.
func NewState(cfg Config) *State {
	return &State{Config: cfg}
}

// Points returns what a game won with multiplier at cubeValue is worth.
// In money play with the Jacoby rule, gammons count only once the cube has
// been turned.
func (s *State) Points(multiplier, cubeValue int) int {
	if s.Config.IsMoney() && s.Config.Jacoby && cubeValue <= 1 {
		multiplier = 1
	}
	return multiplier * cubeValue
}

// RecordGameResult adds the points of a finished game to the winner's score,
// advances the game counter and updates the Crawford flags. It returns the
// points awarded.
func (s *State) RecordGameResult(winner engine.Player, multiplier, cubeValue int) int {
	points := s.Points(multiplier, cubeValue)
	s.Score[winner] += points
	s.Game++
	s.updateCrawford()
	return points
}

// updateCrawford runs after every game. The game following the Crawford game
// is post-Crawford, and Crawford never triggers again.
func (s *State) updateCrawford() {
	if s.Config.IsMoney() {
		return
	}
	if s.Crawford {
		s.Crawford = false
		s.PostCrawford = true
		return
	}
	if s.PostCrawford {
		return
	}
	for _, score := range s.Score {
		if score == s.Config.Length-1 {
			s.Crawford = true
			return
		}
	}
}

// CubeAllowed reports whether doubling is permitted in the current game.
func (s *State) CubeAllowed() bool {
	return !s.Crawford
}

// Away returns how many points p still needs. It is 0 in money play.
func (s *State) Away(p engine.Player) int {
	if s.Config.IsMoney() {
		return 0
	}
	away := s.Config.Length - s.Score[p]
	if away < 0 {
		return 0
	}
	return away
}

// IsOver reports whether a player has reached the match length. Money
// sessions never end.
func (s *State) IsOver() bool {
	return s.Winner() != engine.NoPlayer
}

// Winner returns the match winner, or NoPlayer while the match runs.
func (s *State) Winner() engine.Player {
	if s.Config.IsMoney() {
		return engine.NoPlayer
	}
	for _, p := range []engine.Player{engine.White, engine.Black} {
		if s.Score[p] >= s.Config.Length {
			return p
		}
	}
	return engine.NoPlayer
}

// Equity returns White's match winning chance from table. Money sessions
// report 0.5.
func (s *State) Equity(t *met.Table) float64 {
	if s.Config.IsMoney() {
		return 0.5
	}
	return t.Equity(s.Away(engine.White), s.Away(engine.Black))
}
