package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/match"
)

// Difficulty is the strength of the computer opponent.
type Difficulty int

const (
	Beginner Difficulty = iota
	Intermediate
	Expert
)

// Ply returns the evaluator search depth for the difficulty.
func (d Difficulty) Ply() int {
	switch d {
	case Intermediate:
		return 1
	case Expert:
		return 2
	}
	return 0
}

func (d Difficulty) String() string {
	switch d {
	case Beginner:
		return "beginner"
	case Intermediate:
		return "intermediate"
	case Expert:
		return "expert"
	}
	return fmt.Sprintf("difficulty(%d)", int(d))
}

// ParseDifficulty is the inverse of String.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(s) {
	case "beginner", "easy", "0":
		return Beginner, nil
	case "intermediate", "medium", "1":
		return Intermediate, nil
	case "expert", "hard", "2":
		return Expert, nil
	}
	return Beginner, fmt.Errorf("unknown difficulty %q", s)
}

func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Difficulty) UnmarshalText(text []byte) error {
	v, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Config holds the settings of one engine. It is fixed for the life of the
// engine.
type Config struct {
	Match      match.Config  `json:"match"`
	Difficulty Difficulty    `json:"difficulty"`
	Computer   engine.Player `json:"computer"` // NoPlayer for two humans
	Players    [2]string     `json:"players"`  // names for export

	// CoachThreshold is the equity loss above which a human play is sent to
	// the coach.
	CoachThreshold float64 `json:"coach_threshold"`

	// AutoRoll rolls for the next player when they have no cube decision.
	AutoRoll bool `json:"auto_roll"`

	// Summaries requests a coach review of every finished game.
	Summaries bool `json:"summaries"`

	// StrictInvariants panics on a board that breaks the checker count.
	StrictInvariants bool `json:"strict_invariants"`

	// AnnotateTimeout bounds each background evaluation or coaching call.
	AnnotateTimeout time.Duration `json:"annotate_timeout"`

	Heuristic engine.HeuristicWeights `json:"heuristic"`
}

// DefaultConfig returns a 7 point match against an intermediate computer
// playing Black.
func DefaultConfig() Config {
	return Config{
		Match:           match.Config{Length: 7},
		Difficulty:      Intermediate,
		Computer:        engine.Black,
		Players:         [2]string{"white", "black"},
		CoachThreshold:  engine.SkillThresholds[1],
		AutoRoll:        true,
		Summaries:       true,
		AnnotateTimeout: 60 * time.Second,
		Heuristic:       engine.DefaultHeuristicWeights(),
	}
}

// Validate checks the match rules and the player settings.
func (c Config) Validate() error {
	if err := c.Match.Validate(); err != nil {
		return err
	}
	switch c.Computer {
	case engine.NoPlayer, engine.White, engine.Black:
	default:
		return fmt.Errorf("invalid computer side %d", c.Computer)
	}
	if c.CoachThreshold < 0 {
		return fmt.Errorf("coach threshold %v is negative", c.CoachThreshold)
	}
	return nil
}
