// Package store persists what outlives a session: win/loss statistics and
// ratings per difficulty, user preferences and archived game records.
//
// Every concern has an in-memory implementation and a database-backed one
// (Postgres for statistics, Redis for preferences, MongoDB for the archive).
package store

import (
	"context"
	"errors"

	"github.com/jlouis/glicko2"

	"github.com/yourusername/bgtutor/pkg/match"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Stats are the counters for games played against one difficulty.
type Stats struct {
	Difficulty  string  `json:"difficulty"`
	Games       int     `json:"games"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Gammons     int     `json:"gammons"`      // won as gammon or backgammon
	GammonsLost int     `json:"gammons_lost"` // lost as gammon or backgammon
	Matches     int     `json:"matches"`
	MatchWins   int     `json:"match_wins"`
	Rating      float64 `json:"rating"`
}

// StatsStore records finished games and reads the counters back.
type StatsStore interface {
	RecordOutcome(ctx context.Context, o match.Outcome) error
	Stats(ctx context.Context, difficulty string) (Stats, error)
}

// Preferences are a user's session defaults.
type Preferences struct {
	Difficulty     string  `json:"difficulty"`
	Computer       string  `json:"computer"` // "white", "black" or "none"
	MatchLength    int     `json:"match_length"`
	AutoRoll       bool    `json:"auto_roll"`
	CoachThreshold float64 `json:"coach_threshold"`
}

// DefaultPreferences returns the preferences of a new user.
func DefaultPreferences() Preferences {
	return Preferences{
		Difficulty:     "intermediate",
		Computer:       "black",
		MatchLength:    7,
		AutoRoll:       true,
		CoachThreshold: 0.06,
	}
}

// PreferenceStore keeps preferences per user. Unknown users get
// DefaultPreferences.
type PreferenceStore interface {
	Preferences(ctx context.Context, user string) (Preferences, error)
	SavePreferences(ctx context.Context, user string, p Preferences) error
}

// Archive keeps finished game records.
type Archive interface {
	ArchiveGame(ctx context.Context, rec *match.GameRecord) error
	Game(ctx context.Context, id string) (*match.GameRecord, error)
}

// apply adds one outcome to s.
func (s *Stats) apply(o match.Outcome) {
	s.Games++
	gammon := o.Kind == "gammon" || o.Kind == "backgammon"
	if o.Won {
		s.Wins++
		if gammon {
			s.Gammons++
		}
	} else {
		s.Losses++
		if gammon {
			s.GammonsLost++
		}
	}
	if o.MatchOver {
		s.Matches++
		if o.Won {
			s.MatchWins++
		}
	}
	s.Rating = rate(s.Rating, o.Difficulty, o.Won)
}

// InitialRating is the rating of a player with no games.
const InitialRating = 1500

// opponentRatings are the fixed ratings the computer plays at.
var opponentRatings = map[string]float64{
	"beginner":     1200,
	"intermediate": 1500,
	"expert":       1800,
}

type ratingPlayer struct {
	r       float64
	rd      float64
	sigma   float64
	outcome float64
}

func (p ratingPlayer) R() float64 {
	return p.r
}

func (p ratingPlayer) RD() float64 {
	return p.rd
}

func (p ratingPlayer) Sigma() float64 {
	return p.sigma
}

func (p ratingPlayer) SJ() float64 {
	return p.outcome
}

// rate updates a glicko-2 rating after one game against difficulty.
func rate(rating float64, difficulty string, won bool) float64 {
	if rating == 0 {
		rating = InitialRating
	}
	opp, ok := opponentRatings[difficulty]
	if !ok {
		opp = InitialRating
	}
	outcome := 0.0
	if won {
		outcome = 1
	}
	r, _, _ := glicko2.Rank(rating, 50, 0.06, []glicko2.Opponent{ratingPlayer{opp, 30, 0.06, outcome}}, 0.6)
	return r
}
