package store

import (
	"context"
	"errors"
	"testing"

	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/match"
)

func outcome(id, difficulty string, won bool, kind string, matchOver bool) match.Outcome {
	return match.Outcome{
		GameID:     id,
		Difficulty: difficulty,
		Human:      engine.White,
		Won:        won,
		Kind:       kind,
		Points:     1,
		MatchOver:  matchOver,
	}
}

func TestMemoryStats(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	results := []match.Outcome{
		outcome("g1", "expert", true, "single", false),
		outcome("g2", "expert", false, "gammon", false),
		outcome("g3", "expert", true, "backgammon", true),
		outcome("g4", "beginner", false, "drop", false),
	}
	for _, o := range results {
		if err := m.RecordOutcome(ctx, o); err != nil {
			t.Fatal(err)
		}
	}

	s, err := m.Stats(ctx, "expert")
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{Difficulty: "expert", Games: 3, Wins: 2, Losses: 1, Gammons: 1, GammonsLost: 1, Matches: 1, MatchWins: 1}
	s.Rating, want.Rating = 0, 0
	if s != want {
		t.Errorf("expert stats = %+v, want %+v", s, want)
	}

	b, _ := m.Stats(ctx, "beginner")
	if b.Games != 1 || b.Losses != 1 || b.GammonsLost != 0 {
		t.Errorf("beginner stats = %+v", b)
	}

	empty, _ := m.Stats(ctx, "intermediate")
	if empty.Games != 0 || empty.Rating != InitialRating {
		t.Errorf("empty stats = %+v", empty)
	}
}

func TestRating(t *testing.T) {
	won := rate(InitialRating, "expert", true)
	lost := rate(InitialRating, "expert", false)
	if won <= InitialRating {
		t.Errorf("win against expert: rating %v, want above %v", won, InitialRating)
	}
	if lost >= InitialRating {
		t.Errorf("loss against expert: rating %v, want below %v", lost, InitialRating)
	}

	// Beating a weaker opponent is worth less than beating a stronger one.
	easy := rate(InitialRating, "beginner", true) - InitialRating
	hard := won - InitialRating
	if easy >= hard {
		t.Errorf("beginner win gained %v, expert win gained %v", easy, hard)
	}

	if got := rate(0, "expert", true); got != won {
		t.Errorf("zero rating should start at %v: got %v, want %v", InitialRating, got, won)
	}
}

func TestMemoryPreferences(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	p, err := m.Preferences(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if p != DefaultPreferences() {
		t.Errorf("new user preferences = %+v", p)
	}

	p.Difficulty = "expert"
	p.MatchLength = 5
	if err := m.SavePreferences(ctx, "alice", p); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Preferences(ctx, "alice")
	if got != p {
		t.Errorf("preferences = %+v, want %+v", got, p)
	}
	if other, _ := m.Preferences(ctx, "bob"); other != DefaultPreferences() {
		t.Errorf("preferences leaked to another user: %+v", other)
	}
}

func TestMemoryArchive(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Game(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Game(missing) error = %v, want ErrNotFound", err)
	}

	rec := match.NewGameRecord("g1", 1, match.NewState(match.Config{Length: 3}))
	rec.Finish(match.GameResult{Winner: engine.White, Multiplier: 1, CubeValue: 1, Points: 1})
	if err := m.ArchiveGame(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, err := m.Game(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Result == nil || got.Result.Winner != engine.White {
		t.Errorf("archived result = %+v", got.Result)
	}
}
