package store

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// openTestPostgres connects to BGTUTOR_TEST_POSTGRES or skips the test.
func openTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("BGTUTOR_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("BGTUTOR_TEST_POSTGRES not set")
	}
	p, err := OpenPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestSeedStatsSQL(t *testing.T) {
	sql, args, err := seedStats("expert")
	if err != nil {
		t.Fatal(err)
	}
	want := "INSERT INTO difficulty_stats (difficulty,rating) VALUES ($1,$2) ON CONFLICT (difficulty) DO NOTHING"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 2 || args[0] != "expert" || args[1] != InitialRating*100 {
		t.Errorf("args = %v", args)
	}
}

func TestUpdateStatsSQL(t *testing.T) {
	sql, args, err := updateStats(Stats{Difficulty: "expert", Games: 3, Wins: 2, Rating: 1512.345})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(sql, "UPDATE difficulty_stats SET ") || !strings.HasSuffix(sql, "WHERE difficulty = $9") {
		t.Errorf("sql = %q", sql)
	}
	if len(args) != 9 || args[8] != "expert" {
		t.Errorf("args = %v", args)
	}
	for _, a := range args {
		if a == 151234 {
			return
		}
	}
	t.Errorf("rating not stored in hundredths: args = %v", args)
}

func TestPostgresStats(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	difficulty := "test-" + uuid.NewString()

	empty, err := p.Stats(ctx, difficulty)
	if err != nil {
		t.Fatal(err)
	}
	if empty.Games != 0 || empty.Rating != InitialRating {
		t.Errorf("empty stats = %+v", empty)
	}

	won := outcome(uuid.NewString(), difficulty, true, "gammon", true)
	if err := p.RecordOutcome(ctx, won); err != nil {
		t.Fatal(err)
	}
	// Recording the same game twice counts it once.
	if err := p.RecordOutcome(ctx, won); err != nil {
		t.Fatal(err)
	}

	s, err := p.Stats(ctx, difficulty)
	if err != nil {
		t.Fatal(err)
	}
	if s.Games != 1 || s.Wins != 1 || s.Gammons != 1 || s.Matches != 1 || s.MatchWins != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.Rating <= InitialRating {
		t.Errorf("rating after a win = %v", s.Rating)
	}
}

func TestPostgresConcurrentFirstOutcomes(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	difficulty := "test-" + uuid.NewString()

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		won := i%2 == 0
		g.Go(func() error {
			return p.RecordOutcome(ctx, outcome(uuid.NewString(), difficulty, won, "single", false))
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	s, err := p.Stats(ctx, difficulty)
	if err != nil {
		t.Fatal(err)
	}
	if s.Games != 8 || s.Wins != 4 || s.Losses != 4 {
		t.Errorf("stats = %+v, want 8 games split 4-4", s)
	}
}
