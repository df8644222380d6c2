package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/match"
)

func TestMongoArchive(t *testing.T) {
	uri := os.Getenv("BGTUTOR_TEST_MONGO")
	if uri == "" {
		t.Skip("BGTUTOR_TEST_MONGO not set")
	}
	ctx := context.Background()
	m, err := OpenMongo(ctx, uri, "bgtutor_test")
	if err != nil {
		t.Fatalf("OpenMongo: %v", err)
	}
	defer m.Close(ctx)

	if _, err := m.Game(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Game(missing) error = %v, want ErrNotFound", err)
	}

	id := uuid.NewString()
	rec := match.NewGameRecord(id, 2, match.NewState(match.Config{Length: 5}))
	if err := m.ArchiveGame(ctx, rec); err != nil {
		t.Fatal(err)
	}
	// Archiving again replaces the unfinished copy.
	rec.Finish(match.GameResult{Winner: engine.Black, Multiplier: 2, CubeValue: 1, Points: 2})
	if err := m.ArchiveGame(ctx, rec); err != nil {
		t.Fatal(err)
	}
	defer m.db.Collection(gamesCollection).DeleteOne(ctx, map[string]string{"_id": id})

	got, err := m.Game(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id || got.Number != 2 {
		t.Errorf("archived game = %s #%d", got.ID, got.Number)
	}
	if got.Result == nil || got.Result.Winner != engine.Black || got.Result.Points != 2 {
		t.Errorf("archived result = %+v", got.Result)
	}
}
