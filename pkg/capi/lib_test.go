package main

import (
	"encoding/json"
	"math"
	"path/filepath"
	"testing"
)

const startID = "4HPwATDgc/ABMA"

func TestLegalPlays(t *testing.T) {
	out, err := legalPlays(startID+":cIkqAAAAAAAA", 0, 3, 1)
	if err != nil {
		t.Fatalf("legalPlays: %v", err)
	}
	if out.MaxMoves != 2 || len(out.Plays) < 2 {
		t.Fatalf("MaxMoves = %d with %d plays", out.MaxMoves, len(out.Plays))
	}
	best := out.Plays[out.Best].Notation
	if best != "8/5 6/5" && best != "6/5 8/5" {
		t.Errorf("best = %q, want the 5 point made", best)
	}
	for _, p := range out.Plays {
		if p.PositionID == "" || p.PositionID == startID {
			t.Errorf("play %s has position %q", p.Notation, p.PositionID)
		}
	}
}

func TestLegalPlaysErrors(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		turn, d, e int
	}{
		{"bad id", "!!", 0, 3, 1},
		{"bad turn", startID, 2, 3, 1},
		{"bad dice", startID, 0, 7, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := legalPlays(tc.id, tc.turn, tc.d, tc.e)
			s, merr := marshal(nil, err)
			if err == nil || merr == nil {
				t.Fatal("expected an error")
			}
			var body map[string]string
			if json.Unmarshal([]byte(s), &body) != nil || body["error"] == "" {
				t.Errorf("error JSON = %s", s)
			}
		})
	}
}

func TestPipCounts(t *testing.T) {
	out, err := pipCounts(startID)
	if err != nil {
		t.Fatal(err)
	}
	if out.White != 167 || out.Black != 167 || out.PositionID != startID {
		t.Errorf("pipCounts = %+v", out)
	}
}

func TestLoadTable(t *testing.T) {
	defer loadTable("")

	if got := matchEquity(1, 1); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("matchEquity(1, 1) = %v, want 0.5", got)
	}
	if err := loadTable(filepath.Join(t.TempDir(), "missing.xml")); err == nil {
		t.Error("loadTable(missing) succeeded")
	}
	if err := loadTable(""); err != nil {
		t.Errorf("loadTable(\"\") = %v", err)
	}
}
