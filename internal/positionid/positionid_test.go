package positionid

import (
	"errors"
	"testing"

	"github.com/yourusername/bgtutor/pkg/engine"
)

// Known position ID for starting position from gnubg
const startingPositionID = "4HPwATDgc/ABMA"

func TestEncodeStartingPosition(t *testing.T) {
	b := engine.StartingPosition()
	if got := Encode(b); got != startingPositionID {
		t.Errorf("Encode() = %s, want %s", got, startingPositionID)
	}
	b.Turn = engine.Black
	if got := Encode(b); got != startingPositionID {
		t.Errorf("Encode() with Black on roll = %s, want %s", got, startingPositionID)
	}
}

func TestDecodeStartingPosition(t *testing.T) {
	b, err := Decode(startingPositionID, engine.White)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if want := engine.StartingPosition(); b != want {
		t.Errorf("Decode mismatch\ngot:  %s\nwant: %s", b, want)
	}
}

func TestRoundTrip(t *testing.T) {
	start := engine.StartingPosition()
	boards := []engine.Board{start}

	// A few positions reached by play, with hits and bear-offs.
	b := start
	for _, dice := range []engine.Dice{{3, 1}, {6, 4}, {5, 5}, {2, 1}} {
		plays := engine.GenerateMoves(b, dice)
		b = plays.Results[len(plays.Results)-1]
		b.Turn = b.Turn.Opponent()
		boards = append(boards, b)
	}

	var bearing engine.Board
	bearing.Points[1] = 3
	bearing.Points[2] = 2
	bearing.Points[24] = -4
	bearing.Bar[engine.Black] = 1
	bearing.Off = [2]int8{10, 10}
	bearing.Cube = engine.CenteredCube()
	bearing.Turn = engine.Black
	boards = append(boards, bearing)

	for i, want := range boards {
		id := Encode(want)
		got, err := Decode(id, want.Turn)
		if err != nil {
			t.Fatalf("board %d: Decode(%s): %v", i, id, err)
		}
		if got.Points != want.Points || got.Bar != want.Bar || got.Off != want.Off {
			t.Errorf("board %d round trip\ngot:  %s\nwant: %s", i, got, want)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"short", "4HPwATDgc"},
		{"bad character", "4HPwATDgc/AB!A"},
		{"too many checkers", "//////////////"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.id, engine.White); !errors.Is(err, ErrInvalidPositionID) {
				t.Errorf("Decode(%q) = %v, want ErrInvalidPositionID", tc.id, err)
			}
		})
	}
}
