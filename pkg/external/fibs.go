package external

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/bgtutor/pkg/engine"
)

// FIBSBoard represents a parsed FIBS board string.
// See: http://www.fibs.com/fibs_interface.html#board_state
type FIBSBoard struct {
	Player1      string  // Your name
	Player2      string  // Opponent's name
	MatchLength  int     // Match length (0 = unlimited)
	Score1       int     // Your score
	Score2       int     // Opponent's score
	Board        [26]int // Signed by colour; 0 and 25 hold the bars
	Turn         int     // Colour on roll
	Dice         [2]int  // Your dice (0,0 if not rolled)
	OppDice      [2]int  // Opponent's dice
	Cube         int     // Cube value
	CanDouble    bool    // Can you double?
	OppCanDouble bool    // Can opponent double?
	Doubled      bool    // Has opponent doubled?
	Color        int     // Your colour (1 or -1)
	Direction    int     // Your direction (1 or -1)
}

// ParseFIBSBoard parses a FIBS board string.
// Format: board:player1:player2:matchlen:score1:score2:board[26]:turn:dice[4]:cube:...
func ParseFIBSBoard(s string) (*FIBSBoard, error) {
	s = strings.TrimPrefix(s, "board:")

	parts := strings.Split(s, ":")
	if len(parts) < 32 {
		return nil, fmt.Errorf("invalid FIBS board: expected at least 32 fields, got %d", len(parts))
	}

	fb := &FIBSBoard{Color: 1, Direction: -1, Cube: 1}
	fb.Player1 = parts[0]
	fb.Player2 = parts[1]

	ints := []struct {
		field int
		dst   *int
	}{
		{2, &fb.MatchLength}, {3, &fb.Score1}, {4, &fb.Score2}, {31, &fb.Turn},
		{32, &fb.Dice[0]}, {33, &fb.Dice[1]}, {34, &fb.OppDice[0]}, {35, &fb.OppDice[1]},
		{36, &fb.Cube}, {40, &fb.Color}, {41, &fb.Direction},
	}
	for _, f := range ints {
		if f.field >= len(parts) {
			continue
		}
		v, err := strconv.Atoi(parts[f.field])
		if err != nil {
			return nil, fmt.Errorf("invalid FIBS board: field %d: %w", f.field, err)
		}
		*f.dst = v
	}
	for i := 0; i < 26; i++ {
		v, err := strconv.Atoi(parts[5+i])
		if err != nil {
			return nil, fmt.Errorf("invalid FIBS board: point %d: %w", i, err)
		}
		fb.Board[i] = v
	}

	flags := []struct {
		field int
		dst   *bool
	}{{37, &fb.CanDouble}, {38, &fb.OppCanDouble}, {39, &fb.Doubled}}
	for _, f := range flags {
		if f.field < len(parts) {
			*f.dst = parts[f.field] == "1"
		}
	}

	if fb.Color != 1 && fb.Color != -1 {
		return nil, fmt.Errorf("invalid FIBS board: colour %d", fb.Color)
	}
	if fb.Direction != 1 && fb.Direction != -1 {
		return nil, fmt.Errorf("invalid FIBS board: direction %d", fb.Direction)
	}
	return fb, nil
}

// index maps an engine point to the FIBS board index. You play White:
// moving from 24 down to 1 is FIBS direction -1.
func (fb *FIBSBoard) index(point int) int {
	if fb.Direction == -1 {
		return point
	}
	return 25 - point
}

// ToBoard converts the FIBS board to an engine board with you as White and
// White on roll. Checkers missing from the board are borne off.
func (fb *FIBSBoard) ToBoard() (engine.Board, error) {
	var b engine.Board
	for p := 1; p <= 24; p++ {
		v := fb.Board[fb.index(p)] * fb.Color
		if v < -15 || v > 15 {
			return b, fmt.Errorf("invalid FIBS board: %d checkers on point %d", v, p)
		}
		b.Points[p] = int8(v)
	}
	// Your bar is where you enter from.
	b.Bar[engine.White] = int8(abs(fb.Board[fb.index(25)]))
	b.Bar[engine.Black] = int8(abs(fb.Board[fb.index(0)]))
	for _, p := range []engine.Player{engine.White, engine.Black} {
		off := 15 - b.CheckerCount(p)
		if off < 0 {
			return b, fmt.Errorf("invalid FIBS board: %s has more than 15 checkers", p)
		}
		b.Off[p] = int8(off)
	}

	b.Cube = engine.CenteredCube()
	if fb.Cube > 1 {
		b.Cube.Value = fb.Cube
		switch {
		case fb.CanDouble && !fb.OppCanDouble:
			b.Cube.Owner = engine.White
		case fb.OppCanDouble && !fb.CanDouble:
			b.Cube.Owner = engine.Black
		}
	}
	b.Turn = engine.White
	return b, b.Validate()
}

// FormatPlay formats a White play in FIBS point numbers.
func (fb *FIBSBoard) FormatPlay(play engine.Play) string {
	parts := make([]string, len(play))
	for i, m := range play {
		from := "bar"
		if m.From != engine.White.BarPoint() {
			from = strconv.Itoa(fb.index(m.From))
		}
		to := "off"
		if !m.IsBearOff {
			to = strconv.Itoa(fb.index(m.To))
		}
		parts[i] = from + "/" + to
	}
	return strings.Join(parts, " ")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
