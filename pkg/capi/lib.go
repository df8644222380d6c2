package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/yourusername/bgtutor/internal/met"
	"github.com/yourusername/bgtutor/internal/positionid"
	"github.com/yourusername/bgtutor/pkg/engine"
)

const version = "0.2.0"

var (
	table      = met.Default()
	tableMutex sync.RWMutex
	lastError  string
	errorMutex sync.Mutex
)

// setError stores an error message for later retrieval.
func setError(err error) {
	errorMutex.Lock()
	defer errorMutex.Unlock()
	if err != nil {
		lastError = err.Error()
	} else {
		lastError = ""
	}
}

func getError() string {
	errorMutex.Lock()
	defer errorMutex.Unlock()
	return lastError
}

// loadTable replaces the match equity table. An empty file restores the
// built-in table.
func loadTable(file string) error {
	t := met.Default()
	if file != "" {
		var err error
		if t, err = met.LoadXML(file); err != nil {
			return err
		}
	}
	tableMutex.Lock()
	table = t
	tableMutex.Unlock()
	return nil
}

func matchEquity(awayWhite, awayBlack int) float64 {
	tableMutex.RLock()
	defer tableMutex.RUnlock()
	return table.Equity(awayWhite, awayBlack)
}

// parsePosition decodes a position ID with turn on roll (0 white, 1 black).
func parsePosition(posStr string, turn int) (engine.Board, error) {
	// Handle gnubg format "positionID:matchID" - we only need the position part
	if idx := strings.Index(posStr, ":"); idx >= 0 {
		posStr = posStr[:idx]
	}
	if turn != int(engine.White) && turn != int(engine.Black) {
		return engine.Board{}, fmt.Errorf("invalid turn %d", turn)
	}
	return positionid.Decode(posStr, engine.Player(turn))
}

type playJSON struct {
	Play       engine.Play `json:"play"`
	Notation   string      `json:"notation"`
	PositionID string      `json:"position_id"`
	Score      float64     `json:"score"`
}

type playsJSON struct {
	Dice     engine.Dice `json:"dice"`
	MaxMoves int         `json:"max_moves"`
	Plays    []playJSON  `json:"plays"`
	Best     int         `json:"best"` // index into Plays, -1 when forced to pass
}

// legalPlays lists the plays for a roll scored by the default heuristic.
func legalPlays(posID string, turn, die1, die2 int) (*playsJSON, error) {
	b, err := parsePosition(posID, turn)
	if err != nil {
		return nil, err
	}
	dice := engine.Dice{die1, die2}
	if !dice.Valid() {
		return nil, fmt.Errorf("invalid dice %d-%d", die1, die2)
	}

	list := engine.GenerateMoves(b, dice)
	w := engine.DefaultHeuristicWeights()
	out := &playsJSON{Dice: dice, MaxMoves: list.MaxMoves, Plays: []playJSON{}, Best: -1}
	if list.MaxMoves == 0 {
		return out, nil
	}
	for i, p := range list.Plays {
		out.Plays = append(out.Plays, playJSON{
			Play:       p,
			Notation:   p.String(),
			PositionID: positionid.Encode(list.Results[i]),
			Score:      w.ScorePlay(b, p),
		})
	}
	out.Best = w.BestPlay(b, list.Plays)
	return out, nil
}

type pipsJSON struct {
	White      int    `json:"white"`
	Black      int    `json:"black"`
	PositionID string `json:"position_id"`
}

func pipCounts(posID string) (*pipsJSON, error) {
	b, err := parsePosition(posID, int(engine.White))
	if err != nil {
		return nil, err
	}
	return &pipsJSON{
		White:      b.PipCount(engine.White),
		Black:      b.PipCount(engine.Black),
		PositionID: positionid.Encode(b),
	}, nil
}

func marshal(v any, err error) (string, error) {
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error()), err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error": "encoding failed"}`, err
	}
	return string(data), nil
}

// main is required for package main; the library is built with -buildmode=c-shared.
func main() {}
