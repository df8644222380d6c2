package match

import (
	"time"

	"github.com/yourusername/bgtutor/pkg/engine"
)

// GameResult is how a game ended.
type GameResult struct {
	Winner     engine.Player `json:"winner"`
	Multiplier int           `json:"multiplier"` // 1 single, 2 gammon, 3 backgammon
	CubeValue  int           `json:"cube_value"`
	Points     int           `json:"points"`
	Resigned   bool          `json:"resigned"` // cube dropped
}

// Kind names the result: single, gammon, backgammon or drop.
func (r GameResult) Kind() string {
	if r.Resigned {
		return "drop"
	}
	switch r.Multiplier {
	case 2:
		return "gammon"
	case 3:
		return "backgammon"
	}
	return "single"
}

// Outcome is a finished game seen from the human side of a game against the
// computer. It feeds the per-difficulty statistics.
type Outcome struct {
	GameID     string        `json:"game_id"`
	Difficulty string        `json:"difficulty"`
	Human      engine.Player `json:"human"`
	Won        bool          `json:"won"`
	Kind       string        `json:"kind"` // see GameResult.Kind
	Points     int           `json:"points"`
	MatchOver  bool          `json:"match_over"`
	At         time.Time     `json:"at"`
}

// EvalAnnotation is the evaluator's verdict on a played turn.
type EvalAnnotation struct {
	BestPlay     engine.Play      `json:"best_play"`
	BestEquity   float64          `json:"best_equity"`
	PlayedEquity float64          `json:"played_equity"`
	EquityLoss   float64          `json:"equity_loss"`
	Skill        engine.SkillType `json:"skill"`
	Approximate  bool             `json:"approximate,omitempty"` // played equity is a lower bound
}

// Coaching is the coach's explanation of a mistake.
type Coaching struct {
	Explanation string `json:"explanation"`
	Principle   string `json:"principle,omitempty"`
}

// Summary is the coach's post-game review.
type Summary struct {
	Text          string `json:"text"`
	CriticalTurns []int  `json:"critical_turns,omitempty"`
	KeyLesson     string `json:"key_lesson"`
}

// TurnRecord is one completed turn. Eval and Coaching are filled in later,
// if ever, by the annotation workers.
type TurnRecord struct {
	Number     int             `json:"number"`
	Player     engine.Player   `json:"player"`
	Before     engine.Board    `json:"before"`
	After      engine.Board    `json:"after"`
	Dice       engine.Dice     `json:"dice"`
	Play       engine.Play     `json:"play"`
	PositionID string          `json:"position_id"`
	Human      bool            `json:"human"`
	Forced     bool            `json:"forced"` // only one legal play
	Eval       *EvalAnnotation `json:"eval,omitempty"`
	Coaching   *Coaching       `json:"coaching,omitempty"`
}

// ActionType is the kind of a logged game action.
type ActionType int

const (
	ActionMove   ActionType = iota // Roll and the play made with it
	ActionDouble                   // Cube offered
	ActionTake                     // Cube accepted
	ActionDrop                     // Cube declined
	ActionBeaver                   // Cube accepted and redoubled
	ActionWin                      // Game won
)

// Action is one entry of a game's log, in play order.
type Action struct {
	Type   ActionType    `json:"type"`
	Player engine.Player `json:"player"`
	Dice   engine.Dice   `json:"dice,omitempty"`
	Play   engine.Play   `json:"play,omitempty"`
	Value  int           `json:"value,omitempty"` // cube value or points won
}

// GameRecord logs one game of a match.
type GameRecord struct {
	ID       string        `json:"id"`
	Number   int           `json:"number"` // 1-indexed
	Score    [2]int        `json:"score"`  // at the start of the game
	Crawford bool          `json:"crawford"`
	Turns    []*TurnRecord `json:"turns"`
	Actions  []Action      `json:"actions"`
	Result   *GameResult   `json:"result,omitempty"`
	Summary  *Summary      `json:"summary,omitempty"`
}

// NewGameRecord starts the record of game number for the given score.
func NewGameRecord(id string, number int, s *State) *GameRecord {
	return &GameRecord{
		ID:       id,
		Number:   number,
		Score:    s.Score,
		Crawford: s.Crawford,
	}
}

// AddTurn appends a completed turn and logs its play.
func (g *GameRecord) AddTurn(t *TurnRecord) {
	t.Number = len(g.Turns) + 1
	g.Turns = append(g.Turns, t)
	g.Actions = append(g.Actions, Action{
		Type:   ActionMove,
		Player: t.Player,
		Dice:   t.Dice,
		Play:   t.Play,
	})
}

// Turn returns turn number n (1-indexed), or nil.
func (g *GameRecord) Turn(n int) *TurnRecord {
	if n < 1 || n > len(g.Turns) {
		return nil
	}
	return g.Turns[n-1]
}

// AddCubeAction logs a double, take, drop or beaver.
func (g *GameRecord) AddCubeAction(typ ActionType, p engine.Player, value int) {
	g.Actions = append(g.Actions, Action{Type: typ, Player: p, Value: value})
}

// Finish stores the result and logs the win.
func (g *GameRecord) Finish(r GameResult) {
	g.Result = &r
	g.Actions = append(g.Actions, Action{Type: ActionWin, Player: r.Winner, Value: r.Points})
}
