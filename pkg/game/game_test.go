package game

import (
	"errors"
	"reflect"
	"testing"

	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/match"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Computer = engine.NoPlayer
	cfg.AutoRoll = false
	cfg.Summaries = false
	cfg.StrictInvariants = true
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

// position builds a board from point counts, bearing off whatever is not on
// the board or the bar.
func position(points map[int]int8, barWhite, barBlack int8, turn engine.Player) engine.Board {
	var b engine.Board
	var white, black int8
	for pt, n := range points {
		b.Points[pt] = n
		if n > 0 {
			white += n
		} else {
			black -= n
		}
	}
	b.Bar = [2]int8{barWhite, barBlack}
	b.Off = [2]int8{engine.NumCheckers - white - barWhite, engine.NumCheckers - black - barBlack}
	b.Cube = engine.CenteredCube()
	b.Turn = turn
	return b
}

// setPosition puts b on the board with its mover at the roll decision.
func setPosition(t *testing.T, e *Engine, b engine.Board) {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		t.Fatal("setPosition before Start")
	}
	e.board = b
	e.clearTurn()
	e.phase = PhaseRolling
}

func mustInvalid(t *testing.T, err error) {
	t.Helper()
	if !errors.Is(err, ErrInvalidIntent) {
		t.Fatalf("err = %v, want ErrInvalidIntent", err)
	}
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOpeningThreeOne(t *testing.T) {
	e := newTestEngine(t, testConfig(), WithDice(NewFixedDice(engine.Dice{3, 1})))
	mustOK(t, e.Start())

	if s := e.Snapshot(); s.Phase != PhaseOpeningRoll || s.GameNumber != 1 {
		t.Fatalf("after Start: phase %s game %d", s.Phase, s.GameNumber)
	}
	mustOK(t, e.Roll())

	s := e.Snapshot()
	if s.Phase != PhaseMoving || s.Board.Turn != engine.White || s.Dice != (engine.Dice{3, 1}) {
		t.Fatalf("after opening roll: phase %s turn %s dice %v", s.Phase, s.Board.Turn, s.Dice)
	}
	found := false
	for _, p := range s.Plays {
		if len(p) != 2 {
			t.Errorf("play %s uses %d moves, want 2", p, len(p))
		}
		if p.String() == "8/5 6/5" {
			found = true
		}
	}
	if !found {
		t.Error("8/5 6/5 missing from the legal plays")
	}

	mustOK(t, e.Move(engine.CheckerMove{From: 8, To: 5}))
	if e.Snapshot().CanConfirm {
		t.Error("confirm allowed with a die left")
	}
	mustInvalid(t, e.Confirm())
	mustOK(t, e.Move(engine.CheckerMove{From: 6, To: 5}))
	if !e.Snapshot().CanConfirm {
		t.Error("confirm not allowed after both dice")
	}
	mustOK(t, e.Confirm())

	s = e.Snapshot()
	if s.Board.Points[5] != 2 || s.Board.Points[8] != 2 || s.Board.Points[6] != 4 {
		t.Errorf("points 5/8/6 = %d/%d/%d, want 2/2/4", s.Board.Points[5], s.Board.Points[8], s.Board.Points[6])
	}
	if s.Phase != PhaseRolling || s.Board.Turn != engine.Black || !s.CanDouble {
		t.Errorf("after confirm: phase %s turn %s can double %v", s.Phase, s.Board.Turn, s.CanDouble)
	}

	games := e.Games()
	if len(games[0].Turns) != 1 {
		t.Fatalf("turns = %d, want 1", len(games[0].Turns))
	}
	turn := games[0].Turns[0]
	if turn.Play.String() != "8/5 6/5" || turn.PositionID != "4HPwATDgc/ABMA" || !turn.Human {
		t.Errorf("turn record = %+v", turn)
	}
	if turn.Before != engine.StartingPosition() || turn.After.Points[5] != 2 {
		t.Error("turn record boards wrong")
	}
}

func TestOpeningRollTies(t *testing.T) {
	e := newTestEngine(t, testConfig(), WithDice(NewFixedDice(
		engine.Dice{4, 4}, engine.Dice{2, 2}, engine.Dice{2, 5},
	)))
	mustOK(t, e.Start())
	mustOK(t, e.Roll())

	s := e.Snapshot()
	if s.Board.Turn != engine.Black || s.Dice != (engine.Dice{2, 5}) {
		t.Errorf("opening: turn %s dice %v, want black 25", s.Board.Turn, s.Dice)
	}
}

func TestInvalidIntentsLeaveStateUnchanged(t *testing.T) {
	e := newTestEngine(t, testConfig(), WithDice(NewFixedDice(engine.Dice{3, 1})))

	mustInvalid(t, e.Roll())
	mustInvalid(t, e.NextGame())
	mustOK(t, e.Start())
	mustInvalid(t, e.Start())
	mustInvalid(t, e.Confirm())
	mustOK(t, e.Roll())

	before := e.Snapshot()
	intents := map[string]func() error{
		"roll":         e.Roll,
		"undo":         e.Undo,
		"confirm":      e.Confirm,
		"double":       e.OfferDouble,
		"take":         e.Take,
		"drop":         e.Drop,
		"beaver":       e.Beaver,
		"next":         e.NextGame,
		"wrong die":    func() error { return e.Move(engine.CheckerMove{From: 8, To: 5, Die: 1}) },
		"unrolled die": func() error { return e.Move(engine.CheckerMove{From: 6, To: 2, Die: 4}) },
		"no checker":   func() error { return e.Move(engine.CheckerMove{From: 7, To: 4}) },
		"blocked":      func() error { return e.Move(engine.CheckerMove{From: 13, To: 12}) },
		"two dice":     func() error { return e.Move(engine.CheckerMove{From: 24, To: 20}) },
	}
	for name, intent := range intents {
		t.Run(name, func(t *testing.T) {
			mustInvalid(t, intent())
			if after := e.Snapshot(); !reflect.DeepEqual(before, after) {
				t.Errorf("state changed:\nbefore %+v\nafter  %+v", before, after)
			}
		})
	}
}

func TestUndo(t *testing.T) {
	e := newTestEngine(t, testConfig(), WithDice(NewFixedDice(engine.Dice{3, 1})))
	mustOK(t, e.Start())
	mustOK(t, e.Roll())

	mustOK(t, e.Move(engine.CheckerMove{From: 8, To: 5}))
	mustOK(t, e.Move(engine.CheckerMove{From: 6, To: 5}))
	mustOK(t, e.Undo())

	s := e.Snapshot()
	if len(s.Pending) != 1 || !reflect.DeepEqual(s.Remaining, []int{1}) {
		t.Errorf("after one undo: pending %s remaining %v", s.Pending, s.Remaining)
	}
	mustOK(t, e.Undo())
	s = e.Snapshot()
	if s.Board != engine.StartingPosition() || len(s.Remaining) != 2 {
		t.Errorf("after two undos: %s remaining %v", s.Board, s.Remaining)
	}
	mustInvalid(t, e.Undo())

	mustOK(t, e.Move(engine.CheckerMove{From: 24, To: 21}))
	mustOK(t, e.Move(engine.CheckerMove{From: 21, To: 20}))
	mustOK(t, e.Confirm())
	if got := e.Games()[0].Turns[0].Play.String(); got != "24/21 21/20" {
		t.Errorf("recorded play = %s", got)
	}
}

func TestLargerDieRule(t *testing.T) {
	e := newTestEngine(t, testConfig(), WithDice(NewFixedDice(engine.Dice{6, 1})))
	mustOK(t, e.Start())
	setPosition(t, e, position(map[int]int8{13: 1, 6: -2, 24: -13}, 0, 0, engine.White))
	mustOK(t, e.Roll())

	if moves := e.Snapshot().Moves; len(moves) != 1 || moves[0].To != 7 {
		t.Errorf("legal moves = %+v, want only 13/7", moves)
	}
	mustInvalid(t, e.Move(engine.CheckerMove{From: 13, To: 12}))
	mustOK(t, e.Move(engine.CheckerMove{From: 13, To: 7}))
	mustOK(t, e.Confirm())
}

func TestForcedPass(t *testing.T) {
	e := newTestEngine(t, testConfig(), WithDice(NewFixedDice(engine.Dice{3, 1})))
	mustOK(t, e.Start())
	closed := map[int]int8{6: 14, 1: -3, 19: -2, 20: -2, 21: -2, 22: -2, 23: -2, 24: -2}
	setPosition(t, e, position(closed, 1, 0, engine.White))
	mustOK(t, e.Roll())

	s := e.Snapshot()
	if s.Phase != PhaseRolling || s.Board.Turn != engine.Black {
		t.Fatalf("after pass: phase %s turn %s", s.Phase, s.Board.Turn)
	}
	turn := e.Games()[0].Turns[0]
	if len(turn.Play) != 0 || !turn.Forced || turn.Before != turn.After {
		t.Errorf("pass record = %+v", turn)
	}
}

func TestGammonAndCrawford(t *testing.T) {
	cfg := testConfig()
	cfg.Match.Length = 3
	e := newTestEngine(t, cfg, WithDice(NewFixedDice(engine.Dice{2, 1}, engine.Dice{3, 1})))
	mustOK(t, e.Start())
	setPosition(t, e, position(map[int]int8{1: 1, 12: -15}, 0, 0, engine.White))
	mustOK(t, e.Roll())

	mustOK(t, e.Move(engine.CheckerMove{From: 1, To: 0}))
	mustOK(t, e.Confirm())

	s := e.Snapshot()
	if s.Phase != PhaseGameOver {
		t.Fatalf("phase = %s, want game_over", s.Phase)
	}
	if s.Result == nil || s.Result.Multiplier != 2 || s.Result.Points != 2 || s.Result.Winner != engine.White {
		t.Errorf("result = %+v", s.Result)
	}
	if s.Match.Score != [2]int{2, 0} || !s.Match.Crawford {
		t.Errorf("match = %+v, want 2-0 with Crawford", s.Match)
	}

	mustOK(t, e.NextGame())
	mustOK(t, e.Roll())
	mustOK(t, e.Move(engine.CheckerMove{From: 8, To: 5}))
	mustOK(t, e.Move(engine.CheckerMove{From: 6, To: 5}))
	mustOK(t, e.Confirm())

	s = e.Snapshot()
	if s.GameNumber != 2 || s.CanDouble {
		t.Errorf("game %d can double %v, want game 2 without cube", s.GameNumber, s.CanDouble)
	}
	mustInvalid(t, e.OfferDouble())
}

func TestCubeTake(t *testing.T) {
	e := newTestEngine(t, testConfig(), WithDice(NewFixedDice(engine.Dice{3, 1})))
	mustOK(t, e.Start())
	setPosition(t, e, engine.StartingPosition())

	mustOK(t, e.OfferDouble())
	s := e.Snapshot()
	if s.Phase != PhaseCubeOffered || s.OfferedBy != engine.White {
		t.Fatalf("after offer: phase %s offered by %s", s.Phase, s.OfferedBy)
	}
	mustInvalid(t, e.Beaver())
	mustOK(t, e.Take())

	s = e.Snapshot()
	if s.Board.Cube != (engine.CubeState{Value: 2, Owner: engine.Black}) {
		t.Errorf("cube = %+v, want 2 owned by black", s.Board.Cube)
	}
	if s.Phase != PhaseRolling || s.Board.Turn != engine.White || s.CanDouble {
		t.Errorf("after take: phase %s turn %s can double %v", s.Phase, s.Board.Turn, s.CanDouble)
	}
	mustInvalid(t, e.OfferDouble())
}

func TestCubeDrop(t *testing.T) {
	e := newTestEngine(t, testConfig())
	mustOK(t, e.Start())
	b := engine.StartingPosition()
	b.Cube = engine.CubeState{Value: 2, Owner: engine.White}
	setPosition(t, e, b)

	mustOK(t, e.OfferDouble())
	mustOK(t, e.Drop())

	s := e.Snapshot()
	if s.Phase != PhaseGameOver {
		t.Fatalf("phase = %s", s.Phase)
	}
	want := [2]int{2, 0}
	if s.Result.Multiplier != 1 || s.Result.Points != 2 || !s.Result.Resigned || s.Match.Score != want {
		t.Errorf("result %+v score %v", s.Result, s.Match.Score)
	}
	actions := e.Games()[0].Actions
	if len(actions) != 3 {
		t.Errorf("actions = %+v, want double, drop, win", actions)
	}
}

func TestBeaver(t *testing.T) {
	cfg := testConfig()
	cfg.Match = match.Config{Beaver: true}
	e := newTestEngine(t, cfg)
	mustOK(t, e.Start())
	setPosition(t, e, engine.StartingPosition())

	mustOK(t, e.OfferDouble())
	if !e.Snapshot().CanBeaver {
		t.Error("beaver not offered in a money game")
	}
	mustOK(t, e.Beaver())
	if cube := e.Snapshot().Board.Cube; cube != (engine.CubeState{Value: 4, Owner: engine.Black}) {
		t.Errorf("cube = %+v, want 4 owned by black", cube)
	}
}

func TestMatchOver(t *testing.T) {
	cfg := testConfig()
	cfg.Match.Length = 1
	e := newTestEngine(t, cfg)
	mustOK(t, e.Start())
	setPosition(t, e, engine.StartingPosition())
	mustOK(t, e.OfferDouble())
	mustOK(t, e.Drop())

	s := e.Snapshot()
	if s.Phase != PhaseMatchOver || s.Match.Winner() != engine.White {
		t.Fatalf("phase %s winner %s", s.Phase, s.Match.Winner())
	}
	mustInvalid(t, e.NextGame())
	mustOK(t, e.Start())
	if s := e.Snapshot(); s.Match.Score != [2]int{} || s.GameNumber != 1 {
		t.Errorf("new match: score %v game %d", s.Match.Score, s.GameNumber)
	}
}

func TestAutoRoll(t *testing.T) {
	cfg := testConfig()
	cfg.AutoRoll = true
	e := newTestEngine(t, cfg, WithDice(NewFixedDice(engine.Dice{3, 1}, engine.Dice{6, 4})))
	mustOK(t, e.Start())
	b := engine.StartingPosition()
	b.Cube = engine.CubeState{Value: 2, Owner: engine.White}
	setPosition(t, e, b)
	mustOK(t, e.Roll())
	mustOK(t, e.Move(engine.CheckerMove{From: 8, To: 5}))
	mustOK(t, e.Move(engine.CheckerMove{From: 6, To: 5}))
	mustOK(t, e.Confirm())

	// Black has no access to the cube, so the roll is automatic.
	s := e.Snapshot()
	if s.Phase != PhaseMoving || s.Board.Turn != engine.Black || s.Dice != (engine.Dice{6, 4}) {
		t.Errorf("phase %s turn %s dice %v, want black moving with 64", s.Phase, s.Board.Turn, s.Dice)
	}
}

func TestEvents(t *testing.T) {
	e := newTestEngine(t, testConfig(), WithDice(NewFixedDice(engine.Dice{3, 1})))
	events, cancel := e.Subscribe()
	defer cancel()

	mustOK(t, e.Start())
	mustOK(t, e.Roll())
	mustOK(t, e.Move(engine.CheckerMove{From: 8, To: 5}))
	mustOK(t, e.Move(engine.CheckerMove{From: 6, To: 5}))
	mustOK(t, e.Confirm())

	want := []EventType{EventGameStarted, EventOpeningRoll, EventMove, EventMove, EventTurnCompleted}
	var got []EventType
	for len(got) < len(want) {
		select {
		case ev := <-events:
			got = append(got, ev.Type)
			if ev.GameID == "" {
				t.Errorf("%s event without game id", ev.Type)
			}
		default:
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	cfg.Match.Jacoby = true
	if _, err := New(cfg); err == nil {
		t.Error("jacoby in a match accepted")
	}
	cfg = testConfig()
	cfg.Computer = 5
	if _, err := New(cfg); err == nil {
		t.Error("invalid computer side accepted")
	}
}

func TestDifficulty(t *testing.T) {
	for _, d := range []Difficulty{Beginner, Intermediate, Expert} {
		got, err := ParseDifficulty(d.String())
		if err != nil || got != d {
			t.Errorf("ParseDifficulty(%q) = %v, %v", d, got, err)
		}
		if d.Ply() != int(d) {
			t.Errorf("%s ply = %d", d, d.Ply())
		}
	}
	if _, err := ParseDifficulty("grandmaster"); err == nil {
		t.Error("unknown difficulty accepted")
	}
}

func TestFixedDice(t *testing.T) {
	d := NewFixedDice(engine.Dice{1, 2}, engine.Dice{3, 4})
	for i, want := range []engine.Dice{{1, 2}, {3, 4}, {1, 2}} {
		if got := d.Roll(); got != want {
			t.Errorf("roll %d = %v, want %v", i, got, want)
		}
	}
}

func TestRandomDice(t *testing.T) {
	d := NewRandomDice(42)
	for range 1000 {
		if r := d.Roll(); !r.Valid() {
			t.Fatalf("invalid roll %v", r)
		}
	}
}
