// Package game runs one backgammon match: the turn, cube and match state
// machine, the computer opponent, and the background annotation of human
// plays by the evaluator and the coach.
//
// All intents are serialized by the engine's mutex. Evaluation and coaching
// run in the background and only ever write to the TurnRecord or GameRecord
// they were started for.
package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/bgtutor/internal/met"
	"github.com/yourusername/bgtutor/internal/pool"
	"github.com/yourusername/bgtutor/internal/positionid"
	"github.com/yourusername/bgtutor/pkg/coach"
	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/evaluator"
	"github.com/yourusername/bgtutor/pkg/match"
)

// ErrInvalidIntent is wrapped by every error returned for an intent that is
// not valid in the current state. Such intents leave the state unchanged.
var ErrInvalidIntent = errors.New("invalid intent")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidIntent, fmt.Sprintf(format, args...))
}

// Phase is the state of the engine.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseOpeningRoll
	PhaseRolling
	PhaseMoving
	PhaseCubeOffered
	PhaseGameOver
	PhaseMatchOver
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseOpeningRoll:
		return "opening_roll"
	case PhaseRolling:
		return "rolling"
	case PhaseMoving:
		return "moving"
	case PhaseCubeOffered:
		return "cube_offered"
	case PhaseGameOver:
		return "game_over"
	case PhaseMatchOver:
		return "match_over"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Evaluator ranks plays and gives cube advice. *evaluator.Client implements
// it.
type Evaluator interface {
	Evaluate(ctx context.Context, b engine.Board, dice engine.Dice, ply int) (*evaluator.Evaluation, error)
	Cube(ctx context.Context, b engine.Board, ply int) (*evaluator.CubeDecision, error)
}

// Coach explains mistakes and reviews games. *coach.Client implements it.
type Coach interface {
	Explain(ctx context.Context, req coach.ExplainRequest) (*match.Coaching, error)
	Summarize(ctx context.Context, g *match.GameRecord) (*match.Summary, error)
}

// Recorder stores the outcome of every game against the computer.
type Recorder interface {
	RecordOutcome(ctx context.Context, o match.Outcome) error
}

// Archiver stores finished game records.
type Archiver interface {
	ArchiveGame(ctx context.Context, g *match.GameRecord) error
}

// Option configures an Engine.
type Option func(*Engine)

func WithEvaluator(ev Evaluator) Option { return func(e *Engine) { e.eval = ev } }
func WithCoach(c Coach) Option          { return func(e *Engine) { e.coach = c } }
func WithRecorder(r Recorder) Option    { return func(e *Engine) { e.recorder = r } }
func WithArchiver(a Archiver) Option    { return func(e *Engine) { e.archive = a } }
func WithDice(d DiceSource) Option      { return func(e *Engine) { e.roller = d } }
func WithLogger(l *zap.Logger) Option   { return func(e *Engine) { e.log = l } }
func WithMET(t *met.Table) Option       { return func(e *Engine) { e.met = t } }

// WithPool shares a worker pool between engines, bounding the outbound
// calls of a whole server.
func WithPool(p *pool.WorkerPool) Option { return func(e *Engine) { e.pool = p } }

// WithIDs replaces the game ID generator.
func WithIDs(next func() string) Option { return func(e *Engine) { e.newID = next } }

// gameState is the live game record and the annotations still running for
// it.
type gameState struct {
	rec     *match.GameRecord
	pending sync.WaitGroup
}

// Engine is the state machine of one match.
type Engine struct {
	mu  sync.Mutex
	cfg Config
	log *zap.Logger

	roller   DiceSource
	eval     Evaluator
	coach    Coach
	recorder Recorder
	archive  Archiver
	pool     *pool.WorkerPool
	met      *met.Table
	newID    func() string

	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	phase   Phase
	version uint64 // bumped on every transition
	match   *match.State
	board   engine.Board
	cur     *gameState
	games   []*match.GameRecord

	// Turn in progress.
	dice      engine.Dice
	start     engine.Board
	legal     *engine.MoveList
	legalSet  map[engine.Board]bool
	remaining []int
	pending   engine.Play
	offeredBy engine.Player

	subs    map[int]chan Event
	nextSub int
}

// New creates an engine in PhaseNotStarted.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("game config: %w", err)
	}
	if cfg.AnnotateTimeout <= 0 {
		cfg.AnnotateTimeout = DefaultConfig().AnnotateTimeout
	}
	if cfg.Heuristic == (engine.HeuristicWeights{}) {
		cfg.Heuristic = engine.DefaultHeuristicWeights()
	}

	e := &Engine{
		cfg:       cfg,
		log:       zap.NewNop(),
		roller:    NewRandomDice(0),
		pool:      pool.New(pool.DefaultConfig()),
		met:       met.Default(),
		newID:     uuid.NewString,
		match:     match.NewState(cfg.Match),
		board:     engine.StartingPosition(),
		offeredBy: engine.NoPlayer,
		subs:      make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.Named("game")
	e.bg, e.cancel = context.WithCancel(context.Background())
	return e, nil
}

// Config returns the engine's settings.
func (e *Engine) Config() Config {
	return e.cfg
}

// Wait blocks until every background annotation, summary and archive call
// has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close cancels background work and waits for it to stop.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

func (e *Engine) isComputer(p engine.Player) bool {
	return e.cfg.Computer != engine.NoPlayer && p == e.cfg.Computer
}

// Start begins a new match. It is valid before the first game and once the
// previous match is over.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseNotStarted && e.phase != PhaseMatchOver {
		return invalid("match already running")
	}
	e.match = match.NewState(e.cfg.Match)
	e.games = nil
	e.startGame()
	return nil
}

// NextGame starts the next game of a match that is not over.
func (e *Engine) NextGame() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseGameOver {
		return invalid("cannot start a game in phase %s", e.phase)
	}
	e.startGame()
	return nil
}

func (e *Engine) startGame() {
	e.version++
	rec := match.NewGameRecord(e.newID(), e.match.Game+1, e.match)
	e.cur = &gameState{rec: rec}
	e.games = append(e.games, rec)
	e.board = engine.StartingPosition()
	e.offeredBy = engine.NoPlayer
	e.clearTurn()
	e.phase = PhaseOpeningRoll

	e.log.Info("game started",
		zap.String("game", rec.ID),
		zap.Int("number", rec.Number),
		zap.Ints("score", rec.Score[:]),
		zap.Bool("crawford", rec.Crawford),
	)
	e.emit(Event{Type: EventGameStarted, Player: engine.NoPlayer, Cube: e.board.Cube})
}

func (e *Engine) clearTurn() {
	e.dice = engine.Dice{}
	e.start = e.board
	e.legal = nil
	e.legalSet = nil
	e.remaining = nil
	e.pending = nil
}

// checkBoard enforces the checker count invariant on the live board.
func (e *Engine) checkBoard() {
	if err := e.board.Validate(); err != nil {
		if e.cfg.StrictInvariants {
			panic(fmt.Sprintf("%v: %s", err, e.board))
		}
		e.log.Error("board invariant violated", zap.Error(err), zap.Stringer("board", e.board))
	}
}

// Snapshot is a consistent copy of the engine state.
type Snapshot struct {
	GameID        string               `json:"game_id"`
	GameNumber    int                  `json:"game_number"`
	Phase         Phase                `json:"phase"`
	Board         engine.Board         `json:"board"`
	PositionID    string               `json:"position_id"`
	Pips          [2]int               `json:"pips"`
	Dice          engine.Dice          `json:"dice"`
	Remaining     []int                `json:"remaining,omitempty"`
	Pending       engine.Play          `json:"pending,omitempty"`
	Moves         []engine.CheckerMove `json:"moves,omitempty"` // checker moves legal now
	Plays         []engine.Play        `json:"plays,omitempty"` // complete plays for the roll
	CanUndo       bool                 `json:"can_undo"`
	CanConfirm    bool                 `json:"can_confirm"`
	CanDouble     bool                 `json:"can_double"`
	CanBeaver     bool                 `json:"can_beaver"`
	OfferedBy     engine.Player        `json:"offered_by"`
	ComputerToAct bool                 `json:"computer_to_act"`
	Match         match.State          `json:"match"`
	MatchEquity   float64              `json:"match_equity"` // White's
	Turns         int                  `json:"turns"`
	Result        *match.GameResult    `json:"result,omitempty"`
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Phase:         e.phase,
		Board:         e.board,
		PositionID:    positionid.Encode(e.board),
		Pips:          [2]int{e.board.PipCount(engine.White), e.board.PipCount(engine.Black)},
		Dice:          e.dice,
		Remaining:     slices.Clone(e.remaining),
		Pending:       slices.Clone(e.pending),
		OfferedBy:     e.offeredBy,
		ComputerToAct: e.computerToAct(),
		Match:         *e.match,
		MatchEquity:   e.match.Equity(e.met),
	}
	if e.cur != nil {
		s.GameID = e.cur.rec.ID
		s.GameNumber = e.cur.rec.Number
		s.Turns = len(e.cur.rec.Turns)
		s.Result = e.cur.rec.Result
	}
	switch e.phase {
	case PhaseMoving:
		s.Moves = e.nextMoves()
		s.Plays = slices.Clone(e.legal.Plays)
		s.CanUndo = len(e.pending) > 0
		s.CanConfirm = len(e.pending) == e.legal.MaxMoves
	case PhaseRolling:
		s.CanDouble = e.canDouble(e.board.Turn)
	case PhaseCubeOffered:
		s.CanBeaver = e.canBeaver()
	}
	return s
}

func (e *Engine) computerToAct() bool {
	switch e.phase {
	case PhaseRolling, PhaseMoving:
		return e.isComputer(e.board.Turn)
	case PhaseCubeOffered:
		return e.isComputer(e.offeredBy.Opponent())
	}
	return false
}

// Games returns copies of the records of the current match.
func (e *Engine) Games() []*match.GameRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*match.GameRecord, len(e.games))
	for i, g := range e.games {
		out[i] = cloneGame(g)
	}
	return out
}

// GameStats returns p's statistics for every game of the match.
func (e *Engine) GameStats(p engine.Player) []coach.GameStats {
	games := e.Games()
	stats := make([]coach.GameStats, 0, len(games))
	for _, g := range games {
		stats = append(stats, coach.ComputeStats(g, p))
	}
	return stats
}

// ExportMAT writes the match so far in Jellyfish .mat format.
func (e *Engine) ExportMAT(w io.Writer) error {
	m := &match.Match{
		Players: e.cfg.Players,
		Length:  e.cfg.Match.Length,
		Date:    time.Now().Format("2006-01-02"),
		Games:   e.Games(),
	}
	return match.ExportMAT(w, m)
}

// cloneGame copies g deeply enough that annotations landing later do not
// race with the reader of the copy.
func cloneGame(g *match.GameRecord) *match.GameRecord {
	c := *g
	c.Turns = make([]*match.TurnRecord, len(g.Turns))
	for i, t := range g.Turns {
		tc := *t
		c.Turns[i] = &tc
	}
	c.Actions = slices.Clone(g.Actions)
	return &c
}
