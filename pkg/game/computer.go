package game

import (
	"context"

	"go.uber.org/zap"

	"github.com/yourusername/bgtutor/internal/pool"
	"github.com/yourusername/bgtutor/internal/positionid"
	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/evaluator"
)

// PlayComputerTurn plays the computer's turn: a cube decision and a roll
// when it is at the roll decision point, then the whole play. The engine is
// unlocked while the evaluator is consulted; if another intent changes the
// state meanwhile the turn is abandoned with ErrInvalidIntent.
func (e *Engine) PlayComputerTurn(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.board.Turn
	if !e.isComputer(p) || (e.phase != PhaseRolling && e.phase != PhaseMoving) {
		return invalid("not the computer's turn")
	}

	if e.phase == PhaseRolling {
		if e.canDouble(p) && e.eval != nil {
			b, version := e.board, e.version
			e.mu.Unlock()
			d, err := e.cubeAdvice(ctx, b)
			e.mu.Lock()
			if e.version != version {
				return invalid("state changed during cube evaluation")
			}
			if err != nil {
				e.log.Warn("cube advice unavailable, not doubling", zap.Error(err))
			} else if d.ShouldDouble() {
				e.offer(p)
				return nil
			}
		}
		if err := e.roll(); err != nil {
			return err
		}
		if e.phase != PhaseMoving || e.board.Turn != p {
			return nil // no legal move
		}
	}

	start, dice, legal, version := e.start, e.dice, e.legal, e.version
	e.mu.Unlock()
	play := e.choosePlay(ctx, start, dice, legal)
	e.mu.Lock()
	if e.version != version {
		return invalid("state changed during move selection")
	}

	e.version++
	e.board = start
	e.pending = nil
	for _, m := range play {
		e.board = e.board.Apply(m, p)
		e.pending = append(e.pending, m)
		e.emit(Event{Type: EventMove, Player: p, Dice: dice, Move: &m, Cube: e.board.Cube})
	}
	e.remaining = nil
	e.completeTurn()
	return nil
}

// ComputerCubeAction answers a cube offered by the human. Without usable
// advice the computer takes.
func (e *Engine) ComputerCubeAction(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseCubeOffered || !e.isComputer(e.offeredBy.Opponent()) {
		return invalid("no cube offered to the computer")
	}
	taker := e.offeredBy.Opponent()

	action := evaluator.DoubleTake
	if e.eval != nil {
		b, version := e.board, e.version
		e.mu.Unlock()
		d, err := e.cubeAdvice(ctx, b)
		e.mu.Lock()
		if e.version != version {
			return invalid("state changed during cube evaluation")
		}
		if err != nil {
			e.log.Warn("cube advice unavailable, taking", zap.Error(err))
		} else {
			action = d.Recommendation
		}
	}

	switch {
	case action == evaluator.DoublePass:
		e.decline(taker)
	case action == evaluator.NoDouble && e.canBeaver():
		e.beaver(taker)
	default:
		e.accept(taker)
	}
	return nil
}

// cubeAdvice asks the evaluator about b from the side of b.Turn.
func (e *Engine) cubeAdvice(ctx context.Context, b engine.Board) (*evaluator.CubeDecision, error) {
	var d *evaluator.CubeDecision
	err := e.pool.Do(ctx, pool.LaneEval, func(ctx context.Context) error {
		var err error
		d, err = e.eval.Cube(ctx, b, e.cfg.Difficulty.Ply())
		return err
	})
	return d, err
}

// choosePlay picks the computer's play: the evaluator's best play if it
// survives validation, the heuristic's choice otherwise.
func (e *Engine) choosePlay(ctx context.Context, start engine.Board, dice engine.Dice, legal *engine.MoveList) engine.Play {
	if len(legal.Plays) == 1 {
		return legal.Plays[0]
	}
	if e.eval != nil {
		var ev *evaluator.Evaluation
		err := e.pool.Do(ctx, pool.LaneEval, func(ctx context.Context) error {
			var err error
			ev, err = e.eval.Evaluate(ctx, start, dice, e.cfg.Difficulty.Ply())
			return err
		})
		if err != nil {
			e.log.Warn("evaluator unavailable, using heuristic", zap.Error(err))
		} else if play, ok := validatePlay(start, dice, ev.Best, legal); ok {
			return play
		} else {
			e.log.Info("evaluator play rejected",
				zap.Stringer("play", ev.Best),
				zap.String("position", positionid.Encode(start)),
				zap.Stringer("dice", dice),
			)
		}
	}
	return legal.Plays[e.cfg.Heuristic.BestPlay(start, legal.Plays)]
}

// validatePlay replays play one checker at a time against the single moves
// of each intermediate board, so entering from the bar comes first. The
// result is rebuilt from the generator's moves and must be one of the legal
// plays of the roll.
func validatePlay(start engine.Board, dice engine.Dice, play engine.Play, legal *engine.MoveList) (engine.Play, bool) {
	p := start.Turn
	b := start
	remaining := dice.Moves()
	out := make(engine.Play, 0, len(play))
	for _, req := range play {
		c := candidates(&b, p, remaining, req)
		if len(c) == 0 {
			return nil, false
		}
		m := c[0]
		b = b.Apply(m, p)
		remaining = removeDie(remaining, m.Die)
		out = append(out, m)
	}
	if len(out) != legal.MaxMoves {
		return nil, false
	}
	for _, r := range legal.Results {
		if r == b {
			return out, true
		}
	}
	return nil, false
}
