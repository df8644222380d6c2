package game

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/yourusername/bgtutor/internal/positionid"
	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/match"
)

const maxOpeningRolls = 100

// Roll rolls the dice: the opening roll of a game, or the roll of a human
// player on turn.
func (e *Engine) Roll() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.phase {
	case PhaseOpeningRoll:
		return e.openingRoll()
	case PhaseRolling:
		if e.isComputer(e.board.Turn) {
			return invalid("%s is played by the computer", e.board.Turn)
		}
		return e.roll()
	}
	return invalid("cannot roll in phase %s", e.phase)
}

// openingRoll rolls one die each until they differ. The higher die moves
// first and plays both.
func (e *Engine) openingRoll() error {
	for range maxOpeningRolls {
		d := e.roller.Roll()
		if !d.Valid() {
			return fmt.Errorf("dice source rolled %v", d)
		}
		if d.IsDoubles() {
			continue
		}
		first := engine.White
		if d[1] > d[0] {
			first = engine.Black
		}
		e.board.Turn = first
		e.emit(Event{Type: EventOpeningRoll, Player: first, Dice: d, Cube: e.board.Cube})
		e.enterMoving(d)
		return nil
	}
	return fmt.Errorf("opening roll tied %d times", maxOpeningRolls)
}

func (e *Engine) roll() error {
	d := e.roller.Roll()
	if !d.Valid() {
		return fmt.Errorf("dice source rolled %v", d)
	}
	e.emit(Event{Type: EventRoll, Player: e.board.Turn, Dice: d, Cube: e.board.Cube})
	e.enterMoving(d)
	return nil
}

// enterMoving computes the legal plays of the roll. A roll without any
// legal move completes the turn at once.
func (e *Engine) enterMoving(d engine.Dice) {
	e.version++
	e.dice = d
	e.start = e.board
	e.legal = engine.GenerateMoves(e.board, d)
	e.legalSet = make(map[engine.Board]bool, len(e.legal.Results))
	for _, r := range e.legal.Results {
		e.legalSet[r] = true
	}
	e.remaining = d.Moves()
	e.pending = nil
	e.phase = PhaseMoving

	if e.legal.MaxMoves == 0 {
		e.log.Debug("no legal move", zap.Stringer("player", e.board.Turn), zap.Stringer("dice", d))
		e.completeTurn()
	}
}

// Move plays one checker for the human on turn. From and To are board
// points; any From off the board means the bar and any To off the board
// means bearing off. Die picks the die to use and may be 0.
func (e *Engine) Move(req engine.CheckerMove) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseMoving {
		return invalid("cannot move in phase %s", e.phase)
	}
	p := e.board.Turn
	if e.isComputer(p) {
		return invalid("%s is played by the computer", p)
	}
	if req.Die != 0 && !slices.Contains(e.remaining, req.Die) {
		return invalid("die %d is not available", req.Die)
	}

	dice := e.remaining
	if req.Die != 0 {
		dice = []int{req.Die}
	}
	var m engine.CheckerMove
	found := false
	for _, c := range candidates(&e.board, p, dice, req) {
		if e.completes(c) {
			m, found = c, true
			break
		}
	}
	if !found {
		return invalid("%d/%d is not legal", req.From, req.To)
	}

	e.version++
	e.board = e.board.Apply(m, p)
	e.pending = append(e.pending, m)
	e.remaining = removeDie(e.remaining, m.Die)
	e.checkBoard()
	e.emit(Event{Type: EventMove, Player: p, Dice: e.dice, Move: &m, Cube: e.board.Cube})
	return nil
}

// completes reports whether m, played next, still leads to one of the legal
// plays of the roll.
func (e *Engine) completes(m engine.CheckerMove) bool {
	p := e.board.Turn
	after := e.board.Apply(m, p)
	cont := engine.RemainingPlays(after, p, removeDie(e.remaining, m.Die))
	if len(e.pending)+1+cont.MaxMoves != e.legal.MaxMoves {
		return false
	}
	for _, r := range cont.Results {
		if e.legalSet[r] {
			return true
		}
	}
	return false
}

// nextMoves lists the checker moves Move would accept now.
func (e *Engine) nextMoves() []engine.CheckerMove {
	var out []engine.CheckerMove
	for _, d := range dieOrder(e.remaining, 0) {
		for _, m := range engine.SingleMoves(&e.board, e.board.Turn, d) {
			if e.completes(m) {
				out = append(out, m)
			}
		}
	}
	return out
}

// Undo takes back the last checker move of the turn.
func (e *Engine) Undo() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseMoving || len(e.pending) == 0 {
		return invalid("nothing to undo")
	}
	p := e.board.Turn
	if e.isComputer(p) {
		return invalid("%s is played by the computer", p)
	}

	e.version++
	last := e.pending[len(e.pending)-1]
	e.pending = slices.Clone(e.pending[:len(e.pending)-1])
	e.board = e.start.ApplyPlay(e.pending, p)
	e.remaining = e.dice.Moves()
	for _, m := range e.pending {
		e.remaining = removeDie(e.remaining, m.Die)
	}
	e.emit(Event{Type: EventUndo, Player: p, Dice: e.dice, Move: &last, Cube: e.board.Cube})
	return nil
}

// Confirm ends the turn. It is valid once no remaining die can be played.
func (e *Engine) Confirm() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseMoving {
		return invalid("cannot confirm in phase %s", e.phase)
	}
	p := e.board.Turn
	if e.isComputer(p) {
		return invalid("%s is played by the computer", p)
	}
	if len(e.pending) < e.legal.MaxMoves || !e.legalSet[e.board] {
		return invalid("%d of %d checker moves played", len(e.pending), e.legal.MaxMoves)
	}
	e.completeTurn()
	return nil
}

// completeTurn records the turn, starts its annotation and hands the dice
// to the opponent, or ends the game.
func (e *Engine) completeTurn() {
	p := e.board.Turn
	play := e.pending
	if play == nil {
		play = engine.Play{}
	}
	rec := &match.TurnRecord{
		Player:     p,
		Before:     e.start,
		After:      e.board,
		Dice:       e.dice,
		Play:       play,
		PositionID: positionid.Encode(e.start),
		Human:      !e.isComputer(p),
		Forced:     len(e.legal.Plays) <= 1,
	}
	e.cur.rec.AddTurn(rec)
	e.version++
	e.checkBoard()

	e.log.Debug("turn completed",
		zap.String("game", e.cur.rec.ID),
		zap.Int("turn", rec.Number),
		zap.Stringer("player", p),
		zap.Stringer("dice", e.dice),
		zap.Stringer("play", play),
	)
	e.emit(Event{Type: EventTurnCompleted, Player: p, Dice: e.dice, Play: play, Turn: rec.Number, Cube: e.board.Cube})

	if rec.Human && !rec.Forced && e.eval != nil {
		e.annotate(e.cur, rec)
	}

	if e.board.IsGameOver() {
		winner, multiplier := e.board.GameResult()
		e.endGame(winner, multiplier, false)
		return
	}

	e.board.Turn = p.Opponent()
	e.clearTurn()
	e.phase = PhaseRolling
	e.autoRoll()
}

// autoRoll rolls for the player on turn when AutoRoll is set and they have
// no cube decision to make.
func (e *Engine) autoRoll() {
	if !e.cfg.AutoRoll || e.canDouble(e.board.Turn) {
		return
	}
	if err := e.roll(); err != nil {
		e.log.Error("auto roll failed", zap.Error(err))
	}
}

// endGame scores the game and moves to GameOver or MatchOver.
func (e *Engine) endGame(winner engine.Player, multiplier int, resigned bool) {
	cube := e.board.Cube.Value
	points := e.match.RecordGameResult(winner, multiplier, cube)
	res := match.GameResult{
		Winner:     winner,
		Multiplier: multiplier,
		CubeValue:  cube,
		Points:     points,
		Resigned:   resigned,
	}
	e.cur.rec.Finish(res)

	e.version++
	e.clearTurn()
	e.offeredBy = engine.NoPlayer
	over := e.match.IsOver()
	e.phase = PhaseGameOver
	if over {
		e.phase = PhaseMatchOver
	}

	e.log.Info("game over",
		zap.String("game", e.cur.rec.ID),
		zap.Stringer("winner", winner),
		zap.String("kind", res.Kind()),
		zap.Int("points", points),
		zap.Ints("score", e.match.Score[:]),
	)
	e.emit(Event{Type: EventGameOver, Player: winner, Cube: e.board.Cube, Result: &res})
	if over {
		e.emit(Event{Type: EventMatchOver, Player: e.match.Winner(), Cube: e.board.Cube, Result: &res})
	}
	e.finishGame(e.cur, res, over)
}

// canDouble reports whether p may offer the cube now: before rolling,
// outside the Crawford game, with access to the cube below its cap.
func (e *Engine) canDouble(p engine.Player) bool {
	return e.phase == PhaseRolling &&
		e.board.Turn == p &&
		e.match.CubeAllowed() &&
		e.board.Cube.CanDouble(p)
}

func (e *Engine) canBeaver() bool {
	return e.phase == PhaseCubeOffered &&
		e.cfg.Match.IsMoney() &&
		e.cfg.Match.Beaver &&
		e.board.Cube.Value*4 <= engine.MaxCubeValue
}

// OfferDouble offers the cube for the human on turn.
func (e *Engine) OfferDouble() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.board.Turn
	if e.phase == PhaseRolling && e.isComputer(p) {
		return invalid("%s is played by the computer", p)
	}
	if !e.canDouble(p) {
		return invalid("%s may not double now", p)
	}
	e.offer(p)
	return nil
}

func (e *Engine) offer(p engine.Player) {
	e.version++
	e.offeredBy = p
	e.phase = PhaseCubeOffered
	e.cur.rec.AddCubeAction(match.ActionDouble, p, e.board.Cube.Value*2)
	e.log.Debug("cube offered", zap.Stringer("player", p), zap.Int("value", e.board.Cube.Value*2))
	e.emit(Event{Type: EventCubeOffered, Player: p, Cube: e.board.Cube})
}

// Take accepts the offered cube on behalf of the human.
func (e *Engine) Take() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	taker, err := e.humanResponder()
	if err != nil {
		return err
	}
	e.accept(taker)
	return nil
}

// Drop declines the offered cube, conceding the game at the current cube
// value.
func (e *Engine) Drop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	taker, err := e.humanResponder()
	if err != nil {
		return err
	}
	e.decline(taker)
	return nil
}

// Beaver accepts the offered cube and redoubles at once. Money games with
// the beaver rule only.
func (e *Engine) Beaver() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	taker, err := e.humanResponder()
	if err != nil {
		return err
	}
	if !e.canBeaver() {
		return invalid("beaver not allowed")
	}
	e.beaver(taker)
	return nil
}

func (e *Engine) humanResponder() (engine.Player, error) {
	if e.phase != PhaseCubeOffered {
		return engine.NoPlayer, invalid("no cube offered")
	}
	taker := e.offeredBy.Opponent()
	if e.isComputer(taker) {
		return engine.NoPlayer, invalid("%s is played by the computer", taker)
	}
	return taker, nil
}

func (e *Engine) accept(taker engine.Player) {
	e.version++
	e.board.Cube = engine.CubeState{Value: e.board.Cube.Value * 2, Owner: taker}
	e.cur.rec.AddCubeAction(match.ActionTake, taker, e.board.Cube.Value)
	e.offeredBy = engine.NoPlayer
	e.phase = PhaseRolling
	e.emit(Event{Type: EventCubeAccepted, Player: taker, Cube: e.board.Cube})
	e.autoRoll()
}

func (e *Engine) beaver(taker engine.Player) {
	e.version++
	e.board.Cube = engine.CubeState{Value: e.board.Cube.Value * 4, Owner: taker}
	e.cur.rec.AddCubeAction(match.ActionBeaver, taker, e.board.Cube.Value)
	e.offeredBy = engine.NoPlayer
	e.phase = PhaseRolling
	e.emit(Event{Type: EventCubeBeavered, Player: taker, Cube: e.board.Cube})
	e.autoRoll()
}

func (e *Engine) decline(taker engine.Player) {
	winner := e.offeredBy
	e.cur.rec.AddCubeAction(match.ActionDrop, taker, e.board.Cube.Value)
	e.emit(Event{Type: EventCubeDeclined, Player: taker, Cube: e.board.Cube})
	e.endGame(winner, 1, true)
}

// candidates returns the single moves of p on b matching req, trying req.Die
// first and then every other remaining die.
func candidates(b *engine.Board, p engine.Player, remaining []int, req engine.CheckerMove) []engine.CheckerMove {
	if req.From < 1 || req.From > 24 {
		req.From = p.BarPoint()
	}
	if req.IsBearOff || req.To < 1 || req.To > 24 {
		req.To = p.OffPoint()
	}
	var out []engine.CheckerMove
	for _, d := range dieOrder(remaining, req.Die) {
		for _, m := range engine.SingleMoves(b, p, d) {
			if m.From == req.From && m.To == req.To {
				out = append(out, m)
			}
		}
	}
	return out
}

// dieOrder returns the distinct values of dice, preferred first.
func dieOrder(dice []int, preferred int) []int {
	var out []int
	if slices.Contains(dice, preferred) {
		out = append(out, preferred)
	}
	for _, d := range dice {
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out
}

// removeDie returns a copy of dice without one occurrence of d.
func removeDie(dice []int, d int) []int {
	out := slices.Clone(dice)
	if i := slices.Index(out, d); i >= 0 {
		out = slices.Delete(out, i, i+1)
	}
	return out
}
