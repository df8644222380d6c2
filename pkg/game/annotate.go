package game

import (
	"context"
	"math"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/bgtutor/internal/pool"
	"github.com/yourusername/bgtutor/pkg/coach"
	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/evaluator"
	"github.com/yourusername/bgtutor/pkg/match"
)

// annotate evaluates a human turn in the background and, when the play lost
// more than the coaching threshold, asks the coach about it. Results that
// arrive after a new match has started are dropped. Must be called with e.mu
// held.
func (e *Engine) annotate(g *gameState, rec *match.TurnRecord) {
	before, after, dice := rec.Before, rec.After, rec.Dice
	number, player := rec.Number, rec.Player

	g.pending.Add(1)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer g.pending.Done()

		log := e.log.With(zap.String("game", g.rec.ID), zap.Int("turn", number))
		ctx, cancel := context.WithTimeout(e.bg, e.cfg.AnnotateTimeout)
		defer cancel()

		var ev *evaluator.Evaluation
		err := e.pool.Do(ctx, pool.LaneEval, func(ctx context.Context) error {
			var err error
			ev, err = e.eval.Evaluate(ctx, before, dice, Expert.Ply())
			return err
		})
		if err != nil {
			log.Warn("evaluation skipped", zap.Error(err))
			return
		}
		ann := annotationFor(ev, before, after)

		e.mu.Lock()
		if !slices.Contains(e.games, g.rec) {
			e.mu.Unlock()
			log.Debug("stale evaluation discarded")
			return
		}
		rec.Eval = ann
		req := coach.NewExplainRequest(rec)
		e.emit(Event{Type: EventAnnotation, GameID: g.rec.ID, Player: player, Turn: number, Eval: ann})
		e.mu.Unlock()

		if e.coach == nil || ann.EquityLoss <= e.cfg.CoachThreshold {
			return
		}

		var c *match.Coaching
		err = e.pool.Do(ctx, pool.LaneCoach, func(ctx context.Context) error {
			var err error
			c, err = e.coach.Explain(ctx, req)
			return err
		})
		if err != nil {
			log.Warn("coaching skipped", zap.Error(err))
			return
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		if !slices.Contains(e.games, g.rec) {
			log.Debug("stale coaching discarded")
			return
		}
		rec.Coaching = c
		e.emit(Event{Type: EventCoaching, GameID: g.rec.ID, Player: player, Turn: number, Coaching: c})
	}()
}

// annotationFor grades the play that turned before into after. A play the
// evaluator did not rank is given the worst ranked equity, which makes the
// reported loss a lower bound.
func annotationFor(ev *evaluator.Evaluation, before, after engine.Board) *match.EvalAnnotation {
	ann := &match.EvalAnnotation{
		BestPlay:   ev.Best,
		BestEquity: ev.BestEquity,
	}
	played, ok := ev.EquityOf(before, after)
	if !ok {
		played = ev.WorstEquity()
		ann.Approximate = true
	}
	ann.PlayedEquity = played
	ann.EquityLoss = math.Max(0, ev.BestEquity-played)
	ann.Skill = engine.ClassifySkill(ann.EquityLoss)
	return ann
}

// finishGame runs the post-game work in the background once the game's
// annotations are done: the coach's review, the archive and the outcome
// statistics. Must be called with e.mu held.
func (e *Engine) finishGame(g *gameState, res match.GameResult, matchOver bool) {
	var outcome *match.Outcome
	if e.cfg.Computer != engine.NoPlayer {
		human := e.cfg.Computer.Opponent()
		outcome = &match.Outcome{
			GameID:     g.rec.ID,
			Difficulty: e.cfg.Difficulty.String(),
			Human:      human,
			Won:        res.Winner == human,
			Kind:       res.Kind(),
			Points:     res.Points,
			MatchOver:  matchOver,
			At:         time.Now(),
		}
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		g.pending.Wait()

		log := e.log.With(zap.String("game", g.rec.ID))
		if e.cfg.Summaries && e.coach != nil {
			e.summarize(g, log)
		}
		if e.archive != nil {
			e.mu.Lock()
			snap := cloneGame(g.rec)
			e.mu.Unlock()
			if err := e.archive.ArchiveGame(e.bg, snap); err != nil {
				log.Warn("archiving game failed", zap.Error(err))
			}
		}
		if outcome != nil && e.recorder != nil {
			if err := e.recorder.RecordOutcome(e.bg, *outcome); err != nil {
				log.Warn("recording outcome failed", zap.Error(err))
			}
		}
	}()
}

// summarize stores the coach's review on the game record. A finished game
// stays part of the match until a new match starts.
func (e *Engine) summarize(g *gameState, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(e.bg, e.cfg.AnnotateTimeout)
	defer cancel()

	e.mu.Lock()
	snap := cloneGame(g.rec)
	e.mu.Unlock()

	var s *match.Summary
	err := e.pool.Do(ctx, pool.LaneCoach, func(ctx context.Context) error {
		var err error
		s, err = e.coach.Summarize(ctx, snap)
		return err
	})
	if err != nil {
		log.Warn("summary skipped", zap.Error(err))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !slices.Contains(e.games, g.rec) {
		log.Debug("stale summary discarded")
		return
	}
	g.rec.Summary = s
	e.emit(Event{Type: EventSummary, GameID: g.rec.ID, Player: engine.NoPlayer, Summary: s})
}
