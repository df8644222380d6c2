package coach

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/match"
)

// GameStats aggregates one player's evaluated turns in a game.
type GameStats struct {
	GameID     string            `json:"game_id"`
	Player     engine.Player     `json:"player"`
	Turns      int               `json:"turns"`     // evaluated turns
	Forced     int               `json:"forced"`    // turns with a single legal play
	Blunders   int               `json:"blunders"`  // very bad
	Errors     int               `json:"errors"`    // bad
	Doubtful   int               `json:"doubtful"`
	TotalLoss  float64           `json:"total_loss"`
	MeanLoss   float64           `json:"mean_loss"` // error per unforced move
	StdDevLoss float64           `json:"stddev_loss"`
	WorstTurn  int               `json:"worst_turn,omitempty"`
	Rating     string            `json:"rating"`
	Result     *match.GameResult `json:"result,omitempty"`
}

// ComputeStats summarises p's annotated turns of g. Forced turns are never
// annotated; they are counted apart and do not dilute the mean loss.
func ComputeStats(g *match.GameRecord, p engine.Player) GameStats {
	s := GameStats{GameID: g.ID, Player: p, Result: g.Result}

	var losses []float64
	worst := -1.0
	for _, t := range g.Turns {
		if t.Player != p {
			continue
		}
		if t.Forced {
			s.Forced++
			continue
		}
		if t.Eval == nil {
			continue
		}
		s.Turns++
		loss := t.Eval.EquityLoss
		losses = append(losses, loss)
		if loss > worst {
			worst = loss
			s.WorstTurn = t.Number
		}
		switch t.Eval.Skill {
		case engine.SkillVeryBad:
			s.Blunders++
		case engine.SkillBad:
			s.Errors++
		case engine.SkillDoubtful:
			s.Doubtful++
		}
	}

	rating := engine.RatingUndefined
	if len(losses) > 0 {
		s.TotalLoss = floats.Sum(losses)
		if len(losses) > 1 {
			s.MeanLoss, s.StdDevLoss = stat.MeanStdDev(losses, nil)
		} else {
			s.MeanLoss = losses[0]
		}
		rating = engine.RatingFor(s.MeanLoss)
	}
	s.Rating = rating.String()
	return s
}
