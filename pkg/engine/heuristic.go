package engine

import (
	"gonum.org/v1/gonum/floats"
)

// HeuristicWeights weights the positional features used to pick a play when
// no evaluator result is usable. The defaults are tuning values, not rules.
type HeuristicWeights struct {
	Pip      float64 `mapstructure:"pip" json:"pip"`             // per pip moved
	Hit      float64 `mapstructure:"hit" json:"hit"`             // per opposing checker hit
	NewPoint float64 `mapstructure:"new_point" json:"new_point"` // per point newly made
	Blot     float64 `mapstructure:"blot" json:"blot"`           // per blot created
	BearOff  float64 `mapstructure:"bear_off" json:"bear_off"`   // per checker borne off
	Prime    float64 `mapstructure:"prime" json:"prime"`         // per point of the longest prime (3+)
	Anchor   float64 `mapstructure:"anchor" json:"anchor"`       // per point held in the opponent's home
}

// DefaultHeuristicWeights returns the stock weights.
func DefaultHeuristicWeights() HeuristicWeights {
	return HeuristicWeights{
		Pip:      1,
		Hit:      15,
		NewPoint: 8,
		Blot:     -8,
		BearOff:  20,
		Prime:    4,
		Anchor:   5,
	}
}

func (w HeuristicWeights) vector() []float64 {
	return []float64{w.Pip, w.Hit, w.NewPoint, w.Blot, w.BearOff, w.Prime, w.Anchor}
}

// features returns the feature vector of play for p, in the order of vector.
func features(before, after *Board, play Play, p Player) []float64 {
	newPoints := 0
	for point := 1; point <= 24; point++ {
		if after.Checkers(point, p) >= 2 && before.Checkers(point, p) < 2 {
			newPoints++
		}
	}

	prime := longestPrime(after, p)
	if prime < 3 {
		prime = 0
	}

	anchors := 0
	lo, hi := p.Opponent().HomeRange()
	for point := lo; point <= hi; point++ {
		if after.Checkers(point, p) >= 2 {
			anchors++
		}
	}

	return []float64{
		float64(before.PipCount(p) - after.PipCount(p)),
		float64(CountHits(play)),
		float64(newPoints),
		float64(countBlots(after, p) - countBlots(before, p)),
		float64(after.Off[p] - before.Off[p]),
		float64(prime),
		float64(anchors),
	}
}

func countBlots(b *Board, p Player) int {
	n := 0
	for point := 1; point <= 24; point++ {
		if b.Checkers(point, p) == 1 {
			n++
		}
	}
	return n
}

func longestPrime(b *Board, p Player) int {
	best, run := 0, 0
	for point := 1; point <= 24; point++ {
		if b.Checkers(point, p) >= 2 {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best
}

// ScorePlay rates play from b for b.Turn. Higher is better.
func (w HeuristicWeights) ScorePlay(b Board, play Play) float64 {
	after := b.ApplyPlay(play, b.Turn)
	return floats.Dot(w.vector(), features(&b, &after, play, b.Turn))
}

// BestPlay returns the index of the highest rated play, the first on ties,
// or -1 when plays is empty.
func (w HeuristicWeights) BestPlay(b Board, plays []Play) int {
	best := -1
	var bestScore float64
	for i, play := range plays {
		s := w.ScorePlay(b, play)
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}
