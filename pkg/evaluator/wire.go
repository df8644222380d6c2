package evaluator

import (
	"github.com/yourusername/bgtutor/pkg/engine"
)

// positionRequest is the body of /evaluate and /cube. Points are indexed
// 0-23 for board points 1-24, positive for White.
type positionRequest struct {
	Points    []int  `json:"points"`
	Bar       []int  `json:"bar"`
	BorneOff  []int  `json:"borne_off"`
	Dice      []int  `json:"dice,omitempty"`
	Player    string `json:"player"`
	Ply       int    `json:"ply"`
	CubeValue int    `json:"cube_value,omitempty"`
	CubeOwner string `json:"cube_owner,omitempty"`
}

func newPositionRequest(b *engine.Board, ply int) positionRequest {
	points := make([]int, 24)
	for i := range points {
		points[i] = int(b.Points[i+1])
	}
	if ply < 0 {
		ply = 0
	}
	if ply > 4 {
		ply = 4
	}
	return positionRequest{
		Points:   points,
		Bar:      []int{int(b.Bar[engine.White]), int(b.Bar[engine.Black])},
		BorneOff: []int{int(b.Off[engine.White]), int(b.Off[engine.Black])},
		Player:   b.Turn.String(),
		Ply:      ply,
	}
}

type moveResponse struct {
	FromPoint int  `json:"from_point"`
	ToPoint   int  `json:"to_point"`
	DieUsed   int  `json:"die_used"`
	IsHit     bool `json:"is_hit"`
	IsBearOff bool `json:"is_bear_off"`
}

type playResponse struct {
	Moves    []moveResponse `json:"moves"`
	Notation string         `json:"notation"`
}

type rankedPlayResponse struct {
	Rank             int          `json:"rank"`
	Play             playResponse `json:"play"`
	Equity           float64      `json:"equity"`
	WinProbability   float64      `json:"win_probability"`
	EquityDifference float64      `json:"equity_difference"`
}

type evaluateResponse struct {
	BestPlay   playResponse         `json:"best_play"`
	BestEquity float64              `json:"best_equity"`
	AllPlays   []rankedPlayResponse `json:"all_plays"`
}

// normalize maps the service's move coordinates onto p's board numbering.
// Any origin off the board is p's bar; any destination off the board is a
// bear-off.
func (m moveResponse) normalize(p engine.Player) engine.CheckerMove {
	mv := engine.CheckerMove{
		From:      m.FromPoint,
		To:        m.ToPoint,
		Die:       m.DieUsed,
		IsHit:     m.IsHit,
		IsBearOff: m.IsBearOff,
	}
	if mv.From < 1 || mv.From > 24 {
		mv.From = p.BarPoint()
	}
	if mv.IsBearOff || mv.To < 1 || mv.To > 24 {
		mv.To = p.OffPoint()
		mv.IsBearOff = true
		mv.IsHit = false
	}
	return mv
}

func (pr playResponse) toPlay(p engine.Player) engine.Play {
	play := make(engine.Play, 0, len(pr.Moves))
	for _, m := range pr.Moves {
		play = append(play, m.normalize(p))
	}
	return play
}

// toEvaluation converts the response to p's perspective. The service
// reports Black's plays with White's equity and win probability.
func (r *evaluateResponse) toEvaluation(p engine.Player) *Evaluation {
	sign := 1.0
	if p == engine.Black {
		sign = -1
	}
	ev := &Evaluation{
		Best:       r.BestPlay.toPlay(p),
		BestEquity: sign * r.BestEquity,
		Plays:      make([]RankedPlay, 0, len(r.AllPlays)),
	}
	for _, rp := range r.AllPlays {
		wp := rp.WinProbability
		if p == engine.Black {
			wp = 1 - wp
		}
		ev.Plays = append(ev.Plays, RankedPlay{
			Rank:             rp.Rank,
			Play:             rp.Play.toPlay(p),
			Notation:         rp.Play.Notation,
			Equity:           sign * rp.Equity,
			WinProbability:   wp,
			EquityDifference: rp.EquityDifference,
		})
	}
	return ev
}

// EquityOf returns the equity of the ranked play that turns before into
// after. The second result is false when the play is not ranked.
func (e *Evaluation) EquityOf(before, after engine.Board) (float64, bool) {
	if before.ApplyPlay(e.Best, before.Turn) == after {
		return e.BestEquity, true
	}
	for _, rp := range e.Plays {
		if before.ApplyPlay(rp.Play, before.Turn) == after {
			return rp.Equity, true
		}
	}
	return 0, false
}

// WorstEquity returns the lowest ranked equity, or BestEquity when nothing
// else is ranked.
func (e *Evaluation) WorstEquity() float64 {
	worst := e.BestEquity
	for _, rp := range e.Plays {
		if rp.Equity < worst {
			worst = rp.Equity
		}
	}
	return worst
}
