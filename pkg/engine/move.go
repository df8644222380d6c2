package engine

// CheckerMove moves one checker. From is the player's bar point when
// entering; To is the player's off point when IsBearOff is set.
type CheckerMove struct {
	From      int  `json:"from"`
	To        int  `json:"to"`
	Die       int  `json:"die"`
	IsHit     bool `json:"is_hit"`
	IsBearOff bool `json:"is_bear_off"`
}

// Play is the ordered list of checker moves of one turn.
type Play []CheckerMove

// UsesDie reports whether any move of the play consumed die.
func (p Play) UsesDie(die int) bool {
	for _, m := range p {
		if m.Die == die {
			return true
		}
	}
	return false
}

// SingleMoves returns every legal move of one checker by die for p.
func SingleMoves(b *Board, p Player, die int) []CheckerMove {
	dir := p.Direction()

	if b.Bar[p] > 0 {
		from := p.BarPoint()
		to := from + die*dir
		if !b.IsPointOpen(to, p) {
			return nil
		}
		return []CheckerMove{{From: from, To: to, Die: die, IsHit: b.IsBlot(to, p)}}
	}

	var moves []CheckerMove
	canBearOff := b.CanBearOff(p)
	for from := 1; from <= 24; from++ {
		if b.Checkers(from, p) == 0 {
			continue
		}
		to := from + die*dir
		if to < 1 || to > 24 {
			if !canBearOff {
				continue
			}
			exact := to == 0 || to == 25
			if !exact && b.hasCheckerBehind(from, p) {
				continue
			}
			moves = append(moves, CheckerMove{From: from, To: p.OffPoint(), Die: die, IsBearOff: true})
			continue
		}
		if !b.IsPointOpen(to, p) {
			continue
		}
		moves = append(moves, CheckerMove{From: from, To: to, Die: die, IsHit: b.IsBlot(to, p)})
	}
	return moves
}

// MoveList contains the legal plays for a position and roll.
type MoveList struct {
	Plays    []Play  // Deduplicated maximal plays
	Results  []Board // Results[i] is the board after Plays[i]
	MaxMoves int     // Number of checker moves in every play
}

// generator accumulates candidate plays for one position.
type generator struct {
	player Player
	plays  []Play
	boards []Board
	max    int
}

// GenerateMoves returns every maximal legal play for b.Turn and dice.
// Plays reaching the same position are returned once.
func GenerateMoves(b Board, dice Dice) *MoveList {
	return generateFor(b, b.Turn, dice.Moves(), dice.IsDoubles())
}

// LegalPlays returns the plays of GenerateMoves.
func LegalPlays(b Board, dice Dice) []Play {
	return GenerateMoves(b, dice).Plays
}

// RemainingPlays enumerates the maximal continuations when only the given
// dice are left to play. It is used to check partially entered turns.
func RemainingPlays(b Board, p Player, dice []int) *MoveList {
	doubles := len(dice) > 1
	for _, d := range dice {
		if d != dice[0] {
			doubles = false
		}
	}
	return generateFor(b, p, dice, doubles)
}

func generateFor(b Board, p Player, dice []int, doubles bool) *MoveList {
	g := &generator{player: p}

	if len(dice) == 0 {
		g.save(nil, b)
		return g.result(dice, doubles)
	}

	if doubles || len(dice) == 1 {
		g.search(b, dice, 0, nil, make([]map[Board]bool, len(dice)))
		return g.result(dice, doubles)
	}

	// Try the dice in both orders.
	g.search(b, dice, 0, nil, make([]map[Board]bool, len(dice)))
	swapped := []int{dice[1], dice[0]}
	g.search(b, swapped, 0, nil, make([]map[Board]bool, len(swapped)))
	return g.result(dice, doubles)
}

// search plays dice[depth:] depth first. seen[d] holds the boards already
// expanded after d+1 moves, so transpositions are explored once.
func (g *generator) search(b Board, dice []int, depth int, moves Play, seen []map[Board]bool) {
	if depth == len(dice) {
		g.save(moves, b)
		return
	}

	singles := SingleMoves(&b, g.player, dice[depth])
	if len(singles) == 0 {
		g.save(moves, b)
		return
	}

	for _, m := range singles {
		next := b.Apply(m, g.player)
		if seen[depth] == nil {
			seen[depth] = make(map[Board]bool)
		}
		if seen[depth][next] {
			continue
		}
		seen[depth][next] = true

		seq := make(Play, len(moves), len(moves)+1)
		copy(seq, moves)
		g.search(next, dice, depth+1, append(seq, m), seen)
	}
}

// save records a candidate play. Shorter plays are dropped as soon as a
// longer one is known.
func (g *generator) save(moves Play, b Board) {
	n := len(moves)
	if n < g.max {
		return
	}
	if n > g.max {
		g.plays = g.plays[:0]
		g.boards = g.boards[:0]
		g.max = n
	}
	g.plays = append(g.plays, moves)
	g.boards = append(g.boards, b)
}

// result deduplicates by resulting position and applies the larger die rule.
func (g *generator) result(dice []int, doubles bool) *MoveList {
	ml := &MoveList{MaxMoves: g.max}

	keep := func(Play) bool { return true }
	if !doubles && len(dice) == 2 && g.max == 1 {
		larger := dice[0]
		if dice[1] > larger {
			larger = dice[1]
		}
		for _, p := range g.plays {
			if p.UsesDie(larger) {
				keep = func(p Play) bool { return p.UsesDie(larger) }
				break
			}
		}
	}

	seen := make(map[Board]bool, len(g.boards))
	for i, p := range g.plays {
		if !keep(p) || seen[g.boards[i]] {
			continue
		}
		seen[g.boards[i]] = true
		if p == nil {
			p = Play{}
		}
		ml.Plays = append(ml.Plays, p)
		ml.Results = append(ml.Results, g.boards[i])
	}
	return ml
}

// ApplyMove applies a play for b.Turn and returns the resulting board.
func ApplyMove(b Board, play Play) Board {
	return b.ApplyPlay(play, b.Turn)
}

// CountHits counts the hits in a play.
func CountHits(play Play) int {
	hits := 0
	for _, m := range play {
		if m.IsHit {
			hits++
		}
	}
	return hits
}
