package engine

import (
	"testing"
)

func containsPlay(plays []Play, want string) bool {
	for _, p := range plays {
		if p.String() == want {
			return true
		}
	}
	return false
}

func TestGenerateMovesStartingPosition31(t *testing.T) {
	b := StartingPosition()
	ml := GenerateMoves(b, Dice{3, 1})

	if len(ml.Plays) == 0 {
		t.Fatal("expected legal plays for 31 from the starting position")
	}
	if ml.MaxMoves != 2 {
		t.Errorf("MaxMoves = %d, want 2", ml.MaxMoves)
	}

	var found bool
	for i, play := range ml.Plays {
		if len(play) != 2 {
			t.Errorf("play %d %s does not use both dice", i, play)
		}
		after := ml.Results[i]
		if err := after.Validate(); err != nil {
			t.Errorf("play %d %s: %v", i, play, err)
		}
		if after != ApplyMove(b, play) {
			t.Errorf("play %d %s: result does not match replay", i, play)
		}
		if after.Points[5] == 2 && after.Points[8] == 2 && after.Points[6] == 4 {
			found = true
		}
	}
	if !found {
		t.Error("8/5 6/5 missing from the plays for 31")
	}
}

func TestGenerateMovesStartingPosition66(t *testing.T) {
	ml := GenerateMoves(StartingPosition(), Dice{6, 6})

	if len(ml.Plays) == 0 {
		t.Fatal("expected legal plays for 66 from the starting position")
	}
	for i, play := range ml.Plays {
		if len(play) != 4 {
			t.Errorf("play %d %s has %d moves, want 4", i, play, len(play))
		}
	}
}

func TestNoDuplicateResults(t *testing.T) {
	for _, dice := range []Dice{{3, 1}, {6, 6}, {2, 1}, {5, 5}, {6, 4}} {
		ml := GenerateMoves(StartingPosition(), dice)
		seen := make(map[Board]bool)
		for i, after := range ml.Results {
			if seen[after] {
				t.Errorf("%s: play %d %s duplicates an earlier position", dice, i, ml.Plays[i])
			}
			seen[after] = true
		}
	}
}

func TestGenerateMovesBlack(t *testing.T) {
	b := StartingPosition()
	b.Turn = Black
	ml := GenerateMoves(b, Dice{3, 1})
	if len(ml.Plays) == 0 {
		t.Fatal("expected plays for Black")
	}
	// 17/20 19/20 makes Black's 20 point.
	if !containsPlay(ml.Plays, "17/20 19/20") && !containsPlay(ml.Plays, "19/20 17/20") {
		t.Errorf("17/20 19/20 missing from %v", ml.Plays)
	}
	for i, after := range ml.Results {
		if err := after.Validate(); err != nil {
			t.Errorf("play %d: %v", i, err)
		}
	}
}

func TestGenerateMovesBarEntry(t *testing.T) {
	b := newBoard(map[int]int8{6: 14, 1: -15}, 1, 0)
	ml := GenerateMoves(b, Dice{3, 1})

	if len(ml.Plays) == 0 {
		t.Fatal("expected plays entering from the bar")
	}
	for i, play := range ml.Plays {
		if play[0].From != White.BarPoint() {
			t.Errorf("play %d %s does not enter first", i, play)
		}
	}
}

func TestGenerateMovesBlocked(t *testing.T) {
	points := map[int]int8{6: 14, 1: -3}
	for point := 19; point <= 24; point++ {
		points[point] = -2
	}
	b := newBoard(points, 1, 0)
	ml := GenerateMoves(b, Dice{3, 1})

	if len(ml.Plays) != 1 || len(ml.Plays[0]) != 0 {
		t.Fatalf("plays = %v, want one empty play", ml.Plays)
	}
	if ml.MaxMoves != 0 {
		t.Errorf("MaxMoves = %d, want 0", ml.MaxMoves)
	}
	if ml.Results[0] != b {
		t.Error("passing must leave the board unchanged")
	}
}

func TestLargerDieRule(t *testing.T) {
	// Either die can be played alone but never both: 13/7 then 7/6 and
	// 13/12 then 12/6 are blocked.
	b := newBoard(map[int]int8{13: 1, 6: -2, 24: -13}, 0, 0)
	for _, dice := range []Dice{{6, 1}, {1, 6}} {
		plays := LegalPlays(b, dice)
		if len(plays) != 1 {
			t.Fatalf("%s: plays = %v, want only 13/7", dice, plays)
		}
		if got := plays[0].String(); got != "13/7" {
			t.Errorf("%s: play = %s, want 13/7", dice, got)
		}
	}
}

func TestDoublesPartial(t *testing.T) {
	b := newBoard(map[int]int8{24: 1, 18: -2, 1: -13}, 0, 0)
	ml := GenerateMoves(b, Dice{2, 2})

	if ml.MaxMoves != 2 {
		t.Errorf("MaxMoves = %d, want 2", ml.MaxMoves)
	}
	if len(ml.Plays) != 1 || ml.Plays[0].String() != "24/22 22/20" {
		t.Errorf("plays = %v, want [24/22 22/20]", ml.Plays)
	}
}

func TestSingleMovesBearOff(t *testing.T) {
	b := newBoard(map[int]int8{5: 1, 2: 1, 24: -15}, 0, 0)

	tests := []struct {
		die  int
		want []string
	}{
		{2, []string{"2/off", "5/3"}},
		{4, []string{"5/1"}},
		{6, []string{"5/off"}},
	}
	for _, tc := range tests {
		moves := SingleMoves(&b, White, tc.die)
		var got []string
		for _, m := range moves {
			got = append(got, m.String())
		}
		if len(got) != len(tc.want) {
			t.Errorf("die %d: moves = %v, want %v", tc.die, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("die %d: moves = %v, want %v", tc.die, got, tc.want)
				break
			}
		}
	}
}

func TestSingleMovesBearOffBlack(t *testing.T) {
	b := newBoard(map[int]int8{20: -1, 23: -1, 1: 15}, 0, 0)
	moves := SingleMoves(&b, Black, 6)
	if len(moves) != 1 {
		t.Fatalf("moves = %v, want only 20/off", moves)
	}
	m := moves[0]
	if m.From != 20 || m.To != Black.OffPoint() || !m.IsBearOff {
		t.Errorf("move = %+v, want bear-off from 20", m)
	}
}

func TestGenerateMovesBearOffWins(t *testing.T) {
	b := newBoard(map[int]int8{1: 2, 24: -15}, 0, 0)
	ml := GenerateMoves(b, Dice{6, 5})

	if len(ml.Plays) != 1 {
		t.Fatalf("plays = %v, want one", ml.Plays)
	}
	after := ml.Results[0]
	if winner, mult := after.GameResult(); winner != White || mult != 2 {
		t.Errorf("GameResult() = (%s, %d), want (white, 2)", winner, mult)
	}
}

func TestGenerateMovesHit(t *testing.T) {
	b := newBoard(map[int]int8{8: 2, 6: 13, 5: -1, 24: -14}, 0, 0)
	ml := GenerateMoves(b, Dice{3, 1})

	var hits int
	for i, play := range ml.Plays {
		hits += CountHits(play)
		if err := ml.Results[i].Validate(); err != nil {
			t.Errorf("play %s: %v", play, err)
		}
	}
	if hits == 0 {
		t.Error("expected at least one play hitting the blot on 5")
	}
}

func TestRemainingPlays(t *testing.T) {
	b := StartingPosition().Apply(CheckerMove{From: 8, To: 5, Die: 3}, White)
	ml := RemainingPlays(b, White, []int{1})

	if ml.MaxMoves != 1 {
		t.Fatalf("MaxMoves = %d, want 1", ml.MaxMoves)
	}
	if !containsPlay(ml.Plays, "6/5") {
		t.Errorf("6/5 missing from %v", ml.Plays)
	}

	done := RemainingPlays(b, White, nil)
	if len(done.Plays) != 1 || len(done.Plays[0]) != 0 || done.Results[0] != b {
		t.Errorf("no dice left: plays = %v", done.Plays)
	}
}

func TestNotation(t *testing.T) {
	tests := []struct {
		move CheckerMove
		want string
	}{
		{CheckerMove{From: 25, To: 22, Die: 3, IsHit: true}, "bar/22*"},
		{CheckerMove{From: 0, To: 3, Die: 3}, "bar/3"},
		{CheckerMove{From: 6, To: 0, Die: 6, IsBearOff: true}, "6/off"},
		{CheckerMove{From: 20, To: 25, Die: 5, IsBearOff: true}, "20/off"},
		{CheckerMove{From: 13, To: 7, Die: 6}, "13/7"},
	}
	for _, tc := range tests {
		if got := tc.move.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}

	if got := (Play{}).String(); got != "pass" {
		t.Errorf("empty play = %q, want pass", got)
	}
	play := Play{{From: 8, To: 5, Die: 3}, {From: 6, To: 5, Die: 1}}
	if got := play.String(); got != "8/5 6/5" {
		t.Errorf("play = %q, want 8/5 6/5", got)
	}
}
