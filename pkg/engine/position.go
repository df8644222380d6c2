// Package engine provides the backgammon rules: board model, legal play
// generation and the fallback positional heuristic.
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// NumCheckers is the number of checkers each player owns.
const NumCheckers = 15

// MaxCubeValue is the highest value the doubling cube may reach.
const MaxCubeValue = 64

// ErrCheckerCount is returned by Validate when a player does not own exactly
// NumCheckers checkers.
var ErrCheckerCount = errors.New("checker count invariant violated")

// Player identifies one side of the board.
type Player int8

const (
	NoPlayer Player = -1
	White    Player = 0 // moves 24 -> 1, home board 1-6
	Black    Player = 1 // moves 1 -> 24, home board 19-24
)

// String returns "white" or "black".
func (p Player) String() string {
	switch p {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return "none"
}

// ParsePlayer is the inverse of String.
func ParsePlayer(s string) (Player, error) {
	switch strings.ToLower(s) {
	case "white", "w", "o":
		return White, nil
	case "black", "b", "x":
		return Black, nil
	case "", "none", "centered":
		return NoPlayer, nil
	}
	return NoPlayer, fmt.Errorf("unknown player %q", s)
}

// MarshalText encodes the player by name.
func (p Player) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a name produced by MarshalText.
func (p *Player) UnmarshalText(text []byte) error {
	v, err := ParsePlayer(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Opponent returns the other player.
func (p Player) Opponent() Player {
	return 1 - p
}

// Direction is the sign of a move in point numbers.
func (p Player) Direction() int {
	if p == White {
		return -1
	}
	return 1
}

// BarPoint is the origin used for a checker entering from the bar.
func (p Player) BarPoint() int {
	if p == White {
		return 25
	}
	return 0
}

// OffPoint is the destination recorded for a bear-off.
func (p Player) OffPoint() int {
	if p == White {
		return 0
	}
	return 25
}

// HomeRange returns the lowest and highest point of the player's home board.
func (p Player) HomeRange() (lo, hi int) {
	if p == White {
		return 1, 6
	}
	return 19, 24
}

// InHome reports whether point lies in the player's home board.
func (p Player) InHome(point int) bool {
	lo, hi := p.HomeRange()
	return point >= lo && point <= hi
}

// pips returns the distance from point to bearing off.
func (p Player) pips(point int) int {
	if p == White {
		return point
	}
	return 25 - point
}

// Dice is one roll of two dice.
type Dice [2]int

// IsDoubles reports whether both dice show the same value.
func (d Dice) IsDoubles() bool {
	return d[0] == d[1]
}

// Valid reports whether both dice are in 1-6.
func (d Dice) Valid() bool {
	return d[0] >= 1 && d[0] <= 6 && d[1] >= 1 && d[1] <= 6
}

// Moves returns the die values available to play, four for doubles.
func (d Dice) Moves() []int {
	if !d.Valid() {
		return nil
	}
	if d.IsDoubles() {
		return []int{d[0], d[0], d[0], d[0]}
	}
	return []int{d[0], d[1]}
}

// String formats the roll as "31".
func (d Dice) String() string {
	return fmt.Sprintf("%d%d", d[0], d[1])
}

// CubeState is the doubling cube. Owner is NoPlayer while centered.
type CubeState struct {
	Value int    `json:"value"`
	Owner Player `json:"owner"`
}

// CenteredCube returns a cube at 1 in the middle.
func CenteredCube() CubeState {
	return CubeState{Value: 1, Owner: NoPlayer}
}

// CanDouble reports whether p may offer the cube, ignoring match rules.
func (c CubeState) CanDouble(p Player) bool {
	return c.Value < MaxCubeValue && (c.Owner == NoPlayer || c.Owner == p)
}

// Board is a complete position. It is a value type: two boards are the same
// position iff they compare equal with ==, which also makes Board usable as a
// map key when deduplicating plays.
//
// Points[1..24] hold signed checker counts, positive for White and negative
// for Black. Points[0] is unused.
type Board struct {
	Points [25]int8  `json:"points"`
	Bar    [2]int8   `json:"bar"`
	Off    [2]int8   `json:"off"`
	Cube   CubeState `json:"cube"`
	Turn   Player    `json:"turn"`
}

// StartingPosition returns the standard starting position with White on roll.
func StartingPosition() Board {
	var b Board
	b.Points[24] = 2
	b.Points[13] = 5
	b.Points[8] = 3
	b.Points[6] = 5

	b.Points[1] = -2
	b.Points[12] = -5
	b.Points[17] = -3
	b.Points[19] = -5

	b.Cube = CenteredCube()
	b.Turn = White
	return b
}

// Checkers returns how many of p's checkers sit on point (1-24).
func (b *Board) Checkers(point int, p Player) int {
	v := int(b.Points[point])
	if p == White && v > 0 {
		return v
	}
	if p == Black && v < 0 {
		return -v
	}
	return 0
}

// PipCount returns the total pips p needs to bear off. A checker on the bar
// counts 25.
func (b *Board) PipCount(p Player) int {
	pips := 25 * int(b.Bar[p])
	for point := 1; point <= 24; point++ {
		pips += b.Checkers(point, p) * p.pips(point)
	}
	return pips
}

// CheckerCount returns the checkers p owns on points, bar and off.
func (b *Board) CheckerCount(p Player) int {
	n := int(b.Bar[p]) + int(b.Off[p])
	for point := 1; point <= 24; point++ {
		n += b.Checkers(point, p)
	}
	return n
}

// Validate checks the 15 checkers per player invariant.
func (b *Board) Validate() error {
	for _, p := range []Player{White, Black} {
		if n := b.CheckerCount(p); n != NumCheckers {
			return fmt.Errorf("%w: %s has %d", ErrCheckerCount, p, n)
		}
	}
	return nil
}

// CanBearOff reports whether p has nothing on the bar and every checker in
// the home board.
func (b *Board) CanBearOff(p Player) bool {
	if b.Bar[p] > 0 {
		return false
	}
	for point := 1; point <= 24; point++ {
		if !p.InHome(point) && b.Checkers(point, p) > 0 {
			return false
		}
	}
	return true
}

// IsPointOpen reports whether p may land on point: at most one opposing checker.
func (b *Board) IsPointOpen(point int, p Player) bool {
	return b.Checkers(point, p.Opponent()) <= 1
}

// IsBlot reports whether point holds exactly one opposing checker.
func (b *Board) IsBlot(point int, p Player) bool {
	return b.Checkers(point, p.Opponent()) == 1
}

// hasCheckerBehind reports whether p has a checker strictly farther from
// home than point.
func (b *Board) hasCheckerBehind(point int, p Player) bool {
	if p == White {
		for q := point + 1; q <= 24; q++ {
			if b.Checkers(q, p) > 0 {
				return true
			}
		}
		return false
	}
	for q := point - 1; q >= 1; q-- {
		if b.Checkers(q, p) > 0 {
			return true
		}
	}
	return false
}

func sign(p Player) int8 {
	if p == White {
		return 1
	}
	return -1
}

// Apply returns the board after p plays m. It does not check legality: only
// moves produced by the generator should be applied. The receiver is not
// modified.
func (b Board) Apply(m CheckerMove, p Player) Board {
	s := sign(p)
	if m.From == p.BarPoint() {
		b.Bar[p]--
	} else {
		b.Points[m.From] -= s
	}

	if m.IsBearOff {
		b.Off[p]++
		return b
	}

	if b.IsBlot(m.To, p) {
		b.Points[m.To] = 0
		b.Bar[p.Opponent()]++
	}
	b.Points[m.To] += s
	return b
}

// ApplyPlay applies every move of play in order.
func (b Board) ApplyPlay(play Play, p Player) Board {
	for _, m := range play {
		b = b.Apply(m, p)
	}
	return b
}

// IsGameOver reports whether either player has borne off every checker.
func (b *Board) IsGameOver() bool {
	return b.Winner() != NoPlayer
}

// Winner returns the player who has borne off all checkers, or NoPlayer.
func (b *Board) Winner() Player {
	switch {
	case b.Off[White] == NumCheckers:
		return White
	case b.Off[Black] == NumCheckers:
		return Black
	}
	return NoPlayer
}

// GameResult returns the winner and the result multiplier: 1 single,
// 2 gammon, 3 backgammon. The multiplier is 0 while the game is running.
func (b *Board) GameResult() (Player, int) {
	winner := b.Winner()
	if winner == NoPlayer {
		return NoPlayer, 0
	}
	loser := winner.Opponent()
	if b.Off[loser] > 0 {
		return winner, 1
	}
	if b.Bar[loser] > 0 {
		return winner, 3
	}
	lo, hi := winner.HomeRange()
	for point := lo; point <= hi; point++ {
		if b.Checkers(point, loser) > 0 {
			return winner, 3
		}
	}
	return winner, 2
}

// String renders the position compactly, e.g. "24:2 13:5 ... | bar 0/0 off 0/0".
func (b Board) String() string {
	var sb strings.Builder
	for point := 24; point >= 1; point-- {
		if v := b.Points[point]; v != 0 {
			fmt.Fprintf(&sb, "%d:%+d ", point, v)
		}
	}
	fmt.Fprintf(&sb, "| bar %d/%d off %d/%d cube %d", b.Bar[White], b.Bar[Black], b.Off[White], b.Off[Black], b.Cube.Value)
	if b.Cube.Owner != NoPlayer {
		fmt.Fprintf(&sb, "(%s)", b.Cube.Owner)
	}
	fmt.Fprintf(&sb, " turn %s", b.Turn)
	return sb.String()
}
