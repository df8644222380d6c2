package match

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yourusername/bgtutor/pkg/engine"
)

// MAT format is the Jellyfish/gnubg match format. White is written in the
// left column, Black in the right, each with its own point numbering.
//
//  ; [Player 1 "white"]
//  ; [Player 2 "black"]
//  7 point match
//
//  Game 1
//  white : 0                          black : 0
//    1) 31: 8/5 6/5                   52: 24/22 13/8

// Match groups the games of one match for export.
type Match struct {
	Players [2]string // indexed by engine.Player
	Length  int       // 0 = money session
	Date    string    // YYYY-MM-DD
	Event   string
	Games   []*GameRecord
}

const matColumn = 32

// ExportMAT writes a match in MAT format.
func ExportMAT(w io.Writer, m *Match) error {
	var sb strings.Builder
	if m.Event != "" {
		fmt.Fprintf(&sb, " ; [Event \"%s\"]\n", m.Event)
	}
	if m.Date != "" {
		fmt.Fprintf(&sb, " ; [Date \"%s\"]\n", m.Date)
	}
	fmt.Fprintf(&sb, " ; [Player 1 \"%s\"]\n", m.Players[engine.White])
	fmt.Fprintf(&sb, " ; [Player 2 \"%s\"]\n", m.Players[engine.Black])

	if m.Length > 0 {
		fmt.Fprintf(&sb, " %d point match\n\n", m.Length)
	} else {
		sb.WriteString(" Unlimited match\n\n")
	}

	for _, g := range m.Games {
		exportGameMAT(&sb, m, g)
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("writing MAT: %w", err)
	}
	return nil
}

// matLine is one numbered line: White's cell, then Black's.
type matLine struct {
	cells [2]string
	used  [2]bool
}

// exportGameMAT writes a single game in MAT format.
func exportGameMAT(sb *strings.Builder, m *Match, g *GameRecord) {
	fmt.Fprintf(sb, " Game %d\n", g.Number)
	left := fmt.Sprintf(" %s : %d", m.Players[engine.White], g.Score[engine.White])
	fmt.Fprintf(sb, "%-*s%s : %d\n", matColumn+5, left, m.Players[engine.Black], g.Score[engine.Black])

	var lines []matLine
	put := func(p engine.Player, cell string) {
		n := len(lines)
		if n == 0 || lines[n-1].used[p] || (p == engine.White && lines[n-1].used[engine.Black]) {
			lines = append(lines, matLine{})
			n++
		}
		lines[n-1].cells[p] = cell
		lines[n-1].used[p] = true
	}

	for _, a := range g.Actions {
		switch a.Type {
		case ActionMove:
			put(a.Player, fmt.Sprintf("%s: %s", a.Dice, formatPlayMAT(a.Play, a.Player)))
		case ActionDouble:
			put(a.Player, fmt.Sprintf(" Doubles => %d", a.Value))
		case ActionTake:
			put(a.Player, " Takes")
		case ActionDrop:
			put(a.Player, " Drops")
		case ActionBeaver:
			put(a.Player, fmt.Sprintf(" Beavers => %d", a.Value))
		case ActionWin:
			unit := "points"
			if a.Value == 1 {
				unit = "point"
			}
			put(a.Player, fmt.Sprintf("Wins %d %s", a.Value, unit))
		}
	}

	for i, l := range lines {
		fmt.Fprintf(sb, "%3d) %-*s%s\n", i+1, matColumn, l.cells[engine.White], l.cells[engine.Black])
	}
	sb.WriteString("\n")
}

// formatPlayMAT formats a play in the mover's own point numbering.
func formatPlayMAT(play engine.Play, p engine.Player) string {
	if len(play) == 0 {
		return ""
	}
	parts := make([]string, len(play))
	for i, mv := range play {
		from := formatPointMAT(mv.From, p)
		if mv.From == p.BarPoint() {
			from = "bar"
		}
		to := "off"
		if !mv.IsBearOff {
			to = formatPointMAT(mv.To, p)
		}
		if mv.IsHit {
			to += "*"
		}
		parts[i] = from + "/" + to
	}
	return strings.Join(parts, " ")
}

// formatPointMAT converts a board point to p's numbering.
func formatPointMAT(point int, p engine.Player) string {
	if p == engine.Black {
		point = 25 - point
	}
	return strconv.Itoa(point)
}
