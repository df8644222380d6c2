// Package met provides match equity table functionality.
// Match equity tables give the probability of winning a match from a given score.
package met

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Size is the number of away values the table covers: 0 through 15.
// Larger away values are clamped to the last row.
const Size = 16

// DefaultGammonRate is the share of games ending in a gammon assumed by Default.
const DefaultGammonRate = 0.2

// Table represents a match equity table.
type Table struct {
	Name        string
	Description string
	Length      int // Native length of the table

	// equity[a][b] = P(first player wins | first player a away, opponent b away)
	equity [Size][Size]float64
}

// XML parsing structures, gnubg MET format.
type xmlMET struct {
	XMLName     xml.Name       `xml:"met"`
	Info        xmlInfo        `xml:"info"`
	PreCrawford xmlPreCrawford `xml:"pre-crawford-table"`
}

type xmlInfo struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Length      int    `xml:"length"`
}

type xmlPreCrawford struct {
	Type string   `xml:"type,attr"`
	Rows []xmlRow `xml:"row"`
}

type xmlRow struct {
	Values []string `xml:"me"`
}

// LoadXML loads a match equity table from an XML file
func LoadXML(filename string) (*Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open MET file: %w", err)
	}
	defer f.Close()
	return ParseXML(f)
}

// ParseXML parses the pre-Crawford part of a gnubg XML match equity table.
// Row i, column j of the file is the equity of a player i+1 away against an
// opponent j+1 away. Cells the file does not cover are taken from Default.
func ParseXML(r io.Reader) (*Table, error) {
	var m xmlMET
	if err := xml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse MET XML: %w", err)
	}
	if len(m.PreCrawford.Rows) == 0 {
		return nil, fmt.Errorf("MET %q has no pre-crawford table", m.Info.Name)
	}

	t := Default()
	t.Name = m.Info.Name
	t.Description = m.Info.Description
	t.Length = m.Info.Length

	for i, row := range m.PreCrawford.Rows {
		if i+1 >= Size {
			break
		}
		for j, val := range row.Values {
			if j+1 >= Size {
				break
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse MET value [%d][%d]: %w", i, j, err)
			}
			if f < 0 || f > 1 {
				return nil, fmt.Errorf("MET value [%d][%d] out of range: %v", i, j, f)
			}
			t.equity[i+1][j+1] = f
		}
	}
	return t, nil
}

// Default returns a table computed from a cubeless recurrence: each game is a
// coin flip that ends in a gammon with DefaultGammonRate.
func Default() *Table {
	t := &Table{
		Name:        "Default MET",
		Description: "Cubeless recurrence, 20% gammons",
		Length:      Size - 1,
	}
	g := DefaultGammonRate

	at := func(a, b int) float64 {
		if a <= 0 {
			return 1
		}
		if b <= 0 {
			return 0
		}
		return t.equity[a][b]
	}

	for a := 0; a < Size; a++ {
		for b := 0; b < Size; b++ {
			switch {
			case a == 0:
				t.equity[a][b] = 1
			case b == 0:
				t.equity[a][b] = 0
			default:
				win := (1-g)*at(a-1, b) + g*at(a-2, b)
				lose := (1-g)*at(a, b-1) + g*at(a, b-2)
				t.equity[a][b] = 0.5*win + 0.5*lose
			}
		}
	}
	return t
}

func clamp(away int) int {
	if away < 0 {
		return 0
	}
	if away >= Size {
		return Size - 1
	}
	return away
}

// Equity returns the probability that the first player wins the match when
// the first player needs awayWhite points and the opponent awayBlack. A side
// that is 0 away has already won. Lookups below the diagonal use the
// transposed entry, so Equity(a, b) == 1 - Equity(b, a).
func (t *Table) Equity(awayWhite, awayBlack int) float64 {
	a, b := clamp(awayWhite), clamp(awayBlack)
	if a == 0 {
		return 1
	}
	if b == 0 {
		return 0
	}
	if a > b {
		return 1 - t.equity[b][a]
	}
	return t.equity[a][b]
}

// ScoreEquity is Equity for a score in a match to length points.
func (t *Table) ScoreEquity(scoreWhite, scoreBlack, length int) float64 {
	return t.Equity(length-scoreWhite, length-scoreBlack)
}
