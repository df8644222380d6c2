package met

import (
	"math"
	"strings"
	"testing"
)

const eps = 1e-9

func TestDefaultBoundaries(t *testing.T) {
	table := Default()

	if got := table.Equity(1, 1); math.Abs(got-0.5) > eps {
		t.Errorf("Equity(1, 1) = %v, want 0.5", got)
	}
	for n := 1; n < Size; n++ {
		if got := table.Equity(0, n); got != 1 {
			t.Errorf("Equity(0, %d) = %v, want 1", n, got)
		}
		if got := table.Equity(n, 0); got != 0 {
			t.Errorf("Equity(%d, 0) = %v, want 0", n, got)
		}
	}
}

func TestDefaultSymmetry(t *testing.T) {
	table := Default()
	for a := 1; a < Size; a++ {
		for b := 1; b < Size; b++ {
			if got := table.Equity(a, b) + table.Equity(b, a); math.Abs(got-1) > eps {
				t.Errorf("Equity(%d,%d) + Equity(%d,%d) = %v, want 1", a, b, b, a, got)
			}
		}
	}
}

func TestDefaultMonotone(t *testing.T) {
	table := Default()
	for a := 1; a < Size-1; a++ {
		for b := 1; b < Size; b++ {
			if table.Equity(a, b) < table.Equity(a+1, b) {
				t.Errorf("Equity(%d,%d) < Equity(%d,%d)", a, b, a+1, b)
			}
		}
	}
	if got := table.Equity(2, 1); got >= 0.5 {
		t.Errorf("Equity(2, 1) = %v, want below 0.5 for the trailer", got)
	}
}

func TestEquityClamp(t *testing.T) {
	table := Default()
	if table.Equity(40, 3) != table.Equity(Size-1, 3) {
		t.Error("away values above the table should clamp to the last row")
	}
	if table.Equity(-2, 5) != 1 {
		t.Error("negative away should clamp to 0 away")
	}
}

func TestScoreEquity(t *testing.T) {
	table := Default()
	tests := []struct {
		name    string
		white   int
		black   int
		length  int
		wantMin float64
		wantMax float64
	}{
		{"0-0 in 7", 0, 0, 7, 0.5 - eps, 0.5 + eps},
		{"leading", 4, 0, 7, 0.5, 1},
		{"trailing", 0, 4, 7, 0, 0.5},
		{"won", 7, 3, 7, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.ScoreEquity(tt.white, tt.black, tt.length)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("ScoreEquity = %v, want in [%v, %v]", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

const sampleXML = `<?xml version="1.0"?>
<met>
  <info>
    <name>Sample</name>
    <description>three away</description>
    <length>3</length>
  </info>
  <pre-crawford-table type="explicit">
    <row><me>0.5</me><me>0.68</me><me>0.75</me></row>
    <row><me>0.32</me><me>0.5</me><me>0.6</me></row>
    <row><me>0.25</me><me>0.4</me><me>0.5</me></row>
  </pre-crawford-table>
</met>`

func TestParseXML(t *testing.T) {
	table, err := ParseXML(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatalf("ParseXML: %v", err)
	}
	if table.Name != "Sample" || table.Length != 3 {
		t.Errorf("info = %q/%d", table.Name, table.Length)
	}
	if got := table.Equity(1, 2); got != 0.68 {
		t.Errorf("Equity(1, 2) = %v, want 0.68", got)
	}
	if got := table.Equity(3, 2); math.Abs(got-0.4) > eps {
		t.Errorf("Equity(3, 2) = %v, want 0.4", got)
	}
	if got := table.Equity(1, 1); got != 0.5 {
		t.Errorf("Equity(1, 1) = %v, want 0.5", got)
	}
	// Cells outside the file fall back to the default table.
	if got, want := table.Equity(5, 9), Default().Equity(5, 9); got != want {
		t.Errorf("Equity(5, 9) = %v, want %v", got, want)
	}
}

func TestParseXMLErrors(t *testing.T) {
	if _, err := ParseXML(strings.NewReader("<met>")); err == nil {
		t.Error("expected error for truncated XML")
	}
	empty := `<met><info><name>x</name></info></met>`
	if _, err := ParseXML(strings.NewReader(empty)); err == nil {
		t.Error("expected error for missing table")
	}
	bad := `<met><pre-crawford-table><row><me>abc</me></row></pre-crawford-table></met>`
	if _, err := ParseXML(strings.NewReader(bad)); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestLoadXMLMissing(t *testing.T) {
	if _, err := LoadXML("does-not-exist.xml"); err == nil {
		t.Error("expected error for missing file")
	}
}
