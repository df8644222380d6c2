package engine

import (
	"strconv"
	"strings"
)

// String formats a single checker move, e.g. "bar/22*" or "6/off".
func (m CheckerMove) String() string {
	var sb strings.Builder
	if (m.From == 25 || m.From == 0) && !m.IsBearOff {
		sb.WriteString("bar")
	} else {
		sb.WriteString(strconv.Itoa(m.From))
	}
	sb.WriteByte('/')
	if m.IsBearOff {
		sb.WriteString("off")
	} else {
		sb.WriteString(strconv.Itoa(m.To))
	}
	if m.IsHit {
		sb.WriteByte('*')
	}
	return sb.String()
}

// String formats a play in the usual notation, e.g. "8/5 6/5". A play with
// no moves is written as "pass".
func (p Play) String() string {
	if len(p) == 0 {
		return "pass"
	}
	parts := make([]string, len(p))
	for i, m := range p {
		parts[i] = m.String()
	}
	return strings.Join(parts, " ")
}
