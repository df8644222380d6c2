// Package positionid implements GNU Backgammon position IDs.
//
// A position ID is a 14-character base64 string packing 80 bits: for each
// side, every point from that side's 1 point to its 24 point and then its bar
// is written as one 1-bit per checker followed by a 0-bit. The side not on
// roll is written first.
package positionid

import (
	"errors"
	"fmt"

	"github.com/yourusername/bgtutor/pkg/engine"
)

// PositionIDLength is the length of a position ID string
const PositionIDLength = 14

// Base64 alphabet used for position ID encoding
const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// ErrInvalidPositionID is returned when a position ID is invalid
var ErrInvalidPositionID = errors.New("invalid position ID")

// halves holds checker counts per side, each from its own perspective:
// index 0-23 are the side's points 1-24 and index 24 its bar.
type halves [2][25]uint8

// key is the packed 80-bit form.
type key [10]uint8

// sides returns the players written in the first and second half.
func sides(turn engine.Player) [2]engine.Player {
	if turn == engine.Black {
		return [2]engine.Player{engine.White, engine.Black}
	}
	return [2]engine.Player{engine.Black, engine.White}
}

// boardPoint maps p's own point number to the board's numbering.
func boardPoint(own int, p engine.Player) int {
	if p == engine.Black {
		return 25 - own
	}
	return own
}

func halvesFromBoard(b *engine.Board) halves {
	var h halves
	for i, p := range sides(b.Turn) {
		for own := 1; own <= 24; own++ {
			h[i][own-1] = uint8(b.Checkers(boardPoint(own, p), p))
		}
		h[i][24] = uint8(b.Bar[p])
	}
	return h
}

// addBits sets nBits 1-bits starting at bitPos.
func addBits(k *key, bitPos, nBits uint32) {
	for i := uint32(0); i < nBits; i++ {
		pos := bitPos + i
		if pos >= 80 {
			return
		}
		k[pos/8] |= 1 << (pos % 8)
	}
}

func (h *halves) pack() key {
	var k key
	var bitPos uint32
	for i := 0; i < 2; i++ {
		for j := 0; j < 25; j++ {
			nc := uint32(h[i][j])
			addBits(&k, bitPos, nc)
			bitPos += nc + 1
		}
	}
	return k
}

func (k key) unpack() (halves, error) {
	var h halves
	i, j := 0, 0
	for a := 0; a < len(k); a++ {
		cur := k[a]
		for bit := 0; bit < 8; bit++ {
			if cur&0x1 != 0 {
				if i >= 2 {
					return h, fmt.Errorf("%w: too many checkers", ErrInvalidPositionID)
				}
				h[i][j]++
			} else {
				j++
				if j == 25 {
					i++
					j = 0
				}
			}
			cur >>= 1
		}
	}
	return h, nil
}

func (k key) String() string {
	result := make([]byte, PositionIDLength)
	puch := k[:]
	for i := 0; i < 3; i++ {
		result[i*4] = base64Chars[puch[0]>>2]
		result[i*4+1] = base64Chars[((puch[0]&0x03)<<4)|(puch[1]>>4)]
		result[i*4+2] = base64Chars[((puch[1]&0x0F)<<2)|(puch[2]>>6)]
		result[i*4+3] = base64Chars[puch[2]&0x3F]
		puch = puch[3:]
	}
	result[12] = base64Chars[puch[0]>>2]
	result[13] = base64Chars[(puch[0]&0x03)<<4]
	return string(result)
}

// base64Decode decodes a base64 character to its value
func base64Decode(ch byte) uint8 {
	switch {
	case ch >= 'A' && ch <= 'Z':
		return ch - 'A'
	case ch >= 'a' && ch <= 'z':
		return ch - 'a' + 26
	case ch >= '0' && ch <= '9':
		return ch - '0' + 52
	case ch == '+':
		return 62
	case ch == '/':
		return 63
	}
	return 255
}

func parseKey(id string) (key, error) {
	var k key
	if len(id) != PositionIDLength {
		return k, fmt.Errorf("%w: length %d", ErrInvalidPositionID, len(id))
	}
	ach := make([]uint8, PositionIDLength)
	for i := 0; i < PositionIDLength; i++ {
		ach[i] = base64Decode(id[i])
		if ach[i] == 255 {
			return k, fmt.Errorf("%w: bad character %q", ErrInvalidPositionID, id[i])
		}
	}
	pch := ach
	for i := 0; i < 3; i++ {
		k[i*3] = (pch[0] << 2) | (pch[1] >> 4)
		k[i*3+1] = (pch[1] << 4) | (pch[2] >> 2)
		k[i*3+2] = (pch[2] << 6) | pch[3]
		pch = pch[4:]
	}
	k[9] = (pch[0] << 2) | (pch[1] >> 4)
	return k, nil
}

// Encode returns the position ID of b. Cube and borne-off counts are not part
// of the ID.
func Encode(b engine.Board) string {
	h := halvesFromBoard(&b)
	return h.pack().String()
}

// Decode rebuilds the board of a position ID with turn on roll. Checkers
// missing from the ID are counted as borne off and the cube is centered.
func Decode(id string, turn engine.Player) (engine.Board, error) {
	var b engine.Board
	k, err := parseKey(id)
	if err != nil {
		return b, err
	}
	h, err := k.unpack()
	if err != nil {
		return b, err
	}
	if err := h.check(); err != nil {
		return b, err
	}

	b.Turn = turn
	b.Cube = engine.CenteredCube()
	for i, p := range sides(turn) {
		sign := int8(1)
		if p == engine.Black {
			sign = -1
		}
		total := 0
		for own := 1; own <= 24; own++ {
			n := h[i][own-1]
			b.Points[boardPoint(own, p)] += sign * int8(n)
			total += int(n)
		}
		b.Bar[p] = int8(h[i][24])
		total += int(h[i][24])
		b.Off[p] = int8(engine.NumCheckers - total)
	}
	return b, nil
}

// check validates decoded halves: at most 15 checkers a side and no point
// shared by both sides.
func (h *halves) check() error {
	var ac [2]int
	for i := 0; i < 25; i++ {
		ac[0] += int(h[0][i])
		ac[1] += int(h[1][i])
	}
	if ac[0] > engine.NumCheckers || ac[1] > engine.NumCheckers {
		return fmt.Errorf("%w: more than %d checkers", ErrInvalidPositionID, engine.NumCheckers)
	}
	for i := 0; i < 24; i++ {
		if h[0][i] > 0 && h[1][23-i] > 0 {
			return fmt.Errorf("%w: point shared by both sides", ErrInvalidPositionID)
		}
	}
	return nil
}
