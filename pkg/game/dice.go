package game

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/yourusername/bgtutor/pkg/engine"
)

// DiceSource produces dice rolls. Tests inject a FixedDice.
type DiceSource interface {
	Roll() engine.Dice
}

// RandomDice rolls with a seeded PCG generator.
type RandomDice struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandomDice creates a source seeded with seed, or with the clock when
// seed is 0.
func NewRandomDice(seed uint64) *RandomDice {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomDice{r: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

func (d *RandomDice) Roll() engine.Dice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return engine.Dice{1 + d.r.IntN(6), 1 + d.r.IntN(6)}
}

// FixedDice replays a list of rolls, starting over when it runs out.
type FixedDice struct {
	mu    sync.Mutex
	rolls []engine.Dice
	next  int
}

func NewFixedDice(rolls ...engine.Dice) *FixedDice {
	return &FixedDice{rolls: rolls}
}

func (d *FixedDice) Roll() engine.Dice {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.rolls[d.next%len(d.rolls)]
	d.next++
	return r
}
