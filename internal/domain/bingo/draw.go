package bingo

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sort"
)

// Picker selects the next number of a round given the numbers already drawn in it.
type Picker interface {
	Pick(drawn []int) (int, error)
}

// RandomPicker picks uniformly from the remaining numbers with a source seeded per call.
type RandomPicker struct{}

func (RandomPicker) Pick(drawn []int) (int, error) {
	return Pick(drawn, newDrawRand())
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(drawn []int) (int, error)

func (f PickerFunc) Pick(drawn []int) (int, error) { return f(drawn) }

// Remaining returns the numbers not yet drawn, ascending.
func Remaining(drawn []int) []int {
	var seen [MaxNumber + 1]bool
	for _, n := range drawn {
		if inRange(n) {
			seen[n] = true
		}
	}
	out := make([]int, 0, MaxNumber)
	for n := MinNumber; n <= MaxNumber; n++ {
		if !seen[n] {
			out = append(out, n)
		}
	}
	return out
}

// Pick selects one number uniformly from the complement of drawn.
func Pick(drawn []int, rng *rand.Rand) (int, error) {
	left := Remaining(drawn)
	if len(left) == 0 {
		return 0, ErrNoNumbersRemaining
	}
	return left[rng.IntN(len(left))], nil
}

// newDrawRand seeds a fresh generator so consecutive draws share no state.
func newDrawRand() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewChaCha8(seed))
}

// GridCell is one slot of the 1..75 board.
type GridCell struct {
	Number int  `json:"number"`
	Drawn  bool `json:"drawn"`
}

// Grid is the numeric view of a round: every number with its drawn flag.
func Grid(drawn []int) []GridCell {
	var seen [MaxNumber + 1]bool
	for _, n := range drawn {
		if inRange(n) {
			seen[n] = true
		}
	}
	cells := make([]GridCell, 0, MaxNumber)
	for n := MinNumber; n <= MaxNumber; n++ {
		cells = append(cells, GridCell{Number: n, Drawn: seen[n]})
	}
	return cells
}

// SortedNumbers returns a copy of drawn in numeric order. History order is untouched.
func SortedNumbers(drawn []int) []int {
	out := append([]int(nil), drawn...)
	sort.Ints(out)
	return out
}

// SeedFrom builds a deterministic generator, used by tests and replays.
func SeedFrom(seed uint64) *rand.Rand {
	var b [32]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	return rand.New(rand.NewChaCha8(b))
}
