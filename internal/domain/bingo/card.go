package bingo

import (
	"math/rand/v2"
	"sort"
)

// Numbers are drawn from the closed range [MinNumber, MaxNumber].
const (
	MinNumber = 1
	MaxNumber = 75
)

func inRange(n int) bool {
	return n >= MinNumber && n <= MaxNumber
}

// CheckBingo reports whether every card number is present in drawn.
// An empty card never wins.
func CheckBingo(numbers, drawn []int) bool {
	if len(numbers) == 0 {
		return false
	}
	var seen [MaxNumber + 1]bool
	for _, n := range drawn {
		if inRange(n) {
			seen[n] = true
		}
	}
	for _, n := range numbers {
		if !inRange(n) || !seen[n] {
			return false
		}
	}
	return true
}

// MarkNumber adds n to marked when it belongs to the card.
// It returns the (possibly unchanged) marked set and whether a change happened.
func MarkNumber(numbers, marked []int, n int) ([]int, bool) {
	if !contains(numbers, n) || contains(marked, n) {
		return marked, false
	}
	out := make([]int, 0, len(marked)+1)
	out = append(out, marked...)
	out = append(out, n)
	sort.Ints(out)
	return out, true
}

// NewCard returns size distinct numbers from the range, sorted ascending.
func NewCard(size int, rng *rand.Rand) ([]int, error) {
	if size < 1 || size > MaxNumber {
		return nil, ErrInvalidCardSize
	}
	if rng == nil {
		rng = newDrawRand()
	}
	pool := rng.Perm(MaxNumber)[:size]
	card := make([]int, size)
	for i, p := range pool {
		card[i] = p + MinNumber
	}
	sort.Ints(card)
	return card, nil
}

func contains(set []int, n int) bool {
	for _, v := range set {
		if v == n {
			return true
		}
	}
	return false
}
