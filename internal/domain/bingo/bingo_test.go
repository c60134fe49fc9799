package bingo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckBingo(t *testing.T) {
	card := []int{3, 17, 42, 60, 75}

	assert.True(t, CheckBingo(card, card), "card always wins against itself")
	assert.False(t, CheckBingo(card, nil), "nothing drawn")
	assert.False(t, CheckBingo(card, []int{3, 17, 42, 60}))
	assert.True(t, CheckBingo(card, []int{1, 75, 60, 2, 42, 17, 3}))
	assert.False(t, CheckBingo(nil, []int{1, 2, 3}), "empty card")
	assert.False(t, CheckBingo([]int{0, 76}, []int{0, 76}), "out of range numbers never match")
}

func TestMarkNumberIsIdempotent(t *testing.T) {
	card := []int{5, 10, 15}

	marked, changed := MarkNumber(card, nil, 10)
	require.True(t, changed)
	assert.Equal(t, []int{10}, marked)

	marked, changed = MarkNumber(card, marked, 10)
	assert.False(t, changed)
	assert.Equal(t, []int{10}, marked)

	marked, changed = MarkNumber(card, marked, 11)
	assert.False(t, changed, "numbers outside the card are ignored")

	marked, _ = MarkNumber(card, marked, 5)
	assert.Equal(t, []int{5, 10}, marked)
}

func TestNewCard(t *testing.T) {
	rng := SeedFrom(7)
	for _, size := range []int{1, 24, 75} {
		card, err := NewCard(size, rng)
		require.NoError(t, err)
		require.Len(t, card, size)

		seen := map[int]bool{}
		for i, n := range card {
			assert.True(t, inRange(n))
			assert.False(t, seen[n], "duplicate %d", n)
			seen[n] = true
			if i > 0 {
				assert.Less(t, card[i-1], n)
			}
		}
	}

	_, err := NewCard(0, rng)
	assert.ErrorIs(t, err, ErrInvalidCardSize)
	_, err = NewCard(76, rng)
	assert.ErrorIs(t, err, ErrInvalidCardSize)
}

func TestPickExhaustsRoundWithoutRepeats(t *testing.T) {
	rng := SeedFrom(42)
	var drawn []int
	seen := map[int]bool{}

	for i := 0; i < MaxNumber; i++ {
		n, err := Pick(drawn, rng)
		require.NoError(t, err)
		require.False(t, seen[n], "number %d drawn twice", n)
		seen[n] = true
		drawn = append(drawn, n)
	}

	_, err := Pick(drawn, rng)
	assert.True(t, errors.Is(err, ErrNoNumbersRemaining))
	assert.Len(t, seen, MaxNumber)
}

func TestRandomPickerStaysInComplement(t *testing.T) {
	drawn := Remaining([]int{9})
	n, err := RandomPicker{}.Pick(drawn)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}

func TestGridAndSortedViewsKeepHistory(t *testing.T) {
	history := []int{50, 3, 71}

	assert.Equal(t, []int{3, 50, 71}, SortedNumbers(history))
	assert.Equal(t, []int{50, 3, 71}, history, "history order must not change")

	grid := Grid(history)
	require.Len(t, grid, MaxNumber)
	assert.Equal(t, GridCell{Number: 3, Drawn: true}, grid[2])
	assert.Equal(t, GridCell{Number: 4, Drawn: false}, grid[3])
}
