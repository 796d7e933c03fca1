// internal/game/deck_test.go
package game

import (
	"math/rand"
	"testing"

	"github.com/nuno-online/nuno/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDeckComposition(t *testing.T) {
	deck := BuildDeck()
	require.Len(t, deck, DeckSize)

	kinds := map[models.CardKind]int{}
	for _, c := range deck {
		kinds[c.Kind]++
	}
	assert.Equal(t, 76, kinds[models.KindNumber])
	assert.Equal(t, 8, kinds[models.KindSkip])
	assert.Equal(t, 8, kinds[models.KindReverse])
	assert.Equal(t, 8, kinds[models.KindDrawTwo])
	assert.Equal(t, 4, kinds[models.KindWild])
	assert.Equal(t, 4, kinds[models.KindWildDrawFour])

	for _, color := range models.Colors {
		numbers := map[int]int{}
		for _, c := range deck {
			if c.Kind == models.KindNumber && c.Color == color {
				numbers[c.Number]++
			}
		}
		assert.Equal(t, 1, numbers[0], "one zero per color (%s)", color)
		for n := 1; n <= 9; n++ {
			assert.Equal(t, 2, numbers[n], "two of %d per color (%s)", n, color)
		}
	}

	for _, c := range deck {
		if c.Kind.IsWild() {
			assert.Equal(t, models.ColorNone, c.Color)
		} else {
			assert.NotEqual(t, models.ColorNone, c.Color)
		}
	}
}

func TestBuildDeckDistinctInstances(t *testing.T) {
	deck := BuildDeck()
	seen := make(map[int]bool, len(deck))
	for _, c := range deck {
		assert.False(t, seen[c.ID], "duplicate card id %d", c.ID)
		seen[c.ID] = true
	}
}

func TestBuildDeckIsDeterministic(t *testing.T) {
	assert.Equal(t, BuildDeck(), BuildDeck())
}

func TestTakeRandomCard(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	deck := BuildDeck()

	drawn := map[int]bool{}
	for i := 0; i < DeckSize; i++ {
		c, err := takeRandomCard(rng, &deck)
		require.NoError(t, err)
		assert.False(t, drawn[c.ID], "card %d drawn twice", c.ID)
		drawn[c.ID] = true
		assert.Len(t, deck, DeckSize-i-1)
	}

	_, err := takeRandomCard(rng, &deck)
	assert.ErrorIs(t, err, ErrEmptyDeck)
}
