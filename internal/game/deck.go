// internal/game/deck.go
package game

import (
	"errors"
	"math/rand"

	"github.com/nuno-online/nuno/internal/models"
)

// DeckSize is the number of cards BuildDeck produces.
const DeckSize = 108

// ErrEmptyDeck is returned when a card is drawn from an exhausted deck.
var ErrEmptyDeck = errors.New("deck is empty")

// BuildDeck returns a fresh, unshuffled deck. The deck is built as two halves:
// each color gets numbers 1-9 on the odd half and 0-9 on the even half, plus one
// skip, reverse and draw-two per half. Each half also adds two wild and two
// wild-draw-four cards.
//
// That gives four of each wild kind, which keeps the deck at DeckSize (108).
//
// No randomness is applied here; cards are picked uniformly at draw time.
func BuildDeck() []models.Card {
	deck := make([]models.Card, 0, DeckSize)
	add := func(kind models.CardKind, color models.Color, number int) {
		deck = append(deck, models.Card{ID: len(deck), Kind: kind, Color: color, Number: number})
	}

	for half := 1; half <= 2; half++ {
		for _, color := range models.Colors {
			for n := 0; n <= 9; n++ {
				if n != 0 || half%2 == 0 {
					add(models.KindNumber, color, n)
				}
			}
			add(models.KindSkip, color, 0)
			add(models.KindReverse, color, 0)
			add(models.KindDrawTwo, color, 0)
		}

		for j := 1; j <= 2; j++ {
			add(models.KindWild, models.ColorNone, 0)
			add(models.KindWildDrawFour, models.ColorNone, 0)
		}
	}

	return deck
}

// takeRandomCard removes a uniformly chosen card from deck and returns it.
func takeRandomCard(rng *rand.Rand, deck *[]models.Card) (models.Card, error) {
	cards := *deck
	if len(cards) == 0 {
		return models.Card{}, ErrEmptyDeck
	}

	idx := rng.Intn(len(cards))
	card := cards[idx]

	last := len(cards) - 1
	cards[idx] = cards[last]
	*deck = cards[:last]

	return card, nil
}
