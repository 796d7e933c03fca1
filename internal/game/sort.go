// internal/game/sort.go
package game

import (
	"sort"

	"github.com/nuno-online/nuno/internal/models"
)

// actionOrder is the display order of colored action cards after the numbers.
var actionOrder = map[models.CardKind]int{
	models.KindDrawTwo: 1,
	models.KindSkip:    2,
	models.KindReverse: 3,
}

// SortHand returns the hand in display order: colors with the fewest cards
// first, numbers ascending, then draw-two, skip and reverse; wild cards last.
// The input slice is not modified.
func SortHand(hand []models.Card) []models.Card {
	counts := make(map[models.Color]int, len(models.Colors))
	for _, c := range hand {
		if !c.Kind.IsWild() {
			counts[c.Color]++
		}
	}

	colorRank := make(map[models.Color]int, len(models.Colors))
	colors := append([]models.Color(nil), models.Colors...)
	sort.SliceStable(colors, func(i, j int) bool {
		return counts[colors[i]] < counts[colors[j]]
	})
	for i, c := range colors {
		colorRank[c] = i
	}

	sorted := append([]models.Card(nil), hand...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Kind.IsWild() || b.Kind.IsWild() {
			return wildRank(a) < wildRank(b)
		}
		if a.Color != b.Color {
			return colorRank[a.Color] < colorRank[b.Color]
		}
		if a.Kind == models.KindNumber && b.Kind == models.KindNumber {
			return a.Number < b.Number
		}
		return actionOrder[a.Kind] < actionOrder[b.Kind]
	})
	return sorted
}

func wildRank(c models.Card) int {
	switch c.Kind {
	case models.KindWild:
		return 1
	case models.KindWildDrawFour:
		return 2
	}
	return 0
}
