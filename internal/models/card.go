// internal/models/card.go
package models

import "fmt"

// CardKind identifies what a card does when played.
type CardKind int

const (
	KindNumber CardKind = iota
	KindSkip
	KindReverse
	KindDrawTwo
	KindWild
	KindWildDrawFour
)

var kindNames = map[CardKind]string{
	KindNumber:       "number",
	KindSkip:         "skip",
	KindReverse:      "reverse",
	KindDrawTwo:      "drawTwo",
	KindWild:         "wild",
	KindWildDrawFour: "wildDrawFour",
}

func (k CardKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsWild reports whether the kind carries no color.
func (k CardKind) IsWild() bool {
	return k == KindWild || k == KindWildDrawFour
}

// Color is one of the four card colors. ColorNone is used for wild cards.
type Color int

const (
	ColorNone Color = iota
	ColorRed
	ColorYellow
	ColorGreen
	ColorBlue
)

// Colors lists the four playable colors in deck order.
var Colors = []Color{ColorRed, ColorYellow, ColorGreen, ColorBlue}

var colorNames = map[Color]string{
	ColorNone:   "none",
	ColorRed:    "red",
	ColorYellow: "yellow",
	ColorGreen:  "green",
	ColorBlue:   "blue",
}

func (c Color) String() string {
	if s, ok := colorNames[c]; ok {
		return s
	}
	return fmt.Sprintf("color(%d)", int(c))
}

// Card is a single card instance. ID is unique within the deck it was built in,
// so two cards with equal values are still distinct instances.
type Card struct {
	ID     int      `json:"id"`
	Kind   CardKind `json:"cardType"`
	Color  Color    `json:"color"`
	Number int      `json:"number,omitempty"` // only meaningful for KindNumber
}

// SameValue compares kind, color and number, ignoring the instance ID.
func (c Card) SameValue(o Card) bool {
	return c.Kind == o.Kind && c.Color == o.Color && c.Number == o.Number
}

func (c Card) String() string {
	switch {
	case c.Kind == KindNumber:
		return fmt.Sprintf("%s %d", c.Color, c.Number)
	case c.Kind.IsWild():
		return c.Kind.String()
	default:
		return fmt.Sprintf("%s %s", c.Color, c.Kind)
	}
}
