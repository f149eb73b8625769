package engine

import "math/rand"

// TileDraw is a single tile taken from the deck.
type TileDraw struct {
	TileID string `json:"tile_id"`
	Image  string `json:"image"`
}

// TileDeck is a finite, shuffled stack of draws. It is consumed from the end and
// never refilled during a game.
type TileDeck struct {
	draws []TileDraw
}

// NewTileDeck expands every catalog entry by its count and Fisher–Yates
// shuffles the result. A nil source yields an empty deck.
func NewTileDeck(source DeckSource, rng *rand.Rand) *TileDeck {
	deck := &TileDeck{}
	if source == nil {
		return deck
	}

	for _, spec := range source.DeckEntries() {
		for i := 0; i < spec.Count; i++ {
			deck.draws = append(deck.draws, TileDraw{TileID: spec.ID, Image: spec.Image})
		}
	}

	for i := len(deck.draws) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		deck.draws[i], deck.draws[j] = deck.draws[j], deck.draws[i]
	}
	return deck
}

// Pop removes and returns the top draw. ok is false when the deck is empty.
func (d *TileDeck) Pop() (TileDraw, bool) {
	if len(d.draws) == 0 {
		return TileDraw{}, false
	}
	last := len(d.draws) - 1
	draw := d.draws[last]
	d.draws = d.draws[:last]
	return draw, true
}

// Remaining returns how many draws are left.
func (d *TileDeck) Remaining() int {
	return len(d.draws)
}

// Empty reports whether the deck is exhausted.
func (d *TileDeck) Empty() bool {
	return len(d.draws) == 0
}
