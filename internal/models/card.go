package models

// CardAsset is one card image as loaded from an asset source. The core game
// logic only cares about a card's identity (its index in the loaded sequence);
// the bytes exist solely so the presentation layer can render it.
type CardAsset struct {
	Name string `json:"name"`
	Data []byte `json:"-"`
}
