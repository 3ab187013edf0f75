// Package assets resolves logical deck identifiers into ordered card image
// sequences. Loading happens entirely outside any room lock; rooms are handed
// already-resolved slices.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkoziol/twistdeck/internal/models"
)

// ErrEmptyAssetSet is returned when an identifier resolves to zero cards,
// regardless of why (missing directory, empty directory, no matching files).
var ErrEmptyAssetSet = fmt.Errorf("asset source yielded no cards")

// Source turns a logical deck identifier into an ordered, immutable sequence
// of card assets.
type Source interface {
	Load(identifier string) ([]models.CardAsset, error)
}

// DirSource loads sorted *.png files from a directory. The identifier passed
// to Load is the directory path itself.
type DirSource struct{}

func (DirSource) Load(dir string) ([]models.CardAsset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read card dir %q: %w", dir, ErrEmptyAssetSet)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	cards := make([]models.CardAsset, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read card file %q: %v", name, err)
		}
		cards = append(cards, models.CardAsset{Name: name, Data: data})
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("no PNG files in %q: %w", dir, ErrEmptyAssetSet)
	}
	return cards, nil
}

// StaticSource serves fixed in-memory decks keyed by identifier. Used by tests
// and by deployments that ship decks embedded in the binary.
type StaticSource map[string][]models.CardAsset

func (s StaticSource) Load(identifier string) ([]models.CardAsset, error) {
	cards, ok := s[identifier]
	if !ok || len(cards) == 0 {
		return nil, fmt.Errorf("deck %q: %w", identifier, ErrEmptyAssetSet)
	}
	out := make([]models.CardAsset, len(cards))
	copy(out, cards)
	return out, nil
}
