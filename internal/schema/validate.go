// Package schema validates and normalizes the two persisted record shapes,
// tenants and components, including the legacy-format compatibility path.
package schema

import (
	"encoding/json"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/jacobparis/registry-registry/internal/model"
)

// pictographs covers the Unicode blocks emoji are drawn from: miscellaneous
// symbols, dingbats, the supplemental symbol planes, and regional indicators.
var pictographs = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2190, Hi: 0x21FF, Stride: 1}, // arrows
		{Lo: 0x2600, Hi: 0x27BF, Stride: 1}, // misc symbols, dingbats
		{Lo: 0x2B00, Hi: 0x2BFF, Stride: 1}, // misc symbols and arrows
		{Lo: 0x3030, Hi: 0x303D, Stride: 13},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F000, Hi: 0x1F0FF, Stride: 1}, // mahjong, dominoes, cards
		{Lo: 0x1F100, Hi: 0x1F2FF, Stride: 1}, // enclosed alphanumerics
		{Lo: 0x1F300, Hi: 0x1F5FF, Stride: 1}, // misc symbols and pictographs
		{Lo: 0x1F600, Hi: 0x1F64F, Stride: 1}, // emoticons
		{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1}, // transport
		{Lo: 0x1F900, Hi: 0x1F9FF, Stride: 1}, // supplemental pictographs
		{Lo: 0x1FA70, Hi: 0x1FAFF, Stride: 1}, // symbols and pictographs extended
	},
}

// ValidIcon reports whether s is acceptable as a tenant display glyph:
// 1 to 10 runes containing at least one pictographic character.
func ValidIcon(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < 1 || n > 10 {
		return false
	}
	for _, r := range s {
		if unicode.Is(pictographs, r) {
			return true
		}
	}
	return false
}

// NormalizeRegistry enforces the aggregate's uniqueness rules on every read
// and write: entries with no name are dropped, empty-object entries are
// dropped, and duplicate names keep only the first occurrence. Input order
// is otherwise preserved since it is the display order.
func NormalizeRegistry(registry []model.Component) []model.Component {
	if registry == nil {
		return []model.Component{}
	}

	seen := make(map[string]struct{}, len(registry))
	out := make([]model.Component, 0, len(registry))
	for _, c := range registry {
		if c.Name == "" || c.Empty() {
			continue
		}
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}

// ParseRegistryJSON parses a user-supplied registry document: a JSON array
// of component-shaped objects. Missing optional fields are fine; wrong field
// types are not. The result is normalized.
func ParseRegistryJSON(registryJSON string) ([]model.Component, error) {
	var registry []model.Component
	if err := json.Unmarshal([]byte(registryJSON), &registry); err != nil {
		return nil, fmt.Errorf("registry must be a JSON array of components: %w", err)
	}
	return NormalizeRegistry(registry), nil
}

// ValidateComponent checks the structural requirements for a component
// written through the store: it must be named, and a declared type must be
// one of the known registry item types.
func ValidateComponent(c model.Component) error {
	if c.Name == "" {
		return fmt.Errorf("component name is required")
	}
	if c.Type != "" && !c.Type.Valid() {
		return fmt.Errorf("unknown registry item type %q", c.Type)
	}
	return nil
}
