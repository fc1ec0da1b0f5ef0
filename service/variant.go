package service

import (
	"sort"

	"storefront/model"
)

// Variant resolution: pure functions over a product's variant list. An
// unmatched (color, capacity) combination is a normal, representable state,
// never an error.

// AvailableColors returns the distinct colors across variants in first-seen
// order. A color whose variants are all at zero stock is still listed but
// flagged not in stock, so the UI can render it unselectable.
func AvailableColors(variants []model.Variant) []model.Color {
	out := []model.Color{}
	idx := map[string]int{}
	for _, v := range variants {
		i, ok := idx[v.Color]
		if !ok {
			idx[v.Color] = len(out)
			out = append(out, model.Color{Color: v.Color, ColorName: v.ColorName})
			i = len(out) - 1
		}
		if v.Stock > 0 {
			out[i].InStock = true
		}
	}
	return out
}

// CapacitiesForColor returns the distinct capacity labels available for the
// color, sorted non-decreasing by the leading integer of each label. Labels
// without a leading integer sort as zero; ties keep first-seen order, so the
// ordering is total and deterministic.
func CapacitiesForColor(variants []model.Variant, color string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, v := range variants {
		if v.Color != color || seen[v.Capacity] {
			continue
		}
		seen[v.Capacity] = true
		out = append(out, v.Capacity)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return leadingInt(out[i]) < leadingInt(out[j])
	})
	return out
}

// ResolveVariant returns the variant matching (color, capacity), or false if
// the combination has never been stocked.
func ResolveVariant(variants []model.Variant, color, capacity string) (model.Variant, bool) {
	for _, v := range variants {
		if v.Color == color && v.Capacity == capacity {
			return v, true
		}
	}
	return model.Variant{}, false
}

// ColorInStock reports whether any variant of the color has stock.
func ColorInStock(variants []model.Variant, color string) bool {
	for _, v := range variants {
		if v.Color == color && v.Stock > 0 {
			return true
		}
	}
	return false
}

// leadingInt parses the leading decimal digits of a capacity label.
// "128GB" -> 128, "1TB" -> 1, "Standard" -> 0. Capped well below overflow.
func leadingInt(label string) int {
	n := 0
	for _, r := range label {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		if n > 1<<30 {
			return 1 << 30
		}
	}
	return n
}

// Selection is the shopper's current (color, capacity, quantity) pick on a
// product page.
type Selection struct {
	Color    string `json:"color"`
	Capacity string `json:"capacity"`
	Quantity int    `json:"quantity"`
}

// DefaultSelection picks the first variant with stock, matching the product
// page's initial state. With no sellable variant the selection stays empty.
func DefaultSelection(variants []model.Variant) Selection {
	for _, v := range variants {
		if v.Stock > 0 {
			return Selection{Color: v.Color, Capacity: v.Capacity, Quantity: 1}
		}
	}
	return Selection{Quantity: 1}
}

// SelectColor switches the color. For an in-stock color the capacity snaps
// to the first capacity carried by that color; picking a fully out-of-stock
// color clears the capacity and resets quantity to 1 (observed UX policy).
func (sel Selection) SelectColor(variants []model.Variant, color string) Selection {
	sel.Color = color
	if !ColorInStock(variants, color) {
		sel.Capacity = ""
		sel.Quantity = 1
		return sel
	}
	for _, v := range variants {
		if v.Color == color {
			sel.Capacity = v.Capacity
			break
		}
	}
	return sel
}

// SelectCapacity switches the capacity, keeping the color. Quantity resets
// to 1: the pick now points at a different variant with its own stock.
func (sel Selection) SelectCapacity(capacity string) Selection {
	sel.Capacity = capacity
	sel.Quantity = 1
	return sel
}

// Resolved returns the variant the selection points at, if any.
func (sel Selection) Resolved(variants []model.Variant) (model.Variant, bool) {
	return ResolveVariant(variants, sel.Color, sel.Capacity)
}
