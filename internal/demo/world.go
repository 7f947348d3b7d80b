// Package demo is a small shopping-basket step library. The stepwise binary
// runs it by default and the harness tests use it as their suite.
package demo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotInBasket is returned when removing an item the basket does not hold.
var ErrNotInBasket = errors.New("item not in basket")

// Line is one basket entry.
type Line struct {
	Item string
	Qty  int
}

// Basket is the mutable world fixture of the demo suite.
type Basket struct {
	Lines []Line
}

// Add increases the quantity of item, appending a line if needed.
func (b *Basket) Add(item string, qty int) {
	for i := range b.Lines {
		if b.Lines[i].Item == item {
			b.Lines[i].Qty += qty
			return
		}
	}
	b.Lines = append(b.Lines, Line{Item: item, Qty: qty})
}

// Remove drops every unit of item.
func (b *Basket) Remove(item string) error {
	for i, l := range b.Lines {
		if l.Item == item {
			b.Lines = append(b.Lines[:i], b.Lines[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove %q: %w", item, ErrNotInBasket)
}

// Count returns the total number of units.
func (b Basket) Count() int {
	n := 0
	for _, l := range b.Lines {
		n += l.Qty
	}
	return n
}

// Qty returns the units of item held.
func (b Basket) Qty(item string) int {
	for _, l := range b.Lines {
		if l.Item == item {
			return l.Qty
		}
	}
	return 0
}

// Total prices the basket.
func (b Basket) Total(prices PriceList) (float64, error) {
	total := 0.0
	for _, l := range b.Lines {
		p, ok := prices[l.Item]
		if !ok {
			return 0, fmt.Errorf("no price for %q", l.Item)
		}
		total += p * float64(l.Qty)
	}
	return total, nil
}

// Receipt renders one "item xN" line per entry.
func (b Basket) Receipt() string {
	lines := make([]string, 0, len(b.Lines))
	for _, l := range b.Lines {
		lines = append(lines, fmt.Sprintf("%s x%d", l.Item, l.Qty))
	}
	return strings.Join(lines, "\n")
}

// PriceList maps item names to unit prices.
type PriceList map[string]float64

// Warehouse is stock that async steps restock and reserve from.
type Warehouse struct {
	Stock map[string]int
}
