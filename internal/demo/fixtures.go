package demo

import "github.com/roach88/stepwise/internal/fixture"

// Catalog returns the demo fixture factories. Prices start with a few
// staples and are in EUR.
func Catalog() *fixture.Catalog {
	c := fixture.NewCatalog()
	must(c.Provide(FixtureBasket, fixture.Mutable, func() (any, error) {
		return Basket{}, nil
	}))
	must(c.Provide(FixturePrices, fixture.Mutable, func() (any, error) {
		return PriceList{"apples": 0.5, "pears": 0.75, "plums": 0.3}, nil
	}))
	must(c.Provide(FixtureCurrency, fixture.ReadOnly, func() (any, error) {
		return "EUR", nil
	}))
	must(c.Provide(FixtureWarehouse, fixture.Mutable, func() (any, error) {
		return Warehouse{Stock: map[string]int{}}, nil
	}))
	return c
}

// must panics on catalog wiring mistakes, which are programming errors.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
