package demo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/stepwise/internal/fixture"
	"github.com/roach88/stepwise/internal/registry"
	"github.com/roach88/stepwise/internal/step"
)

// Fixture names.
const (
	FixtureBasket    = "basket"
	FixturePrices    = "prices"
	FixtureCurrency  = "currency"
	FixtureWarehouse = "warehouse"
)

// Steps returns a registry holding every demo step.
func Steps() (*registry.Registry, error) {
	r := registry.New()
	if err := Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds the demo steps to r.
func Register(r *registry.Registry) error {
	basket := fixture.NeedMutOf[Basket](FixtureBasket)
	readBasket := fixture.NeedOf[Basket](FixtureBasket)
	warehouse := fixture.NeedMutOf[Warehouse](FixtureWarehouse)

	return errors.Join(
		r.Given("an empty basket", step.Sync(emptyBasket), basket),
		r.Given("the basket contains:", step.Sync(basketContains), basket),
		r.Given("{item} costs {price:f64}", step.Sync(setPrice), fixture.NeedMutOf[PriceList](FixturePrices)),
		r.Given("the till is offline", step.Sync(tillOffline)),
		r.DefineInferred(step.Given, theWarehouseIsEmpty, warehouse),

		r.When("I add {count:u32} {item}", step.Sync(addItems), basket),
		r.When("I remove the {item}", step.Sync(removeItem), basket),
		r.When("the warehouse restocks {count:u32} {item}", step.Async(restock), warehouse),
		r.When("I reserve {count:u32} {item} from the warehouse", step.Async(reserve), warehouse, basket),

		r.Then("the basket holds {count:u32} items", step.Sync(basketHolds), readBasket),
		r.Then("the basket has {count:u32} {item}", step.Sync(basketHas), readBasket),
		r.Then("the total is {amount:f64} {currency}", step.Sync(totalIs),
			readBasket, fixture.NeedOf[PriceList](FixturePrices), fixture.NeedOf[string](FixtureCurrency)),
		r.Then("the receipt reads:", step.Sync(receiptReads), readBasket),
		r.Then("the warehouse has {count:u32} {item}", step.Sync(warehouseHas), fixture.NeedOf[Warehouse](FixtureWarehouse)),
	)
}

func emptyBasket(_ context.Context, sc *step.Context) error {
	b, err := step.Mut[Basket](sc, FixtureBasket)
	if err != nil {
		return err
	}
	b.Lines = nil
	return nil
}

func basketContains(_ context.Context, sc *step.Context) error {
	b, err := step.Mut[Basket](sc, FixtureBasket)
	if err != nil {
		return err
	}
	rows, err := sc.Table().Records()
	if err != nil {
		return err
	}
	for _, row := range rows {
		qty, err := strconv.Atoi(row["qty"])
		if err != nil {
			return fmt.Errorf("qty for %q: %w", row["item"], err)
		}
		b.Add(row["item"], qty)
	}
	return nil
}

func setPrice(_ context.Context, sc *step.Context) error {
	prices, err := step.Mut[PriceList](sc, FixturePrices)
	if err != nil {
		return err
	}
	item, err := step.Arg[string](sc, "item")
	if err != nil {
		return err
	}
	price, err := step.Arg[float64](sc, "price")
	if err != nil {
		return err
	}
	if *prices == nil {
		*prices = PriceList{}
	}
	(*prices)[item] = price
	return nil
}

func tillOffline(context.Context, *step.Context) error {
	return step.Skip("till is offline")
}

func theWarehouseIsEmpty(_ context.Context, sc *step.Context) error {
	w, err := step.Mut[Warehouse](sc, FixtureWarehouse)
	if err != nil {
		return err
	}
	w.Stock = map[string]int{}
	return nil
}

func addItems(_ context.Context, sc *step.Context) error {
	b, err := step.Mut[Basket](sc, FixtureBasket)
	if err != nil {
		return err
	}
	count, err := step.Arg[uint32](sc, "count")
	if err != nil {
		return err
	}
	item, err := step.Arg[string](sc, "item")
	if err != nil {
		return err
	}
	b.Add(item, int(count))
	return nil
}

func removeItem(_ context.Context, sc *step.Context) error {
	b, err := step.Mut[Basket](sc, FixtureBasket)
	if err != nil {
		return err
	}
	item, err := step.Arg[string](sc, "item")
	if err != nil {
		return err
	}
	return b.Remove(item)
}

// restock completes on another goroutine; the warehouse stays borrowed
// until it reports back.
func restock(_ context.Context, sc *step.Context) <-chan error {
	w, err := step.Mut[Warehouse](sc, FixtureWarehouse)
	if err != nil {
		return step.Done(err)
	}
	count, err := step.Arg[uint32](sc, "count")
	if err != nil {
		return step.Done(err)
	}
	item, err := step.Arg[string](sc, "item")
	if err != nil {
		return step.Done(err)
	}

	return step.Go(func() error {
		if w.Stock == nil {
			w.Stock = map[string]int{}
		}
		w.Stock[item] += int(count)
		return nil
	})
}

// reserve moves stock into the basket. Reserving nothing skips the step.
func reserve(ctx context.Context, sc *step.Context) <-chan error {
	w, err := step.Mut[Warehouse](sc, FixtureWarehouse)
	if err != nil {
		return step.Done(err)
	}
	b, err := step.Mut[Basket](sc, FixtureBasket)
	if err != nil {
		return step.Done(err)
	}
	count, err := step.Arg[uint32](sc, "count")
	if err != nil {
		return step.Done(err)
	}
	item, err := step.Arg[string](sc, "item")
	if err != nil {
		return step.Done(err)
	}

	return step.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if count == 0 {
			sc.Skipf("nothing to reserve from %s", item)
		}
		if have := w.Stock[item]; have < int(count) {
			return fmt.Errorf("warehouse has %d %s, cannot reserve %d", have, item, count)
		}
		w.Stock[item] -= int(count)
		b.Add(item, int(count))
		return nil
	})
}

func basketHolds(_ context.Context, sc *step.Context) error {
	b, err := step.Fixture[Basket](sc, FixtureBasket)
	if err != nil {
		return err
	}
	want, err := step.Arg[uint32](sc, "count")
	if err != nil {
		return err
	}
	if got := b.Count(); got != int(want) {
		return fmt.Errorf("basket holds %d items, want %d", got, want)
	}
	return nil
}

func basketHas(_ context.Context, sc *step.Context) error {
	b, err := step.Fixture[Basket](sc, FixtureBasket)
	if err != nil {
		return err
	}
	want, err := step.Arg[uint32](sc, "count")
	if err != nil {
		return err
	}
	item, err := step.Arg[string](sc, "item")
	if err != nil {
		return err
	}
	if got := b.Qty(item); got != int(want) {
		return fmt.Errorf("basket has %d %s, want %d", got, item, want)
	}
	return nil
}

func totalIs(_ context.Context, sc *step.Context) error {
	b, err := step.Fixture[Basket](sc, FixtureBasket)
	if err != nil {
		return err
	}
	prices, err := step.Fixture[PriceList](sc, FixturePrices)
	if err != nil {
		return err
	}
	currency, err := step.Fixture[string](sc, FixtureCurrency)
	if err != nil {
		return err
	}
	wantAmount, err := step.Arg[float64](sc, "amount")
	if err != nil {
		return err
	}
	wantCurrency, err := step.Arg[string](sc, "currency")
	if err != nil {
		return err
	}
	if wantCurrency != currency {
		return fmt.Errorf("prices are in %s, not %s", currency, wantCurrency)
	}

	total, err := b.Total(prices)
	if err != nil {
		return err
	}
	if math.Abs(total-wantAmount) > 0.005 {
		return fmt.Errorf("total is %.2f %s, want %.2f", total, currency, wantAmount)
	}
	return nil
}

func receiptReads(_ context.Context, sc *step.Context) error {
	b, err := step.Fixture[Basket](sc, FixtureBasket)
	if err != nil {
		return err
	}
	want, ok := sc.DocString()
	if !ok {
		return errors.New("receipt step needs a doc string")
	}
	if got := b.Receipt(); got != strings.TrimSpace(want) {
		return fmt.Errorf("receipt mismatch:\n got: %q\nwant: %q", got, strings.TrimSpace(want))
	}
	return nil
}

func warehouseHas(_ context.Context, sc *step.Context) error {
	w, err := step.Fixture[Warehouse](sc, FixtureWarehouse)
	if err != nil {
		return err
	}
	want, err := step.Arg[uint32](sc, "count")
	if err != nil {
		return err
	}
	item, err := step.Arg[string](sc, "item")
	if err != nil {
		return err
	}
	if got := w.Stock[item]; got != int(want) {
		return fmt.Errorf("warehouse has %d %s, want %d", got, item, want)
	}
	return nil
}
