package services_test

import (
	"errors"
	"testing"

	"kitgems/internal/domain"
	"kitgems/internal/repos"
	"kitgems/internal/services"
)

func newCommerce(t *testing.T) (*services.CartService, *services.OrderService, *repos.OrderRepo, *repos.GemRepo) {
	t.Helper()
	db := memdb(t)
	gems := repos.NewGemRepo(db)
	carts := repos.NewCartRepo(db)
	orders := repos.NewOrderRepo(db)
	return services.NewCartService(carts, gems), services.NewOrderService(carts, orders), orders, gems
}

var shipTo = domain.Address{
	Street: "4200 Paint Branch Pkwy", City: "College Park", State: "MD", Zip: "20742", Country: "US",
}

func TestCart_AddAndTotal(t *testing.T) {
	cart, _, _, _ := newCommerce(t)

	if err := cart.Add("u-maya", "gem-1", 1); err != nil {
		t.Fatal(err)
	}
	// Same gem again merges into one line
	if err := cart.Add("u-maya", "gem-1", 1); err != nil {
		t.Fatal(err)
	}
	if err := cart.Add("u-maya", "gem-2", 1); err != nil {
		t.Fatal(err)
	}

	v, err := cart.View("u-maya")
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Items) != 2 {
		t.Fatalf("want 2 lines, got %d", len(v.Items))
	}
	if v.Total != 2*48000+62000 {
		t.Fatalf("want total %v, got %v", 2*48000+62000, v.Total)
	}

	// Zero quantity removes the line
	if err := cart.SetQuantity("u-maya", "gem-1", 0); err != nil {
		t.Fatal(err)
	}
	v, _ = cart.View("u-maya")
	if len(v.Items) != 1 || v.Total != 62000 {
		t.Fatalf("after removal want 1 line / 62000, got %d / %v", len(v.Items), v.Total)
	}
}

func TestCart_Guards(t *testing.T) {
	cart, _, _, gems := newCommerce(t)

	if err := cart.Add("", "gem-1", 1); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("anonymous add: want ErrUnauthorized, got %v", err)
	}
	if err := cart.Add("u-maya", "gem-missing", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown gem: want ErrNotFound, got %v", err)
	}
	if err := gems.SetStock("gem-1", false); err != nil {
		t.Fatal(err)
	}
	if err := cart.Add("u-maya", "gem-1", 1); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("out of stock: want ErrInvalidState, got %v", err)
	}
}

func TestOrder_PlaceFromCart(t *testing.T) {
	cart, orders, orderRepo, _ := newCommerce(t)

	if err := cart.Add("u-maya", "gem-1", 2); err != nil {
		t.Fatal(err)
	}

	id, total, err := orders.Place("u-maya", shipTo)
	if err != nil {
		t.Fatal(err)
	}
	if total != 96000 {
		t.Fatalf("want server total 96000, got %v", total)
	}

	o, items, err := orderRepo.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != domain.OrderPending || o.Total != 96000 {
		t.Fatalf("unexpected order: %+v", o)
	}
	if len(items) != 1 || items[0].Quantity != 2 || items[0].Price != 48000 {
		t.Fatalf("unexpected items: %+v", items)
	}

	// Checkout empties the cart; a second checkout has nothing to sell
	v, _ := cart.View("u-maya")
	if len(v.Items) != 0 {
		t.Fatalf("cart not cleared: %+v", v.Items)
	}
	if _, _, err := orders.Place("u-maya", shipTo); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty cart: want ErrValidation, got %v", err)
	}
}

func TestOrder_PlaceGuards(t *testing.T) {
	cart, orders, _, gems := newCommerce(t)

	if _, _, err := orders.Place("", shipTo); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("anonymous checkout: want ErrUnauthorized, got %v", err)
	}
	if _, _, err := orders.Place("u-maya", domain.Address{City: "College Park"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("partial address: want ErrValidation, got %v", err)
	}

	// A gem pulled from stock after it was carted blocks checkout
	if err := cart.Add("u-maya", "gem-1", 1); err != nil {
		t.Fatal(err)
	}
	if err := gems.SetStock("gem-1", false); err != nil {
		t.Fatal(err)
	}
	if _, _, err := orders.Place("u-maya", shipTo); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("delisted gem: want ErrInvalidState, got %v", err)
	}
}

func TestOrder_StatusTransitions(t *testing.T) {
	cart, orders, orderRepo, _ := newCommerce(t)

	if err := cart.Add("u-maya", "gem-1", 1); err != nil {
		t.Fatal(err)
	}
	id, _, err := orders.Place("u-maya", shipTo)
	if err != nil {
		t.Fatal(err)
	}

	// Skipping a stage is rejected
	if err := orders.UpdateStatus(id, domain.OrderShipped); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("pending->shipped: want ErrInvalidState, got %v", err)
	}

	for _, next := range []string{domain.OrderProcessing, domain.OrderShipped, domain.OrderDelivered} {
		if err := orders.UpdateStatus(id, next); err != nil {
			t.Fatalf("to %s: %v", next, err)
		}
	}
	o, _, _ := orderRepo.Get(id)
	if o.Status != domain.OrderDelivered {
		t.Fatalf("want delivered, got %s", o.Status)
	}

	// Delivered is terminal
	if err := orders.UpdateStatus(id, domain.OrderCancelled); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("delivered->cancelled: want ErrInvalidState, got %v", err)
	}
	if err := orders.UpdateStatus("o-missing", domain.OrderProcessing); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown order: want ErrNotFound, got %v", err)
	}
}
