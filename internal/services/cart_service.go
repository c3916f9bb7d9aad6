package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"kitgems/internal/domain"
	"kitgems/internal/repos"
)

type CartService struct {
	Carts *repos.CartRepo
	Gems  *repos.GemRepo
}

func NewCartService(carts *repos.CartRepo, gems *repos.GemRepo) *CartService {
	return &CartService{Carts: carts, Gems: gems}
}

// Add puts a gem in the user's cart, capturing the price at add time.
func (s *CartService) Add(userID, gemID string, qty int) error {
	if userID == "" {
		return fmt.Errorf("%w: sign in to use the cart", domain.ErrUnauthorized)
	}
	if qty < 1 {
		qty = 1
	}
	g, err := s.Gems.Get(gemID)
	if err != nil {
		return err
	}
	if !g.InStock {
		return fmt.Errorf("%w: gem is out of stock", domain.ErrInvalidState)
	}
	return s.Carts.UpsertItem(userID, gemID, qty, g.Price)
}

func (s *CartService) SetQuantity(userID, gemID string, qty int) error {
	if qty < 1 {
		return s.Carts.RemoveItem(userID, gemID)
	}
	return s.Carts.SetQuantity(userID, gemID, qty)
}

func (s *CartService) Remove(userID, gemID string) error {
	return s.Carts.RemoveItem(userID, gemID)
}

type CartView struct {
	Items []repos.CartItemRow
	Total float64
}

func (s *CartService) View(userID string) (CartView, error) {
	items, err := s.Carts.Items(userID)
	if err != nil {
		return CartView{}, err
	}
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.PriceAtAdd).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	f, _ := total.Float64()
	return CartView{Items: items, Total: f}, nil
}
