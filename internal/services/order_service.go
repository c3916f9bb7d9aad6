package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kitgems/internal/domain"
	"kitgems/internal/repos"
)

type OrderService struct {
	Carts  *repos.CartRepo
	Orders *repos.OrderRepo
}

func NewOrderService(carts *repos.CartRepo, orders *repos.OrderRepo) *OrderService {
	return &OrderService{Carts: carts, Orders: orders}
}

// Place creates an order from the user's cart at the captured prices, then
// clears the cart. The total is computed server-side; nothing from the
// client is trusted.
func (s *OrderService) Place(userID string, shipping domain.Address) (string, float64, error) {
	if userID == "" {
		return "", 0, fmt.Errorf("%w: sign in to check out", domain.ErrUnauthorized)
	}
	if shipping.Street == "" || shipping.City == "" || shipping.Zip == "" {
		return "", 0, &domain.ValidationError{Msg: "shipping address is incomplete"}
	}

	items, err := s.Carts.Items(userID)
	if err != nil {
		return "", 0, err
	}
	if len(items) == 0 {
		return "", 0, &domain.ValidationError{Msg: "cart is empty"}
	}
	for _, it := range items {
		if !it.InStock {
			return "", 0, fmt.Errorf("%w: %s is no longer available", domain.ErrInvalidState, it.Name)
		}
	}

	total := decimal.Zero
	lines := make([]repos.OrderItemInput, 0, len(items))
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.PriceAtAdd).Mul(decimal.NewFromInt(int64(it.Quantity))))
		lines = append(lines, repos.OrderItemInput{GemID: it.GemID, Quantity: it.Quantity, Price: it.PriceAtAdd})
	}

	addr, err := json.Marshal(shipping)
	if err != nil {
		return "", 0, err
	}

	serverTotal, _ := total.Float64()
	o := domain.Order{
		ID:           uuid.NewString(),
		UserID:       userID,
		Total:        serverTotal,
		ShippingJSON: string(addr),
	}
	if err := s.Orders.Create(o, lines); err != nil {
		return "", 0, err
	}
	return o.ID, serverTotal, nil
}

var orderTransitions = map[string][]string{
	domain.OrderPending:    {domain.OrderProcessing, domain.OrderCancelled},
	domain.OrderProcessing: {domain.OrderShipped, domain.OrderCancelled},
	domain.OrderShipped:    {domain.OrderDelivered},
}

// UpdateStatus moves an order along the fulfillment pipeline; backwards or
// skipping moves are rejected.
func (s *OrderService) UpdateStatus(orderID, next string) error {
	o, _, err := s.Orders.Get(orderID)
	if err != nil {
		return err
	}
	for _, allowed := range orderTransitions[o.Status] {
		if next == allowed {
			return s.Orders.UpdateStatus(orderID, next)
		}
	}
	return fmt.Errorf("%w: cannot move order from %s to %s", domain.ErrInvalidState, o.Status, next)
}
