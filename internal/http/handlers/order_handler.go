package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"kitgems/internal/domain"
	applog "kitgems/internal/log"
	"kitgems/internal/repos"
	"kitgems/internal/services"
	"kitgems/internal/validate"
)

type OrderHandler struct {
	Cart  *services.CartService
	Order *services.OrderService
	Repo  *repos.OrderRepo
}

func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	uid := currentUserID(c)
	if uid == "" {
		return c.Redirect("/login")
	}
	cv, err := h.Cart.View(uid)
	if err != nil {
		applog.Error(c, "checkout.load", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load your cart"})
	}
	return render(c, "checkout", fiber.Map{"Cart": cv})
}

func (h *OrderHandler) Place(c *fiber.Ctx) error {
	uid := currentUserID(c)
	if uid == "" {
		return c.Redirect("/login")
	}

	zip, ok := validate.Zip(c.FormValue("zip"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "zip"})
		return c.Status(fiber.StatusBadRequest).SendString("invalid ZIP")
	}
	addr := domain.Address{
		Street:  c.FormValue("street"),
		City:    c.FormValue("city"),
		State:   c.FormValue("state"),
		Zip:     zip,
		Country: c.FormValue("country"),
	}

	orderID, total, err := h.Order.Place(uid, addr)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return c.Status(fiber.StatusBadRequest).SendString(ve.Error())
		}
		applog.Security(c, "order.place.fail", map[string]any{"user": uid, "error": err.Error()})
		return c.Status(fiber.StatusBadRequest).SendString("Could not place order. Please review your cart and try again.")
	}
	applog.Audit(c, "order.place", map[string]any{"order_id": orderID, "total": total})
	return c.Redirect("/order/" + orderID)
}

func (h *OrderHandler) View(c *fiber.Ctx) error {
	oid, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Order not found"})
	}

	o, items, err := h.Repo.Get(oid)
	if err != nil {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Order not found"})
	}

	// Ownership check: the ordering user or an admin.
	u, _ := c.Locals("user").(*domain.User)
	if u == nil || (u.ID != o.UserID && !u.IsAdmin) {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": oid})
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Order not found"})
	}

	return render(c, "order", fiber.Map{"Order": o, "Items": items})
}

// History lists orders for the current logged-in user.
func (h *OrderHandler) History(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return c.Redirect("/login")
	}
	orders, err := h.Repo.ListByUser(u.ID)
	if err != nil {
		applog.Error(c, "orders.history.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load orders"})
	}
	return render(c, "order_history", fiber.Map{"Orders": orders})
}
