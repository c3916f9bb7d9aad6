package handlers

import (
	"errors"

	"kitgems/internal/domain"
	applog "kitgems/internal/log"
	"kitgems/internal/services"
	"kitgems/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type CartHandler struct {
	Cart *services.CartService
}

func currentUserID(c *fiber.Ctx) string {
	if u, ok := c.Locals("user").(*domain.User); ok && u != nil {
		return u.ID
	}
	return ""
}

func (h *CartHandler) Add(c *fiber.Ctx) error {
	gemID, ok := validate.ID(c.FormValue("gemId"))
	if !ok {
		return c.Status(400).SendString("missing gemId")
	}
	qty := validate.Qty(c.FormValue("qty"))

	err := h.Cart.Add(currentUserID(c), gemID, qty)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Redirect("/login")
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(404).Render("notfound", fiber.Map{"Message": "This gem is no longer available"})
	case errors.Is(err, domain.ErrInvalidState):
		return c.Status(409).SendString("This gem is out of stock")
	case err != nil:
		applog.Error(c, "cart.add.fail", err, map[string]any{"gem": gemID})
		return c.Status(500).SendString("Could not add to cart")
	}
	return c.Redirect("/cart")
}

func (h *CartHandler) UpdateQty(c *fiber.Ctx) error {
	gemID, ok := validate.ID(c.FormValue("gemId"))
	if !ok {
		return c.Status(400).SendString("missing gemId")
	}
	uid := currentUserID(c)
	if uid == "" {
		return c.Redirect("/login")
	}
	if err := h.Cart.SetQuantity(uid, gemID, validate.Qty(c.FormValue("qty"))); err != nil {
		applog.Error(c, "cart.update.fail", err, map[string]any{"gem": gemID})
		return c.Status(500).SendString("Could not update cart")
	}
	return c.Redirect("/cart")
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	gemID, ok := validate.ID(c.FormValue("gemId"))
	if !ok {
		return c.Status(400).SendString("missing gemId")
	}
	uid := currentUserID(c)
	if uid == "" {
		return c.Redirect("/login")
	}
	if err := h.Cart.Remove(uid, gemID); err != nil {
		applog.Error(c, "cart.remove.fail", err, map[string]any{"gem": gemID})
		return c.Status(500).SendString("Could not update cart")
	}
	return c.Redirect("/cart")
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	uid := currentUserID(c)
	if uid == "" {
		return c.Redirect("/login")
	}
	cv, err := h.Cart.View(uid)
	if err != nil {
		applog.Error(c, "cart.view.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load your cart"})
	}
	return render(c, "cart", fiber.Map{"Cart": cv})
}
