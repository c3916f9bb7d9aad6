package handlers

import (
	"errors"

	"kitgems/internal/domain"
	applog "kitgems/internal/log"
	"kitgems/internal/services"
	"kitgems/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type WishlistHandler struct {
	Wish *services.WishlistService
}

func (h *WishlistHandler) List(c *fiber.Ctx) error {
	uid := currentUserID(c)
	if uid == "" {
		return c.Redirect("/login")
	}
	items, err := h.Wish.List(uid)
	if err != nil {
		applog.Error(c, "wishlist.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load wishlist"})
	}
	return render(c, "wishlist", fiber.Map{"Items": items})
}

func (h *WishlistHandler) Save(c *fiber.Ctx) error {
	gemID, ok := validate.ID(c.FormValue("gemId"))
	if !ok {
		return c.Status(400).SendString("missing gemId")
	}
	err := h.Wish.Save(currentUserID(c), gemID)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Redirect("/login")
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(404).Render("notfound", fiber.Map{"Message": "This gem is no longer available"})
	case err != nil:
		applog.Error(c, "wishlist.save.fail", err, map[string]any{"gem": gemID})
		return c.Status(500).SendString("Could not save gem")
	}
	back := c.Get("Referer")
	if back == "" {
		back = "/wishlist"
	}
	applog.Audit(c, "wishlist.save", map[string]any{"gem": gemID})
	return c.Redirect(back)
}

func (h *WishlistHandler) Unsave(c *fiber.Ctx) error {
	gemID, ok := validate.ID(c.FormValue("gemId"))
	if !ok {
		return c.Status(400).SendString("missing gemId")
	}
	uid := currentUserID(c)
	if uid == "" {
		return c.Redirect("/login")
	}
	if err := h.Wish.Unsave(uid, gemID); err != nil {
		applog.Error(c, "wishlist.unsave.fail", err, map[string]any{"gem": gemID})
		return c.Status(500).SendString("Could not remove gem")
	}
	applog.Audit(c, "wishlist.unsave", map[string]any{"gem": gemID})
	return c.Redirect("/wishlist")
}
