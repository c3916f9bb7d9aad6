package handlers

import (
	"kitgems/internal/domain"
	applog "kitgems/internal/log"
	"kitgems/internal/repos"
	"kitgems/internal/services"
	"kitgems/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type ProfileHandler struct {
	Users    *repos.UserRepo
	Auctions *services.AuctionService
	Orders   *repos.OrderRepo
}

// Dashboard shows the profile plus the user's bids and orders.
func (h *ProfileHandler) Dashboard(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return c.Redirect("/login")
	}
	bids, err := h.Auctions.BidsByUser(u.ID)
	if err != nil {
		applog.Error(c, "dashboard.bids.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load your dashboard"})
	}
	orders, err := h.Orders.ListByUser(u.ID)
	if err != nil {
		applog.Error(c, "dashboard.orders.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load your dashboard"})
	}
	return render(c, "dashboard", fiber.Map{"Bids": bids, "Orders": orders})
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return c.Redirect("/login")
	}
	name, ok := validate.Name(c.FormValue("full_name"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "full_name"})
		return c.Status(400).SendString("name must be 1-50 characters")
	}
	phone, ok := validate.Phone(c.FormValue("phone"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "phone"})
		return c.Status(400).SendString("invalid phone number")
	}
	avatar := c.FormValue("avatar_url")
	if len(avatar) > 200 {
		avatar = avatar[:200]
	}

	if err := h.Users.UpdateProfile(u.ID, name, phone, avatar); err != nil {
		applog.Error(c, "profile.update.fail", err, nil)
		return c.Status(500).SendString("Could not update profile")
	}
	applog.Audit(c, "profile.update", map[string]any{"user_id": u.ID})
	return c.Redirect("/dashboard")
}
