package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"kitgems/internal/domain"
	applog "kitgems/internal/log"
	"kitgems/internal/repos"
	"kitgems/internal/services"
	"kitgems/internal/validate"
)

type AdminHandler struct {
	Gems      *repos.GemRepo
	Auctions  *services.AuctionService
	Orders    *services.OrderService
	OrderRepo *repos.OrderRepo
	Users     *repos.UserRepo
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	return render(c, "admin_dashboard", fiber.Map{})
}

// ---------- Gems ----------

// GET /admin/gems
func (h *AdminHandler) GemsPage(c *fiber.Ctx) error {
	gems, err := h.Gems.List("", nil, nil, 200, 0)
	if err != nil {
		applog.Error(c, "admin.gems.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load gems"})
	}
	return render(c, "admin_gems", fiber.Map{"Gems": gems})
}

// POST /admin/gems
func (h *AdminHandler) CreateGem(c *fiber.Ctx) error {
	name, okN := validate.Name(c.FormValue("name"))
	gemType, okT := validate.GemType(c.FormValue("type"))
	price, okP := validate.Amount(c.FormValue("price"))
	carat, okC := validate.Amount(c.FormValue("carat"))
	if !okN || !okT || !okP || !okC {
		return c.Status(400).SendString("invalid input")
	}

	g := domain.Gem{
		ID:            uuid.NewString(),
		Name:          name,
		Type:          gemType,
		Description:   c.FormValue("description"),
		Price:         price,
		Carat:         carat,
		Color:         c.FormValue("color"),
		Origin:        c.FormValue("origin"),
		Cut:           c.FormValue("cut"),
		Clarity:       c.FormValue("clarity"),
		ImagesJSON:    "[]",
		Certification: c.FormValue("certification"),
		InStock:       true,
	}
	if err := h.Gems.Create(g); err != nil {
		applog.Error(c, "admin.gems.create.fail", err, map[string]any{"name": name})
		return c.Status(400).SendString("could not create gem")
	}
	applog.Audit(c, "admin.gems.create", map[string]any{"gem_id": g.ID})
	return c.Redirect("/admin/gems")
}

// POST /admin/gems/:id/stock
func (h *AdminHandler) ToggleStock(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(400).SendString("missing id")
	}
	inStock := c.FormValue("in_stock") == "1"
	if err := h.Gems.SetStock(id, inStock); err != nil {
		applog.Error(c, "admin.gems.stock.fail", err, map[string]any{"gem_id": id})
		return c.Status(400).SendString("could not update stock")
	}
	applog.Audit(c, "admin.gems.stock", map[string]any{"gem_id": id, "in_stock": inStock})
	return c.Redirect("/admin/gems")
}

// POST /admin/gems/:id/delete
func (h *AdminHandler) DeleteGem(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(400).SendString("missing id")
	}
	if err := h.Gems.Delete(id); err != nil {
		applog.Error(c, "admin.gems.delete.fail", err, map[string]any{"gem_id": id})
		return c.Status(400).SendString("could not delete gem (still referenced?)")
	}
	applog.Audit(c, "admin.gems.delete", map[string]any{"gem_id": id})
	return c.Redirect("/admin/gems")
}

// ---------- Auctions ----------

// GET /admin/auctions
func (h *AdminHandler) AuctionsPage(c *fiber.Ctx) error {
	auctions, err := h.Auctions.ListByStatus("")
	if err != nil {
		applog.Error(c, "admin.auctions.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load auctions"})
	}
	return render(c, "admin_auctions", fiber.Map{"Auctions": auctions})
}

// POST /admin/auctions
func (h *AdminHandler) CreateAuction(c *fiber.Ctx) error {
	gemID, okG := validate.ID(c.FormValue("gemId"))
	startingBid, okS := validate.Amount(c.FormValue("starting_bid"))
	if !okG || !okS {
		return c.Status(400).SendString("invalid input")
	}
	start, err1 := time.Parse(time.RFC3339, c.FormValue("start_time"))
	end, err2 := time.Parse(time.RFC3339, c.FormValue("end_time"))
	if err1 != nil || err2 != nil {
		return c.Status(400).SendString("times must be RFC3339")
	}
	minInc := 0.0
	if v := c.FormValue("min_increment"); v != "" {
		var ok bool
		if minInc, ok = validate.Amount(v); !ok {
			return c.Status(400).SendString("invalid increment")
		}
	}

	a, err := h.Auctions.CreateAuction(gemID, startingBid, minInc, start, end, time.Now().UTC())
	if err != nil {
		var ve *domain.ValidationError
		switch {
		case errors.As(err, &ve):
			return c.Status(400).SendString(ve.Error())
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(404).SendString("gem not found")
		case errors.Is(err, domain.ErrConflict):
			return c.Status(409).SendString("gem already has an open auction")
		default:
			applog.Error(c, "admin.auctions.create.fail", err, map[string]any{"gem_id": gemID})
			return c.Status(400).SendString("could not create auction")
		}
	}
	applog.Audit(c, "admin.auctions.create", map[string]any{"auction_id": a.ID, "gem_id": gemID})
	return c.Redirect("/admin/auctions")
}

// POST /admin/auctions/:id/end
func (h *AdminHandler) EndAuction(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(400).SendString("missing id")
	}
	if err := h.Auctions.EndNow(id, time.Now().UTC()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(404).SendString("auction not found")
		}
		applog.Error(c, "admin.auctions.end.fail", err, map[string]any{"auction_id": id})
		return c.Status(400).SendString("could not end auction")
	}
	applog.Audit(c, "admin.auctions.end", map[string]any{"auction_id": id})
	return c.Redirect("/admin/auctions")
}

// ---------- Orders ----------

// GET /admin/orders
func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	ords, err := h.OrderRepo.ListLatest(100)
	if err != nil {
		applog.Error(c, "admin.orders.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load orders"})
	}
	return render(c, "admin_orders", fiber.Map{"Orders": ords})
}

// POST /admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	status := c.FormValue("status")
	if !ok || status == "" {
		return c.Status(400).SendString("missing id or status")
	}
	if err := h.Orders.UpdateStatus(id, status); err != nil {
		applog.Error(c, "admin.orders.update.fail", err, map[string]any{"order_id": id})
		return c.Status(400).SendString("could not update status")
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": status})
	return c.Redirect("/admin/orders")
}

// ---------- Users ----------

// GET /admin/users
func (h *AdminHandler) UsersPage(c *fiber.Ctx) error {
	users, err := h.Users.List()
	if err != nil {
		applog.Error(c, "admin.users.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load users"})
	}
	return render(c, "admin_users", fiber.Map{"Users": users})
}

// POST /admin/users/:id/admin
func (h *AdminHandler) SetAdmin(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(400).SendString("missing id")
	}
	admin := c.FormValue("is_admin") == "1"
	if err := h.Users.SetAdmin(id, admin); err != nil {
		applog.Error(c, "admin.users.admin.fail", err, map[string]any{"user_id": id})
		return c.Status(400).SendString("could not update user")
	}
	applog.Audit(c, "admin.users.admin", map[string]any{"user_id": id, "is_admin": admin})
	return c.Redirect("/admin/users")
}

// POST /admin/users/:id/delete
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(400).SendString("missing id")
	}
	if err := h.Users.DeleteUserCascade(id); err != nil {
		applog.Error(c, "admin.users.delete.fail", err, map[string]any{"user_id": id})
		return c.Status(400).SendString("could not delete user")
	}
	applog.Audit(c, "admin.users.delete", map[string]any{"user_id": id})
	return c.Redirect("/admin/users")
}
