package handlers

import (
	"kitgems/internal/log"
	"kitgems/internal/services"
	"kitgems/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type GemHandler struct {
	Catalog *services.CatalogService
}

func (h *GemHandler) Home(c *fiber.Ctx) error {
	featured, err := h.Catalog.Featured(6)
	if err != nil {
		log.Error(c, "home.load", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load the storefront"})
	}
	return render(c, "home", fiber.Map{"Featured": featured})
}

// Shop lists the catalog with an optional type filter.
func (h *GemHandler) Shop(c *fiber.Ctx) error {
	gemType := c.Query("type")
	if gemType != "" {
		var ok bool
		if gemType, ok = validate.GemType(gemType); !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "type"})
			return c.Status(400).Render("shop", fiber.Map{"Gems": []any{}, "Err": "Unknown gem type"})
		}
	}
	gems, err := h.Catalog.ListGems(gemType, false, c.QueryInt("page", 1), 12)
	if err != nil {
		log.Error(c, "shop.load", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load the catalog"})
	}
	return render(c, "shop", fiber.Map{"Gems": gems, "Type": gemType})
}

func (h *GemHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "gem"})
		return c.Status(404).Render("notfound", fiber.Map{"Message": "This gem is no longer available"})
	}
	g, reviews, err := h.Catalog.GemWithReviews(id)
	if err != nil {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "This gem is no longer available"})
	}
	return render(c, "gem", fiber.Map{"Gem": g, "Reviews": reviews})
}
