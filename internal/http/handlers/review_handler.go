package handlers

import (
	"errors"

	"kitgems/internal/domain"
	applog "kitgems/internal/log"
	"kitgems/internal/services"
	"kitgems/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type ReviewHandler struct {
	Reviews *services.ReviewService
}

func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	gemID, ok := validate.ID(c.FormValue("gemId"))
	if !ok {
		return c.Status(400).SendString("missing gemId")
	}
	rating, ok := validate.Rating(c.FormValue("rating"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "rating"})
		return c.Status(400).SendString("rating must be 1-5")
	}
	comment := c.FormValue("comment")
	if len(comment) > 1000 {
		comment = comment[:1000]
	}

	err := h.Reviews.Create(currentUserID(c), gemID, rating, comment)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Redirect("/login")
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(404).Render("notfound", fiber.Map{"Message": "This gem is no longer available"})
	case err != nil:
		applog.Error(c, "review.create.fail", err, map[string]any{"gem": gemID})
		return c.Status(500).SendString("Could not post review")
	}
	applog.Audit(c, "review.create", map[string]any{"gem": gemID, "rating": rating})
	return c.Redirect("/gem/" + gemID)
}
