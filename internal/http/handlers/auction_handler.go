package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"kitgems/internal/domain"
	applog "kitgems/internal/log"
	"kitgems/internal/services"
	"kitgems/internal/validate"
)

type AuctionHandler struct {
	Auctions *services.AuctionService
}

// List renders the auction floor: live first ordered by soonest end, then
// upcoming.
func (h *AuctionHandler) List(c *fiber.Ctx) error {
	live, err := h.Auctions.ListByStatus(domain.StatusLive)
	if err != nil {
		applog.Error(c, "auctions.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load auctions"})
	}
	upcoming, err := h.Auctions.ListByStatus(domain.StatusUpcoming)
	if err != nil {
		applog.Error(c, "auctions.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load auctions"})
	}
	return render(c, "auctions", fiber.Map{"Live": live, "Upcoming": upcoming})
}

func (h *AuctionHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Auction not found"})
	}
	a, bids, err := h.Auctions.Detail(id)
	if err != nil {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Auction not found"})
	}
	return render(c, "auction", fiber.Map{"Auction": a, "Bids": bids})
}

// Poll is the countdown endpoint: clients poll it for the authoritative
// current_bid/bid_count/status instead of mutating their own view.
func (h *AuctionHandler) Poll(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	a, err := h.Auctions.Auctions.Get(id)
	if err != nil {
		return jsonError(c, err)
	}
	now := time.Now().UTC()
	return c.JSON(fiber.Map{
		"id":          a.ID,
		"status":      services.DeriveStatus(a, now),
		"current_bid": a.CurrentBid,
		"bid_count":   a.BidCount,
		"min_next":    services.NextMinimum(a.CurrentBid, a.MinIncrement),
		"end_time":    a.EndTime,
	})
}

// PlaceBid accepts a bid over the JSON API. Every rejection reason maps to
// its own status and message via jsonError.
func (h *AuctionHandler) PlaceBid(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}

	var userID string
	if u, ok := c.Locals("user").(*domain.User); ok && u != nil {
		userID = u.ID
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil || req.Amount <= 0 {
		applog.Security(c, "validation.fail", map[string]any{"field": "amount"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "enter a valid bid amount"})
	}

	bid, auction, err := h.Auctions.PlaceBid(id, userID, req.Amount, time.Now().UTC())
	if err != nil {
		applog.Security(c, "bid.reject", map[string]any{"auction_id": id, "amount": req.Amount, "reason": err.Error()})
		return jsonError(c, err)
	}

	applog.Audit(c, "bid.accept", map[string]any{
		"auction_id": id, "bid_id": bid.ID, "amount": bid.Amount,
	})
	return c.JSON(fiber.Map{
		"success":     true,
		"bid_id":      bid.ID,
		"your_bid":    bid.Amount,
		"current_bid": auction.CurrentBid,
		"bid_count":   auction.BidCount,
	})
}

// MyBids shows a bidder's own bid history.
func (h *AuctionHandler) MyBids(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return c.Redirect("/login")
	}
	bids, err := h.Auctions.BidsByUser(u.ID)
	if err != nil {
		applog.Error(c, "bids.history.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load your bids"})
	}
	return render(c, "my_bids", fiber.Map{"Bids": bids})
}
