package handlers

import (
	"kitgems/internal/config"
	"kitgems/internal/repos"
	"kitgems/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	GemHandler      *GemHandler
	SearchHandler   *SearchHandler
	AuctionHandler  *AuctionHandler
	CartHandler     *CartHandler
	OrderHandler    *OrderHandler
	WishlistHandler *WishlistHandler
	ReviewHandler   *ReviewHandler
	ProfileHandler  *ProfileHandler
	AdminHandler    *AdminHandler

	AuctionSvc *services.AuctionService
}

func NewDeps(db *sqlx.DB, cfg config.Config, auth *services.AuthService) *Deps {
	gemRepo := repos.NewGemRepo(db)
	auctionRepo := repos.NewAuctionRepo(db)
	bidRepo := repos.NewBidRepo(db)
	cartRepo := repos.NewCartRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	wishRepo := repos.NewWishlistRepo(db)
	reviewRepo := repos.NewReviewRepo(db)
	userRepo := repos.NewUserRepo(db)

	catalogSvc := services.NewCatalogService(gemRepo, reviewRepo)
	auctionSvc := services.NewAuctionService(auctionRepo, bidRepo, gemRepo, cfg.MinIncrement, cfg.BidLockWait)
	cartSvc := services.NewCartService(cartRepo, gemRepo)
	orderSvc := services.NewOrderService(cartRepo, orderRepo)
	wishSvc := services.NewWishlistService(wishRepo, gemRepo)
	reviewSvc := services.NewReviewService(reviewRepo, gemRepo)

	return &Deps{
		GemHandler:      &GemHandler{Catalog: catalogSvc},
		SearchHandler:   &SearchHandler{Catalog: catalogSvc},
		AuctionHandler:  &AuctionHandler{Auctions: auctionSvc},
		CartHandler:     &CartHandler{Cart: cartSvc},
		OrderHandler:    &OrderHandler{Cart: cartSvc, Order: orderSvc, Repo: orderRepo},
		WishlistHandler: &WishlistHandler{Wish: wishSvc},
		ReviewHandler:   &ReviewHandler{Reviews: reviewSvc},
		ProfileHandler:  &ProfileHandler{Users: userRepo, Auctions: auctionSvc, Orders: orderRepo},
		AdminHandler: &AdminHandler{
			Gems: gemRepo, Auctions: auctionSvc, Orders: orderSvc,
			OrderRepo: orderRepo, Users: userRepo,
		},
		AuctionSvc: auctionSvc,
	}
}
