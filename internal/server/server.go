package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/bidtide/auction-backend/internal/config"
	"github.com/bidtide/auction-backend/internal/handler"
	"github.com/bidtide/auction-backend/internal/mail"
	appmw "github.com/bidtide/auction-backend/internal/middleware"
	"github.com/bidtide/auction-backend/internal/realtime"
	"github.com/bidtide/auction-backend/internal/repository"
	"github.com/bidtide/auction-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type Server struct {
	e           *echo.Echo
	auctionRepo repository.AuctionRepository
	settlement  service.SettlementService
}

func New(db *gorm.DB, cfg *config.Config, hub *realtime.Hub, mailer mail.Mailer) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
				return true, nil
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false, nil
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return false, nil
			}
			return strings.HasSuffix(u.Hostname(), "vercel.app"), nil
		},
	}))

	auctionRepo := repository.NewAuctionRepository(db)
	bidRepo := repository.NewBidRepository(db)
	convRepo := repository.NewConversationRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	notifSvc := service.NewNotificationService(notifRepo, cfg.OutbidCooldown)
	settlementSvc := service.NewSettlementService(auctionRepo, bidRepo, convRepo, notifSvc, hub, mailer)
	auctionSvc := service.NewAuctionService(auctionRepo, settlementSvc, hub, cfg.BidDuration)
	bidSvc := service.NewBidService(auctionRepo, bidRepo, notifSvc, hub)
	chatSvc := service.NewChatService(convRepo, auctionRepo, notifSvc, hub)

	auctionHandler := handler.NewAuctionHandler(auctionSvc)
	bidHandler := handler.NewBidHandler(bidSvc)
	chatHandler := handler.NewChatHandler(chatSvc)
	notifHandler := handler.NewNotificationHandler(notifSvc)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
	})
	e.GET("/ws", hub.Handle)

	api := e.Group("/api")
	if cfg.FirebaseProjectID != "" {
		authMw, err := appmw.NewAuthMiddleware(context.Background(), cfg.FirebaseProjectID)
		if err != nil {
			return nil, err
		}
		api.POST("/auctions", auctionHandler.Create, authMw.RequireAuth)
		api.GET("/me/auctions", auctionHandler.ListMine, authMw.RequireAuth)
		api.POST("/auctions/:id/confirm-fee", auctionHandler.ConfirmFee, authMw.RequireAuth)
		api.POST("/auctions/:id/reject", auctionHandler.Reject, authMw.RequireAuth)
		api.POST("/auctions/:id/close", auctionHandler.Close, authMw.RequireAuth)
		api.POST("/auctions/:id/bids", bidHandler.Place, authMw.RequireAuth)
		api.POST("/auctions/:id/chat", chatHandler.EnsureChannel, authMw.RequireAuth)
		api.GET("/chats", chatHandler.ListChannels, authMw.RequireAuth)
		api.GET("/chats/:id/messages", chatHandler.ListMessages, authMw.RequireAuth)
		api.POST("/chats/:id/messages", chatHandler.PostMessage, authMw.RequireAuth)
		api.GET("/notifications", notifHandler.List, authMw.RequireAuth)
		api.POST("/notifications/read", notifHandler.MarkAllRead, authMw.RequireAuth)
	} else {
		// Local development without Firebase credentials.
		api.POST("/auctions", auctionHandler.Create)
		api.GET("/me/auctions", auctionHandler.ListMine)
		api.POST("/auctions/:id/confirm-fee", auctionHandler.ConfirmFee)
		api.POST("/auctions/:id/reject", auctionHandler.Reject)
		api.POST("/auctions/:id/close", auctionHandler.Close)
		api.POST("/auctions/:id/bids", bidHandler.Place)
		api.POST("/auctions/:id/chat", chatHandler.EnsureChannel)
		api.GET("/chats", chatHandler.ListChannels)
		api.GET("/chats/:id/messages", chatHandler.ListMessages)
		api.POST("/chats/:id/messages", chatHandler.PostMessage)
		api.GET("/notifications", notifHandler.List)
		api.POST("/notifications/read", notifHandler.MarkAllRead)
	}
	api.GET("/auctions", auctionHandler.List)
	api.GET("/auctions/:id", auctionHandler.Get)
	api.GET("/auctions/:id/bids", bidHandler.List)

	return &Server{e: e, auctionRepo: auctionRepo, settlement: settlementSvc}, nil
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// AuctionRepo and Settlement expose the pieces the sweeper shares with the
// request path.
func (s *Server) AuctionRepo() repository.AuctionRepository {
	return s.auctionRepo
}

func (s *Server) Settlement() service.SettlementService {
	return s.settlement
}
