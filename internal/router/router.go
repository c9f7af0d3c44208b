package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sh4d0wy/fox-backend/internal/chain"
	"github.com/sh4d0wy/fox-backend/internal/config"
	"github.com/sh4d0wy/fox-backend/internal/handler"
	"github.com/sh4d0wy/fox-backend/internal/logic"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, chainClient *chain.Client, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "fox-backend",
		})
	})

	raffleLogic := logic.NewRaffleLogic(db, chainClient)
	auctionLogic := logic.NewAuctionLogic(db, chainClient, cfg.Auction)
	gumballLogic := logic.NewGumballLogic(db, chainClient, chainClient)

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 抽奖相关路由
		raffleHandler := handler.NewRaffleHandler(raffleLogic, chainClient)
		raffles := v1.Group("/raffles")
		{
			raffles.POST("", raffleHandler.CreateRaffle)
			raffles.GET("", raffleHandler.GetRaffles)
			raffles.GET("/:id", raffleHandler.GetRaffle)
			raffles.GET("/:id/entries", raffleHandler.GetRaffleEntries)
			raffles.GET("/:id/instructions/enter", raffleHandler.BuildEnterInstruction)
			raffles.POST("/:id/activate", raffleHandler.ActivateRaffle)
			raffles.POST("/:id/enter", raffleHandler.EnterRaffle)
			raffles.POST("/:id/claim", raffleHandler.ClaimRafflePrize)
			raffles.POST("/:id/cancel", raffleHandler.CancelRaffle)
		}

		// 拍卖相关路由
		auctionHandler := handler.NewAuctionHandler(auctionLogic, chainClient)
		auctions := v1.Group("/auctions")
		{
			auctions.POST("", auctionHandler.CreateAuction)
			auctions.GET("", auctionHandler.GetAuctions)
			auctions.GET("/:id", auctionHandler.GetAuction)
			auctions.GET("/:id/bids", auctionHandler.GetAuctionBids)
			auctions.GET("/:id/instructions/bid", auctionHandler.BuildBidInstruction)
			auctions.POST("/:id/bids", auctionHandler.PlaceBid)
			auctions.POST("/:id/claim-prize", auctionHandler.ClaimAuctionPrize)
			auctions.POST("/:id/claim-proceeds", auctionHandler.ClaimAuctionProceeds)
			auctions.POST("/:id/cancel", auctionHandler.CancelAuction)
		}

		// 扭蛋机相关路由
		gumballHandler := handler.NewGumballHandler(gumballLogic, chainClient)
		gumballs := v1.Group("/gumballs")
		{
			gumballs.POST("", gumballHandler.CreateGumball)
			gumballs.GET("", gumballHandler.GetGumballs)
			gumballs.GET("/:id", gumballHandler.GetGumball)
			gumballs.GET("/:id/spins", gumballHandler.GetGumballSpins)
			gumballs.GET("/:id/instructions/spin", gumballHandler.BuildSpinInstruction)
			gumballs.POST("/:id/spins", gumballHandler.Spin)
			gumballs.POST("/:id/claim", gumballHandler.ClaimSpin)
			gumballs.POST("/:id/buy-back", gumballHandler.BuyBack)
			gumballs.POST("/:id/cancel", gumballHandler.CancelGumball)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
