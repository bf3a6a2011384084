package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/kiwicapital/portfolio_manager/config"
	"github.com/kiwicapital/portfolio_manager/internal/transport/rest/middleware"
)

func NewRouter(cfg *config.Config, ctrl *Controller) *gin.Engine {
	if !cfg.API.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger())

	router.GET("/health", ctrl.Health)

	users := router.Group("/users")
	{
		users.POST("", ctrl.RegisterUser)
		users.GET("", ctrl.ListUsers)
		users.GET("/:username", ctrl.GetUser)
		users.DELETE("/:username", ctrl.DeleteUser)
		users.PUT("/:username/role", ctrl.ChangeUserRole)
		users.PUT("/:username/balance", ctrl.SetUserBalance)
		users.GET("/:username/portfolios", ctrl.ListPortfoliosByUser)
		users.GET("/:username/transactions", ctrl.TransactionsByUser)
	}

	portfolios := router.Group("/portfolios")
	{
		portfolios.POST("", ctrl.CreatePortfolio)
		portfolios.GET("", ctrl.ListPortfolios)
		portfolios.GET("/:id", ctrl.GetPortfolio)
		portfolios.PUT("/:id", ctrl.UpdatePortfolio)
		portfolios.DELETE("/:id", ctrl.DeletePortfolio)
		portfolios.POST("/:id/holdings", ctrl.AddHolding)
		portfolios.DELETE("/:id/holdings/:ticker", ctrl.RemoveHolding)
		portfolios.POST("/:id/buy", ctrl.BuySecurity)
		portfolios.POST("/:id/sell", ctrl.SellSecurity)
		portfolios.GET("/:id/report", ctrl.PortfolioReport)
		portfolios.GET("/:id/transactions", ctrl.TransactionsByPortfolio)
	}

	securities := router.Group("/securities")
	{
		securities.POST("", ctrl.CreateSecurity)
		securities.GET("", ctrl.ListSecurities)
		securities.GET("/:ticker", ctrl.GetSecurity)
		securities.GET("/:ticker/quote", ctrl.GetSecurityQuote)
		securities.GET("/:ticker/transactions", ctrl.TransactionsBySecurity)
	}

	return router
}
