package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kiwicapital/portfolio_manager/internal/converter/restConverter"
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/internal/service"
	"github.com/kiwicapital/portfolio_manager/utils"
	"github.com/shopspring/decimal"
)

// actingUserHeader identifies the user a request acts on behalf of.
const actingUserHeader = "X-Acting-User"

type PortfolioManagerService interface {
	RegisterUser(ctx context.Context, username, password, firstName, lastName string, balance decimal.Decimal, role string) (model.User, error)
	GetUser(ctx context.Context, username string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, username string) error
	ChangeUserRole(ctx context.Context, username, role string) error
	SetUserBalance(ctx context.Context, username string, balance decimal.Decimal) error

	CreatePortfolio(ctx context.Context, actingUser, name, description, strategy string) (model.Portfolio, error)
	GetPortfolio(ctx context.Context, portfolioID int64) (model.Portfolio, error)
	ListPortfolios(ctx context.Context) ([]model.Portfolio, error)
	ListPortfoliosByUser(ctx context.Context, username string) ([]model.Portfolio, error)
	UpdatePortfolio(ctx context.Context, actingUser string, portfolioID int64, name, description, strategy *string) error
	DeletePortfolio(ctx context.Context, actingUser string, portfolioID int64) error
	AddHolding(ctx context.Context, actingUser string, portfolioID int64, ticker string, quantity int) error
	RemoveHolding(ctx context.Context, actingUser string, portfolioID int64, ticker string) error

	BuySecurity(ctx context.Context, username string, portfolioID int64, ticker string, quantity int, price *decimal.Decimal) (model.Transaction, error)
	SellSecurity(ctx context.Context, username string, portfolioID int64, ticker string, quantity int, price *decimal.Decimal) (model.Transaction, error)

	CreateSecurity(ctx context.Context, ticker, name string, referencePrice decimal.Decimal) (model.Security, error)
	GetSecurity(ctx context.Context, ticker string) (model.Security, error)
	ListSecurities(ctx context.Context) ([]model.Security, error)
	GetSecurityQuote(ctx context.Context, ticker string) (model.Quote, error)

	TransactionsByUser(ctx context.Context, username string) ([]model.Transaction, error)
	TransactionsByPortfolio(ctx context.Context, portfolioID int64) ([]model.Transaction, error)
	TransactionsBySecurity(ctx context.Context, ticker string) ([]model.Transaction, error)
	PortfolioReport(ctx context.Context, actingUser string, portfolioID int64) (fileBytes []byte, fileName string, err error)
}

type Controller struct {
	portfolioManagerService PortfolioManagerService
}

func NewController(portfolioManagerService PortfolioManagerService) *Controller {
	return &Controller{portfolioManagerService: portfolioManagerService}
}

func (ctrl *Controller) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type registerUserRequest struct {
	Username  string          `json:"username" binding:"required"`
	Password  string          `json:"password" binding:"required"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Balance   decimal.Decimal `json:"balance"`
	Role      string          `json:"role"`
}

func (ctrl *Controller) RegisterUser(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := ctrl.portfolioManagerService.RegisterUser(ctx, req.Username, req.Password, req.FirstName, req.LastName, req.Balance, req.Role)
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.JSON(http.StatusCreated, restConverter.ConvertUser(user))
}

func (ctrl *Controller) GetUser(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	user, err := ctrl.portfolioManagerService.GetUser(ctx, c.Param("username"))
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.ConvertUser(user))
}

func (ctrl *Controller) ListUsers(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	users, err := ctrl.portfolioManagerService.ListUsers(ctx)
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.ConvertUsers(users))
}

func (ctrl *Controller) DeleteUser(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	if err := ctrl.portfolioManagerService.DeleteUser(ctx, c.Param("username")); err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type changeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (ctrl *Controller) ChangeUserRole(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	var req changeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ctrl.portfolioManagerService.ChangeUserRole(ctx, c.Param("username"), req.Role); err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type setBalanceRequest struct {
	Balance decimal.Decimal `json:"balance" binding:"required"`
}

func (ctrl *Controller) SetUserBalance(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	var req setBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ctrl.portfolioManagerService.SetUserBalance(ctx, c.Param("username"), req.Balance); err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type createPortfolioRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Strategy    string `json:"strategy"`
}

func (ctrl *Controller) CreatePortfolio(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	actingUser, ok := ctrl.actingUser(c)
	if !ok {
		return
	}

	var req createPortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	portfolio, err := ctrl.portfolioManagerService.CreatePortfolio(ctx, actingUser, req.Name, req.Description, req.Strategy)
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.JSON(http.StatusCreated, restConverter.ConvertPortfolio(portfolio))
}

func (ctrl *Controller) GetPortfolio(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	portfolioID, ok := ctrl.portfolioIDParam(c)
	if !ok {
		return
	}

	portfolio, err := ctrl.portfolioManagerService.GetPortfolio(ctx, portfolioID)
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.ConvertPortfolio(portfolio))
}

func (ctrl *Controller) ListPortfolios(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	portfolios, err := ctrl.portfolioManagerService.ListPortfolios(ctx)
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.ConvertPortfolios(portfolios))
}

func (ctrl *Controller) ListPortfoliosByUser(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	portfolios, err := ctrl.portfolioManagerService.ListPortfoliosByUser(ctx, c.Param("username"))
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.ConvertPortfolios(portfolios))
}

type updatePortfolioRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Strategy    *string `json:"strategy"`
}

func (ctrl *Controller) UpdatePortfolio(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	actingUser, ok := ctrl.actingUser(c)
	if !ok {
		return
	}

	portfolioID, ok := ctrl.portfolioIDParam(c)
	if !ok {
		return
	}

	var req updatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ctrl.portfolioManagerService.UpdatePortfolio(ctx, actingUser, portfolioID, req.Name, req.Description, req.Strategy); err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (ctrl *Controller) DeletePortfolio(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	actingUser, ok := ctrl.actingUser(c)
	if !ok {
		return
	}

	portfolioID, ok := ctrl.portfolioIDParam(c)
	if !ok {
		return
	}

	if err := ctrl.portfolioManagerService.DeletePortfolio(ctx, actingUser, portfolioID); err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type addHoldingRequest struct {
	Ticker   string `json:"ticker" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

func (ctrl *Controller) AddHolding(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	actingUser, ok := ctrl.actingUser(c)
	if !ok {
		return
	}

	portfolioID, ok := ctrl.portfolioIDParam(c)
	if !ok {
		return
	}

	var req addHoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ctrl.portfolioManagerService.AddHolding(ctx, actingUser, portfolioID, req.Ticker, req.Quantity); err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (ctrl *Controller) RemoveHolding(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	actingUser, ok := ctrl.actingUser(c)
	if !ok {
		return
	}

	portfolioID, ok := ctrl.portfolioIDParam(c)
	if !ok {
		return
	}

	if err := ctrl.portfolioManagerService.RemoveHolding(ctx, actingUser, portfolioID, c.Param("ticker")); err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type orderRequest struct {
	Ticker   string           `json:"ticker" binding:"required"`
	Quantity int              `json:"quantity" binding:"required"`
	Price    *decimal.Decimal `json:"price"`
}

func (ctrl *Controller) BuySecurity(c *gin.Context) {
	ctrl.processOrder(c, ctrl.portfolioManagerService.BuySecurity)
}

func (ctrl *Controller) SellSecurity(c *gin.Context) {
	ctrl.processOrder(c, ctrl.portfolioManagerService.SellSecurity)
}

func (ctrl *Controller) processOrder(
	c *gin.Context,
	orderFn func(ctx context.Context, username string, portfolioID int64, ticker string, quantity int, price *decimal.Decimal) (model.Transaction, error),
) {
	ctx := utils.CreateCtxWithRqID(c)

	actingUser, ok := ctrl.actingUser(c)
	if !ok {
		return
	}

	portfolioID, ok := ctrl.portfolioIDParam(c)
	if !ok {
		return
	}

	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transaction, err := orderFn(ctx, actingUser, portfolioID, req.Ticker, req.Quantity, req.Price)
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.JSON(http.StatusCreated, restConverter.ConvertTransaction(transaction))
}

func (ctrl *Controller) PortfolioReport(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	actingUser, ok := ctrl.actingUser(c)
	if !ok {
		return
	}

	portfolioID, ok := ctrl.portfolioIDParam(c)
	if !ok {
		return
	}

	fileBytes, fileName, err := ctrl.portfolioManagerService.PortfolioReport(ctx, actingUser, portfolioID)
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", fileBytes)
}

type createSecurityRequest struct {
	Ticker         string          `json:"ticker" binding:"required"`
	Name           string          `json:"name" binding:"required"`
	ReferencePrice decimal.Decimal `json:"reference_price" binding:"required"`
}

func (ctrl *Controller) CreateSecurity(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	var req createSecurityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	security, err := ctrl.portfolioManagerService.CreateSecurity(ctx, req.Ticker, req.Name, req.ReferencePrice)
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.JSON(http.StatusCreated, restConverter.ConvertSecurity(security))
}

func (ctrl *Controller) GetSecurity(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	security, err := ctrl.portfolioManagerService.GetSecurity(ctx, c.Param("ticker"))
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.ConvertSecurity(security))
}

func (ctrl *Controller) ListSecurities(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	securities, err := ctrl.portfolioManagerService.ListSecurities(ctx)
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.ConvertSecurities(securities))
}

func (ctrl *Controller) GetSecurityQuote(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	quote, err := ctrl.portfolioManagerService.GetSecurityQuote(ctx, c.Param("ticker"))
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.ConvertQuote(quote))
}

func (ctrl *Controller) TransactionsByUser(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	transactions, err := ctrl.portfolioManagerService.TransactionsByUser(ctx, c.Param("username"))
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.ConvertTransactions(transactions))
}

func (ctrl *Controller) TransactionsByPortfolio(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	portfolioID, ok := ctrl.portfolioIDParam(c)
	if !ok {
		return
	}

	transactions, err := ctrl.portfolioManagerService.TransactionsByPortfolio(ctx, portfolioID)
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.ConvertTransactions(transactions))
}

func (ctrl *Controller) TransactionsBySecurity(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)

	transactions, err := ctrl.portfolioManagerService.TransactionsBySecurity(ctx, c.Param("ticker"))
	if err != nil {
		ctrl.respondErr(c, ctx, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.ConvertTransactions(transactions))
}

func (ctrl *Controller) actingUser(c *gin.Context) (string, bool) {
	actingUser := c.GetHeader(actingUserHeader)
	if actingUser == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": actingUserHeader + " header is required"})
		return "", false
	}
	return actingUser, true
}

func (ctrl *Controller) portfolioIDParam(c *gin.Context) (int64, bool) {
	portfolioID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid portfolio id"})
		return 0, false
	}
	return portfolioID, true
}

func (ctrl *Controller) respondErr(c *gin.Context, ctx context.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrInsufficientHoldings),
		errors.Is(err, service.ErrLastAdmin):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrNegativeBalance):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		rqID := utils.GetRequestIDFromCtx(ctx)
		slog.Error("internal error", slog.String("rqID", rqID), slog.String("err", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
