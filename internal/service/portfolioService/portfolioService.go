package portfolioService

import (
	"context"
	"time"

	"github.com/kiwicapital/portfolio_manager/config"
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/internal/model/dbModel"
	"github.com/shopspring/decimal"
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error

	InsertUser(ctx context.Context, user dbModel.User) (userID int64, err error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	GetUserForUpdate(ctx context.Context, username string) (model.User, error)
	GetUsers(ctx context.Context) ([]model.User, error)
	UpdateUserBalance(ctx context.Context, userID int64, balance decimal.Decimal) error
	UpdateUserRole(ctx context.Context, username, role string) error
	CountAdmins(ctx context.Context) (int, error)
	DeleteUser(ctx context.Context, username string) error
	GetUserHoldings(ctx context.Context, userID int64) (map[string]int, error)

	InsertPortfolio(ctx context.Context, name, description, strategy string, userID int64) (portfolioID int64, err error)
	GetPortfolio(ctx context.Context, portfolioID int64) (model.Portfolio, error)
	GetPortfolios(ctx context.Context) ([]model.Portfolio, error)
	GetPortfoliosByUserID(ctx context.Context, userID int64) ([]model.Portfolio, error)
	UpdatePortfolio(ctx context.Context, portfolioID int64, name, description, strategy *string) error
	DeletePortfolio(ctx context.Context, portfolioID int64) error
	GetPortfolioHoldings(ctx context.Context, portfolioID int64) ([]model.Holding, error)

	InsertSecurity(ctx context.Context, ticker, name string, referencePrice decimal.Decimal) (securityID int64, err error)
	GetSecurityByTicker(ctx context.Context, ticker string) (model.Security, error)
	GetSecurities(ctx context.Context) ([]model.Security, error)
	UpdateReferencePrices(ctx context.Context, prices map[string]decimal.Decimal) error

	GetInvestmentForUpdate(ctx context.Context, portfolioID, securityID int64) (dbModel.Investment, error)
	AddToInvestment(ctx context.Context, portfolioID, securityID int64, quantity int) error
	SetInvestmentQuantity(ctx context.Context, portfolioID, securityID int64, quantity int) error
	DeleteInvestment(ctx context.Context, portfolioID, securityID int64) error

	InsertTransaction(ctx context.Context, transaction dbModel.Transaction) (transactionID int64, createdAt time.Time, err error)
	GetTransactionsByUserID(ctx context.Context, userID int64) ([]model.Transaction, error)
	GetTransactionsByPortfolioID(ctx context.Context, portfolioID int64) ([]model.Transaction, error)
	GetTransactionsByTicker(ctx context.Context, ticker string) ([]model.Transaction, error)
}

type Cache interface {
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)
	GetQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error)
	SetQuotes(ctx context.Context, quotes []model.Quote) error
}

type QuotesApi interface {
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)
	GetQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.PortfolioReport) (fileBytes []byte, fileExtension string, err error)
}

type PortfolioService struct {
	cfg             *config.Config
	repo            Repository
	cache           Cache
	quotesApi       QuotesApi
	reportGenerator ReportGenerator
}

func New(cfg *config.Config, repo Repository, cache Cache, quotesApi QuotesApi, reportGenerator ReportGenerator) *PortfolioService {
	return &PortfolioService{
		cfg:             cfg,
		repo:            repo,
		cache:           cache,
		quotesApi:       quotesApi,
		reportGenerator: reportGenerator,
	}
}
