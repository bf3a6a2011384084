package portfolioService

import (
	"context"
	"testing"

	"github.com/kiwicapital/portfolio_manager/config"
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo      *memoryRepo
	cache     *memoryCache
	quotesApi *stubQuotesApi
	generator *stubReportGenerator
	srv       *PortfolioService
}

func newFixture() *fixture {
	repo := newMemoryRepo()
	quoteCache := newMemoryCache()
	quotesApi := &stubQuotesApi{quotes: make(map[string]model.Quote)}
	generator := &stubReportGenerator{}
	srv := New(&config.Config{}, repo, quoteCache, quotesApi, generator)
	return &fixture{
		repo:      repo,
		cache:     quoteCache,
		quotesApi: quotesApi,
		generator: generator,
		srv:       srv,
	}
}

// seedTrader creates a user with the given balance, one portfolio and one
// security AAPL with reference price 100.
func (f *fixture) seedTrader(t *testing.T, balance int64) (username string, portfolioID int64) {
	t.Helper()
	ctx := context.Background()

	user, err := f.srv.RegisterUser(ctx, "alice", "secret", "Alice", "Smith", decimal.NewFromInt(balance), model.RoleUser)
	require.NoError(t, err)

	portfolio, err := f.srv.CreatePortfolio(ctx, user.Username, "long term", "", "")
	require.NoError(t, err)

	_, err = f.srv.CreateSecurity(ctx, "AAPL", "Apple Inc.", decimal.NewFromInt(100))
	require.NoError(t, err)

	return user.Username, portfolio.ID
}

func TestBuySecurity_DebitsBalanceAndAddsHolding(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	username, portfolioID := f.seedTrader(t, 1000)

	transaction, err := f.srv.BuySecurity(ctx, username, portfolioID, "aapl", 2, nil)
	require.NoError(t, err)

	assert.Equal(t, model.TransactionBuy, transaction.Type)
	assert.Equal(t, 2, transaction.Quantity)
	assert.True(t, transaction.TotalPrice.Equal(decimal.NewFromInt(200)))

	user, err := f.srv.GetUser(ctx, username)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(800)), "balance should be debited by the order total, got %s", user.Balance)
	assert.Equal(t, 2, user.Holdings["AAPL"])
}

func TestBuySecurity_ExplicitPriceWins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	username, portfolioID := f.seedTrader(t, 1000)

	price := decimal.NewFromInt(50)
	transaction, err := f.srv.BuySecurity(ctx, username, portfolioID, "AAPL", 3, &price)
	require.NoError(t, err)

	assert.True(t, transaction.Price.Equal(decimal.NewFromInt(50)))
	assert.True(t, transaction.TotalPrice.Equal(decimal.NewFromInt(150)))
}

func TestBuySecurity_UsesLiveQuote(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	username, portfolioID := f.seedTrader(t, 1000)

	f.quotesApi.quotes["AAPL"] = model.Quote{Ticker: "AAPL", Name: "Apple Inc.", Price: decimal.NewFromInt(150)}

	transaction, err := f.srv.BuySecurity(ctx, username, portfolioID, "AAPL", 1, nil)
	require.NoError(t, err)

	assert.True(t, transaction.Price.Equal(decimal.NewFromInt(150)))

	user, err := f.srv.GetUser(ctx, username)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(850)))
}

func TestBuySecurity_QuoteProviderDownFallsBackToReferencePrice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	username, portfolioID := f.seedTrader(t, 1000)

	f.quotesApi.err = errApiDown

	transaction, err := f.srv.BuySecurity(ctx, username, portfolioID, "AAPL", 1, nil)
	require.NoError(t, err, "a dead quotes provider must not block trading")
	assert.True(t, transaction.Price.Equal(decimal.NewFromInt(100)))
}

func TestBuySecurity_InsufficientFundsLeavesStateUntouched(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	username, portfolioID := f.seedTrader(t, 100)

	_, err := f.srv.BuySecurity(ctx, username, portfolioID, "AAPL", 5, nil)
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)

	user, err := f.srv.GetUser(ctx, username)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(100)), "failed order must not touch the balance")
	assert.Empty(t, user.Holdings)

	transactions, err := f.srv.TransactionsByPortfolio(ctx, portfolioID)
	require.NoError(t, err)
	assert.Empty(t, transactions, "failed order must not leave an audit record")
}

func TestBuySecurity_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	username, portfolioID := f.seedTrader(t, 1000)

	_, err := f.srv.BuySecurity(ctx, username, portfolioID, "AAPL", 0, nil)
	assert.ErrorIs(t, err, service.ErrInvalidQuantity)

	_, err = f.srv.BuySecurity(ctx, username, portfolioID, "AAPL", -3, nil)
	assert.ErrorIs(t, err, service.ErrInvalidQuantity)

	badPrice := decimal.NewFromInt(-10)
	_, err = f.srv.BuySecurity(ctx, username, portfolioID, "AAPL", 1, &badPrice)
	assert.ErrorIs(t, err, service.ErrInvalidPrice)

	_, err = f.srv.BuySecurity(ctx, username, portfolioID, "MSFT", 1, nil)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.srv.BuySecurity(ctx, username, portfolioID+100, "AAPL", 1, nil)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestBuySecurity_ForeignPortfolioForbidden(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, portfolioID := f.seedTrader(t, 1000)

	_, err := f.srv.RegisterUser(ctx, "bob", "secret", "", "", decimal.NewFromInt(1000), model.RoleUser)
	require.NoError(t, err)

	_, err = f.srv.BuySecurity(ctx, "bob", portfolioID, "AAPL", 1, nil)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestBuySecurity_AdminMayTradeAnyPortfolio(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, portfolioID := f.seedTrader(t, 1000)

	_, err := f.srv.RegisterUser(ctx, "root", "secret", "", "", decimal.NewFromInt(500), model.RoleAdmin)
	require.NoError(t, err)

	_, err = f.srv.BuySecurity(ctx, "root", portfolioID, "AAPL", 1, nil)
	require.NoError(t, err)

	admin, err := f.srv.GetUser(ctx, "root")
	require.NoError(t, err)
	assert.True(t, admin.Balance.Equal(decimal.NewFromInt(400)), "the acting user pays, not the portfolio owner")
}

func TestSellSecurity_CreditsBalanceAndRemovesEmptyHolding(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	username, portfolioID := f.seedTrader(t, 1000)

	_, err := f.srv.BuySecurity(ctx, username, portfolioID, "AAPL", 2, nil)
	require.NoError(t, err)

	sellPrice := decimal.NewFromInt(120)
	transaction, err := f.srv.SellSecurity(ctx, username, portfolioID, "AAPL", 2, &sellPrice)
	require.NoError(t, err)

	assert.Equal(t, model.TransactionSell, transaction.Type)
	assert.True(t, transaction.TotalPrice.Equal(decimal.NewFromInt(240)))

	user, err := f.srv.GetUser(ctx, username)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(1040)), "1000 - 200 + 240, got %s", user.Balance)
	assert.NotContains(t, user.Holdings, "AAPL", "a position sold down to zero disappears")
}

func TestSellSecurity_PartialSellKeepsRemainder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	username, portfolioID := f.seedTrader(t, 1000)

	_, err := f.srv.BuySecurity(ctx, username, portfolioID, "AAPL", 5, nil)
	require.NoError(t, err)

	_, err = f.srv.SellSecurity(ctx, username, portfolioID, "AAPL", 2, nil)
	require.NoError(t, err)

	user, err := f.srv.GetUser(ctx, username)
	require.NoError(t, err)
	assert.Equal(t, 3, user.Holdings["AAPL"])
}

func TestSellSecurity_InsufficientHoldingsLeavesStateUntouched(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	username, portfolioID := f.seedTrader(t, 1000)

	_, err := f.srv.BuySecurity(ctx, username, portfolioID, "AAPL", 1, nil)
	require.NoError(t, err)

	_, err = f.srv.SellSecurity(ctx, username, portfolioID, "AAPL", 5, nil)
	assert.ErrorIs(t, err, service.ErrInsufficientHoldings)

	user, err := f.srv.GetUser(ctx, username)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(900)))
	assert.Equal(t, 1, user.Holdings["AAPL"])

	transactions, err := f.srv.TransactionsByPortfolio(ctx, portfolioID)
	require.NoError(t, err)
	assert.Len(t, transactions, 1, "only the buy must be recorded")
}

func TestSellSecurity_NeverHeldTicker(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	username, portfolioID := f.seedTrader(t, 1000)

	_, err := f.srv.SellSecurity(ctx, username, portfolioID, "AAPL", 1, nil)
	assert.ErrorIs(t, err, service.ErrInsufficientHoldings)
}

func TestOrders_AuditTrailIsOrderedOldestFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	username, portfolioID := f.seedTrader(t, 10000)

	_, err := f.srv.BuySecurity(ctx, username, portfolioID, "AAPL", 3, nil)
	require.NoError(t, err)
	_, err = f.srv.BuySecurity(ctx, username, portfolioID, "AAPL", 2, nil)
	require.NoError(t, err)
	_, err = f.srv.SellSecurity(ctx, username, portfolioID, "AAPL", 4, nil)
	require.NoError(t, err)

	transactions, err := f.srv.TransactionsByPortfolio(ctx, portfolioID)
	require.NoError(t, err)
	require.Len(t, transactions, 3)

	assert.Equal(t, model.TransactionBuy, transactions[0].Type)
	assert.Equal(t, model.TransactionBuy, transactions[1].Type)
	assert.Equal(t, model.TransactionSell, transactions[2].Type)

	for i := 1; i < len(transactions); i++ {
		assert.True(
			t,
			transactions[i].CreatedAt.After(transactions[i-1].CreatedAt),
			"history must be ordered oldest first",
		)
	}
}
