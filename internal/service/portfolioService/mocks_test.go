package portfolioService

import (
	"context"
	"errors"
	"time"

	"github.com/kiwicapital/portfolio_manager/data/cache"
	"github.com/kiwicapital/portfolio_manager/data/repository"
	"github.com/kiwicapital/portfolio_manager/internal/externalApi"
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/internal/model/dbModel"
	"github.com/shopspring/decimal"
)

type investmentKey struct {
	portfolioID int64
	securityID  int64
}

// memoryRepo is an in-memory Repository. WithinTransaction snapshots the
// whole state and restores it when the wrapped function fails, mirroring a
// database rollback.
type memoryRepo struct {
	users        map[string]model.User
	portfolios   map[int64]dbModel.Portfolio
	securities   map[string]model.Security
	investments  map[investmentKey]int
	transactions []model.Transaction
	nextID       int64
	now          time.Time
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		users:       make(map[string]model.User),
		portfolios:  make(map[int64]dbModel.Portfolio),
		securities:  make(map[string]model.Security),
		investments: make(map[investmentKey]int),
		now:         time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (r *memoryRepo) nextId() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryRepo) tick() time.Time {
	r.now = r.now.Add(time.Second)
	return r.now
}

func (r *memoryRepo) snapshot() *memoryRepo {
	users := make(map[string]model.User, len(r.users))
	for k, v := range r.users {
		users[k] = v
	}
	portfolios := make(map[int64]dbModel.Portfolio, len(r.portfolios))
	for k, v := range r.portfolios {
		portfolios[k] = v
	}
	securities := make(map[string]model.Security, len(r.securities))
	for k, v := range r.securities {
		securities[k] = v
	}
	investments := make(map[investmentKey]int, len(r.investments))
	for k, v := range r.investments {
		investments[k] = v
	}
	transactions := make([]model.Transaction, len(r.transactions))
	copy(transactions, r.transactions)

	return &memoryRepo{
		users:        users,
		portfolios:   portfolios,
		securities:   securities,
		investments:  investments,
		transactions: transactions,
		nextID:       r.nextID,
		now:          r.now,
	}
}

func (r *memoryRepo) restore(s *memoryRepo) {
	r.users = s.users
	r.portfolios = s.portfolios
	r.securities = s.securities
	r.investments = s.investments
	r.transactions = s.transactions
	r.nextID = s.nextID
	r.now = s.now
}

func (r *memoryRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	snap := r.snapshot()
	if err := tFunc(ctx); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *memoryRepo) InsertUser(ctx context.Context, user dbModel.User) (int64, error) {
	if _, ok := r.users[user.Username]; ok {
		return 0, repository.ErrAlreadyExists
	}
	id := r.nextId()
	r.users[user.Username] = model.User{
		ID:        id,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Balance:   user.Balance,
		Role:      user.Role,
	}
	return id, nil
}

func (r *memoryRepo) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	user, ok := r.users[username]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (r *memoryRepo) GetUserForUpdate(ctx context.Context, username string) (model.User, error) {
	return r.GetUserByUsername(ctx, username)
}

func (r *memoryRepo) GetUsers(ctx context.Context) ([]model.User, error) {
	users := make([]model.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	return users, nil
}

func (r *memoryRepo) UpdateUserBalance(ctx context.Context, userID int64, balance decimal.Decimal) error {
	for username, user := range r.users {
		if user.ID == userID {
			user.Balance = balance
			r.users[username] = user
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memoryRepo) UpdateUserRole(ctx context.Context, username, role string) error {
	user, ok := r.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	user.Role = role
	r.users[username] = user
	return nil
}

func (r *memoryRepo) CountAdmins(ctx context.Context) (int, error) {
	count := 0
	for _, user := range r.users {
		if user.Role == model.RoleAdmin {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepo) DeleteUser(ctx context.Context, username string) error {
	user, ok := r.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	for id, portfolio := range r.portfolios {
		if portfolio.UserID == user.ID {
			_ = r.DeletePortfolio(ctx, id)
		}
	}
	delete(r.users, username)
	return nil
}

func (r *memoryRepo) GetUserHoldings(ctx context.Context, userID int64) (map[string]int, error) {
	holdings := make(map[string]int)
	for key, quantity := range r.investments {
		portfolio, ok := r.portfolios[key.portfolioID]
		if !ok || portfolio.UserID != userID {
			continue
		}
		security, err := r.securityByID(key.securityID)
		if err != nil {
			continue
		}
		holdings[security.Ticker] += quantity
	}
	return holdings, nil
}

func (r *memoryRepo) InsertPortfolio(ctx context.Context, name, description, strategy string, userID int64) (int64, error) {
	id := r.nextId()
	r.portfolios[id] = dbModel.Portfolio{
		PortfolioID: id,
		Name:        name,
		Description: description,
		Strategy:    strategy,
		UserID:      userID,
	}
	return id, nil
}

func (r *memoryRepo) GetPortfolio(ctx context.Context, portfolioID int64) (model.Portfolio, error) {
	portfolio, ok := r.portfolios[portfolioID]
	if !ok {
		return model.Portfolio{}, repository.ErrNotFound
	}
	owner := ""
	for _, user := range r.users {
		if user.ID == portfolio.UserID {
			owner = user.Username
		}
	}
	return model.Portfolio{
		ID:            portfolio.PortfolioID,
		Name:          portfolio.Name,
		Description:   portfolio.Description,
		Strategy:      portfolio.Strategy,
		UserID:        portfolio.UserID,
		OwnerUsername: owner,
	}, nil
}

func (r *memoryRepo) GetPortfolios(ctx context.Context) ([]model.Portfolio, error) {
	portfolios := make([]model.Portfolio, 0, len(r.portfolios))
	for id := range r.portfolios {
		portfolio, _ := r.GetPortfolio(ctx, id)
		portfolios = append(portfolios, portfolio)
	}
	return portfolios, nil
}

func (r *memoryRepo) GetPortfoliosByUserID(ctx context.Context, userID int64) ([]model.Portfolio, error) {
	var portfolios []model.Portfolio
	for id, portfolio := range r.portfolios {
		if portfolio.UserID == userID {
			converted, _ := r.GetPortfolio(ctx, id)
			portfolios = append(portfolios, converted)
		}
	}
	return portfolios, nil
}

func (r *memoryRepo) UpdatePortfolio(ctx context.Context, portfolioID int64, name, description, strategy *string) error {
	portfolio, ok := r.portfolios[portfolioID]
	if !ok {
		return repository.ErrNotFound
	}
	if name != nil {
		portfolio.Name = *name
	}
	if description != nil {
		portfolio.Description = *description
	}
	if strategy != nil {
		portfolio.Strategy = *strategy
	}
	r.portfolios[portfolioID] = portfolio
	return nil
}

func (r *memoryRepo) DeletePortfolio(ctx context.Context, portfolioID int64) error {
	if _, ok := r.portfolios[portfolioID]; !ok {
		return repository.ErrNotFound
	}
	for key := range r.investments {
		if key.portfolioID == portfolioID {
			delete(r.investments, key)
		}
	}
	delete(r.portfolios, portfolioID)
	return nil
}

func (r *memoryRepo) GetPortfolioHoldings(ctx context.Context, portfolioID int64) ([]model.Holding, error) {
	var holdings []model.Holding
	for key, quantity := range r.investments {
		if key.portfolioID != portfolioID {
			continue
		}
		security, err := r.securityByID(key.securityID)
		if err != nil {
			continue
		}
		holdings = append(holdings, model.Holding{
			Ticker:       security.Ticker,
			SecurityName: security.Name,
			Quantity:     quantity,
		})
	}
	return holdings, nil
}

func (r *memoryRepo) InsertSecurity(ctx context.Context, ticker, name string, referencePrice decimal.Decimal) (int64, error) {
	if _, ok := r.securities[ticker]; ok {
		return 0, repository.ErrAlreadyExists
	}
	id := r.nextId()
	r.securities[ticker] = model.Security{
		ID:             id,
		Ticker:         ticker,
		Name:           name,
		ReferencePrice: referencePrice,
	}
	return id, nil
}

func (r *memoryRepo) GetSecurityByTicker(ctx context.Context, ticker string) (model.Security, error) {
	security, ok := r.securities[ticker]
	if !ok {
		return model.Security{}, repository.ErrNotFound
	}
	return security, nil
}

func (r *memoryRepo) GetSecurities(ctx context.Context) ([]model.Security, error) {
	securities := make([]model.Security, 0, len(r.securities))
	for _, security := range r.securities {
		securities = append(securities, security)
	}
	return securities, nil
}

func (r *memoryRepo) UpdateReferencePrices(ctx context.Context, prices map[string]decimal.Decimal) error {
	for ticker, price := range prices {
		security, ok := r.securities[ticker]
		if !ok {
			continue
		}
		security.ReferencePrice = price
		r.securities[ticker] = security
	}
	return nil
}

func (r *memoryRepo) GetInvestmentForUpdate(ctx context.Context, portfolioID, securityID int64) (dbModel.Investment, error) {
	quantity, ok := r.investments[investmentKey{portfolioID, securityID}]
	if !ok {
		return dbModel.Investment{}, repository.ErrNotFound
	}
	security, err := r.securityByID(securityID)
	if err != nil {
		return dbModel.Investment{}, err
	}
	return dbModel.Investment{
		PortfolioID:  portfolioID,
		SecurityID:   securityID,
		Ticker:       security.Ticker,
		SecurityName: security.Name,
		Quantity:     quantity,
	}, nil
}

func (r *memoryRepo) AddToInvestment(ctx context.Context, portfolioID, securityID int64, quantity int) error {
	r.investments[investmentKey{portfolioID, securityID}] += quantity
	return nil
}

func (r *memoryRepo) SetInvestmentQuantity(ctx context.Context, portfolioID, securityID int64, quantity int) error {
	r.investments[investmentKey{portfolioID, securityID}] = quantity
	return nil
}

func (r *memoryRepo) DeleteInvestment(ctx context.Context, portfolioID, securityID int64) error {
	delete(r.investments, investmentKey{portfolioID, securityID})
	return nil
}

func (r *memoryRepo) InsertTransaction(ctx context.Context, transaction dbModel.Transaction) (int64, time.Time, error) {
	id := r.nextId()
	createdAt := r.tick()
	r.transactions = append(r.transactions, model.Transaction{
		ID:          id,
		UserID:      transaction.UserID,
		PortfolioID: transaction.PortfolioID,
		SecurityID:  transaction.SecurityID,
		Ticker:      transaction.Ticker,
		Type:        model.TransactionType(transaction.Type),
		Quantity:    transaction.Quantity,
		Price:       transaction.Price,
		TotalPrice:  transaction.TotalPrice,
		CreatedAt:   createdAt,
	})
	return id, createdAt, nil
}

func (r *memoryRepo) GetTransactionsByUserID(ctx context.Context, userID int64) ([]model.Transaction, error) {
	var transactions []model.Transaction
	for _, transaction := range r.transactions {
		if transaction.UserID == userID {
			transactions = append(transactions, transaction)
		}
	}
	return transactions, nil
}

func (r *memoryRepo) GetTransactionsByPortfolioID(ctx context.Context, portfolioID int64) ([]model.Transaction, error) {
	var transactions []model.Transaction
	for _, transaction := range r.transactions {
		if transaction.PortfolioID == portfolioID {
			transactions = append(transactions, transaction)
		}
	}
	return transactions, nil
}

func (r *memoryRepo) GetTransactionsByTicker(ctx context.Context, ticker string) ([]model.Transaction, error) {
	var transactions []model.Transaction
	for _, transaction := range r.transactions {
		if transaction.Ticker == ticker {
			transactions = append(transactions, transaction)
		}
	}
	return transactions, nil
}

func (r *memoryRepo) securityByID(securityID int64) (model.Security, error) {
	for _, security := range r.securities {
		if security.ID == securityID {
			return security, nil
		}
	}
	return model.Security{}, repository.ErrNotFound
}

// memoryCache keeps quotes in a plain map.
type memoryCache struct {
	quotes map[string]model.Quote
}

func newMemoryCache() *memoryCache {
	return &memoryCache{quotes: make(map[string]model.Quote)}
}

func (c *memoryCache) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	quote, ok := c.quotes[ticker]
	if !ok {
		return model.Quote{}, cache.ErrNotFound
	}
	return quote, nil
}

func (c *memoryCache) GetQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error) {
	res := make(map[string]model.Quote)
	for _, ticker := range tickers {
		quote, ok := c.quotes[ticker]
		if !ok {
			return nil, cache.ErrNotFound
		}
		res[ticker] = quote
	}
	return res, nil
}

func (c *memoryCache) SetQuotes(ctx context.Context, quotes []model.Quote) error {
	for _, quote := range quotes {
		c.quotes[quote.Ticker] = quote
	}
	return nil
}

// stubQuotesApi serves quotes from a fixed map.
type stubQuotesApi struct {
	quotes map[string]model.Quote
	err    error
}

func (a *stubQuotesApi) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	if a.err != nil {
		return model.Quote{}, a.err
	}
	quote, ok := a.quotes[ticker]
	if !ok {
		return model.Quote{}, externalApi.ErrNotFound
	}
	return quote, nil
}

func (a *stubQuotesApi) GetQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error) {
	if a.err != nil {
		return nil, a.err
	}
	res := make(map[string]model.Quote)
	for _, ticker := range tickers {
		if quote, ok := a.quotes[ticker]; ok {
			res[ticker] = quote
		}
	}
	return res, nil
}

type stubReportGenerator struct {
	report model.PortfolioReport
}

func (g *stubReportGenerator) Generate(ctx context.Context, report model.PortfolioReport) ([]byte, string, error) {
	g.report = report
	return []byte("report"), ".xlsx", nil
}

var errApiDown = errors.New("quotes api unavailable")
