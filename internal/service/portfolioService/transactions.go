package portfolioService

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kiwicapital/portfolio_manager/data/repository"
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/internal/service"
	"github.com/kiwicapital/portfolio_manager/utils"
	"github.com/shopspring/decimal"
)

// TransactionsByUser returns the full trade history of a user, oldest first.
func (s *PortfolioService) TransactionsByUser(ctx context.Context, username string) (transactions []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.TransactionsByUser"

	slog.Debug("TransactionsByUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		slog.Debug("TransactionsByUser finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	}()

	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, service.ErrNotFound
		}
		slog.Error("got error from repo.GetUserByUsername", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	transactions, err = s.repo.GetTransactionsByUserID(ctx, user.ID)
	if err != nil {
		slog.Error("got error from repo.GetTransactionsByUserID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return transactions, nil
}

// TransactionsByPortfolio returns the trade history of a portfolio, oldest
// first. The portfolio itself may already be deleted, history is kept.
func (s *PortfolioService) TransactionsByPortfolio(ctx context.Context, portfolioID int64) (transactions []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.TransactionsByPortfolio"

	slog.Debug("TransactionsByPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		slog.Debug("TransactionsByPortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	transactions, err = s.repo.GetTransactionsByPortfolioID(ctx, portfolioID)
	if err != nil {
		slog.Error("got error from repo.GetTransactionsByPortfolioID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return transactions, nil
}

// TransactionsBySecurity returns every trade ever made in a ticker, oldest
// first, including trades in securities since delisted.
func (s *PortfolioService) TransactionsBySecurity(ctx context.Context, ticker string) (transactions []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.TransactionsBySecurity"

	slog.Debug("TransactionsBySecurity start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	defer func() {
		slog.Debug("TransactionsBySecurity finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	}()

	transactions, err = s.repo.GetTransactionsByTicker(ctx, normalizeTicker(ticker))
	if err != nil {
		slog.Error("got error from repo.GetTransactionsByTicker", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return transactions, nil
}

// PortfolioReport builds a priced snapshot of the portfolio with its full
// trade history and renders it into an xlsx file.
func (s *PortfolioService) PortfolioReport(ctx context.Context, actingUser string, portfolioID int64) (fileBytes []byte, fileName string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.PortfolioReport"

	slog.Info("PortfolioReport start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		if err != nil {
			slog.Error("PortfolioReport failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return
		}
		slog.Info("PortfolioReport completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	if err = s.authorizePortfolioAccess(ctx, actingUser, portfolioID); err != nil {
		return nil, "", err
	}

	portfolio, err := s.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, "", err
	}

	transactions, err := s.repo.GetTransactionsByPortfolioID(ctx, portfolioID)
	if err != nil {
		return nil, "", err
	}

	positions, totalValue, err := s.buildReportPositions(ctx, portfolio.Holdings)
	if err != nil {
		return nil, "", err
	}

	report := model.PortfolioReport{
		Portfolio:    portfolio,
		Positions:    positions,
		Transactions: transactions,
		TotalValue:   totalValue,
	}

	fileBytes, fileExtension, err := s.reportGenerator.Generate(ctx, report)
	if err != nil {
		return nil, "", err
	}

	return fileBytes, "portfolio_" + portfolio.Name + fileExtension, nil
}

// buildReportPositions prices each holding at its live quote, falling back to
// the stored reference price when the provider has nothing.
func (s *PortfolioService) buildReportPositions(ctx context.Context, holdings []model.Holding) ([]model.ReportPosition, decimal.Decimal, error) {
	positions := make([]model.ReportPosition, 0, len(holdings))
	totalValue := decimal.Zero

	if len(holdings) == 0 {
		return positions, totalValue, nil
	}

	tickers := make([]string, 0, len(holdings))
	for _, holding := range holdings {
		tickers = append(tickers, holding.Ticker)
	}

	quotes, err := s.cache.GetQuotes(ctx, tickers)
	if err != nil {
		quotes, err = s.quotesApi.GetQuotes(ctx, tickers)
		if err != nil {
			quotes = nil
		}
	}

	for _, holding := range holdings {
		price := decimal.Zero
		if quote, ok := quotes[holding.Ticker]; ok && quote.Price.IsPositive() {
			price = quote.Price
		} else {
			security, err := s.repo.GetSecurityByTicker(ctx, holding.Ticker)
			if err != nil {
				return nil, decimal.Zero, err
			}
			price = security.ReferencePrice
		}

		totalPrice := price.Mul(decimal.NewFromInt(int64(holding.Quantity)))
		totalValue = totalValue.Add(totalPrice)
		positions = append(positions, model.ReportPosition{
			Ticker:       holding.Ticker,
			SecurityName: holding.SecurityName,
			Quantity:     holding.Quantity,
			Price:        price,
			TotalPrice:   totalPrice,
		})
	}

	return positions, totalValue, nil
}
