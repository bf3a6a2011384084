package portfolioService

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kiwicapital/portfolio_manager/data/cache"
	"github.com/kiwicapital/portfolio_manager/data/repository"
	"github.com/kiwicapital/portfolio_manager/internal/externalApi"
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/internal/service"
	"github.com/kiwicapital/portfolio_manager/utils"
	"github.com/shopspring/decimal"
)

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func (s *PortfolioService) CreateSecurity(ctx context.Context, ticker, name string, referencePrice decimal.Decimal) (security model.Security, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CreateSecurity"

	slog.Debug("CreateSecurity start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	defer func() {
		slog.Debug("CreateSecurity finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	}()

	ticker = normalizeTicker(ticker)
	name = strings.TrimSpace(name)
	if ticker == "" || name == "" {
		return model.Security{}, service.ErrInvalidArgument
	}
	if !referencePrice.IsPositive() {
		return model.Security{}, service.ErrInvalidPrice
	}

	securityID, err := s.repo.InsertSecurity(ctx, ticker, name, referencePrice)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.Security{}, service.ErrAlreadyExists
		}
		slog.Error("got error from repo.InsertSecurity", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Security{}, err
	}

	return model.Security{
		ID:             securityID,
		Ticker:         ticker,
		Name:           name,
		ReferencePrice: referencePrice,
	}, nil
}

func (s *PortfolioService) GetSecurity(ctx context.Context, ticker string) (security model.Security, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetSecurity"

	slog.Debug("GetSecurity start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	defer func() {
		slog.Debug("GetSecurity finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	}()

	security, err = s.repo.GetSecurityByTicker(ctx, normalizeTicker(ticker))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Security{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetSecurityByTicker", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Security{}, err
	}

	return security, nil
}

func (s *PortfolioService) ListSecurities(ctx context.Context) (securities []model.Security, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ListSecurities"

	slog.Debug("ListSecurities start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ListSecurities finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	securities, err = s.repo.GetSecurities(ctx)
	if err != nil {
		slog.Error("got error from repo.GetSecurities", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return securities, nil
}

// GetSecurityQuote returns the live quote for a listed security, falling back
// to its reference price when the quotes provider has no data.
func (s *PortfolioService) GetSecurityQuote(ctx context.Context, ticker string) (quote model.Quote, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetSecurityQuote"

	slog.Debug("GetSecurityQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	defer func() {
		slog.Debug("GetSecurityQuote finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	}()

	security, err := s.GetSecurity(ctx, ticker)
	if err != nil {
		return model.Quote{}, err
	}

	quote, err = s.getQuote(ctx, security.Ticker)
	if err != nil {
		return model.Quote{
			Ticker: security.Ticker,
			Name:   security.Name,
			Price:  security.ReferencePrice,
		}, nil
	}

	return quote, nil
}

// getQuote tries the cache first and falls back to the quotes API on a miss,
// refilling the cache on the way back.
func (s *PortfolioService) getQuote(ctx context.Context, ticker string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.getQuote"

	quote, err := s.cache.GetQuote(ctx, ticker)
	if err == nil {
		return quote, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		slog.Error("got error from cache.GetQuote", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	quote, err = s.quotesApi.GetQuote(ctx, ticker)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			return model.Quote{}, service.ErrNotFound
		}
		slog.Error("got error from quotesApi.GetQuote", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Quote{}, err
	}

	if cacheErr := s.cache.SetQuotes(ctx, []model.Quote{quote}); cacheErr != nil {
		slog.Error("got error from cache.SetQuotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", cacheErr.Error()))
	}

	return quote, nil
}

// RefreshQuotes pulls fresh quotes for every listed security, warms the cache
// and persists the prices as new reference prices. Runs on a schedule.
func (s *PortfolioService) RefreshQuotes(ctx context.Context) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RefreshQuotes"

	slog.Info("RefreshQuotes start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("RefreshQuotes failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return
		}
		slog.Info("RefreshQuotes completed", slog.String("rqID", rqID), slog.String("op", op))
	}()

	securities, err := s.repo.GetSecurities(ctx)
	if err != nil {
		return err
	}
	if len(securities) == 0 {
		return nil
	}

	tickers := make([]string, 0, len(securities))
	for _, security := range securities {
		tickers = append(tickers, security.Ticker)
	}

	quotesByTicker, err := s.quotesApi.GetQuotes(ctx, tickers)
	if err != nil {
		return err
	}
	if len(quotesByTicker) == 0 {
		return nil
	}

	quotes := make([]model.Quote, 0, len(quotesByTicker))
	prices := make(map[string]decimal.Decimal, len(quotesByTicker))
	for _, quote := range quotesByTicker {
		if !quote.Price.IsPositive() {
			continue
		}
		quotes = append(quotes, quote)
		prices[quote.Ticker] = quote.Price
	}

	if err = s.cache.SetQuotes(ctx, quotes); err != nil {
		return err
	}

	return s.repo.UpdateReferencePrices(ctx, prices)
}
