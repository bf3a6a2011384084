package quotesApi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kiwicapital/portfolio_manager/config"
	"github.com/kiwicapital/portfolio_manager/internal/externalApi"
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/utils"
	"github.com/shopspring/decimal"
)

// QuotesApi pulls market quotes from the configured market-data endpoint.
type QuotesApi struct {
	client *resty.Client
}

type rawQuote struct {
	Ticker string          `json:"ticker"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

func New(cfg *config.Config) *QuotesApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.QuotesApi.Url)
	return &QuotesApi{client: client}
}

func (a *QuotesApi) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("QuotesApi.GetQuote start", slog.String("rqID", rqID), slog.String("ticker", ticker))

	quotes, err := a.getQuotes(ctx, []string{ticker})
	if err != nil {
		return model.Quote{}, err
	}

	quote, ok := quotes[ticker]
	if !ok {
		slog.Warn("ticker not found in quotes response", slog.String("rqID", rqID), slog.String("ticker", ticker))
		return model.Quote{}, externalApi.ErrNotFound
	}

	slog.Debug("QuotesApi.GetQuote complete", slog.String("rqID", rqID))

	return quote, nil
}

func (a *QuotesApi) GetQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("QuotesApi.GetQuotes start", slog.String("rqID", rqID), slog.Int("tickers", len(tickers)))

	quotes, err := a.getQuotes(ctx, tickers)
	if err != nil {
		return nil, err
	}

	slog.Debug("QuotesApi.GetQuotes complete", slog.String("rqID", rqID))

	return quotes, nil
}

func (a *QuotesApi) getQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("tickers", strings.Join(tickers, ",")).
		Get("/quotes")

	if err != nil {
		slog.Error("error while dialing quotes api", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, externalApi.ErrNotFound
	}

	rawQuotes := make([]rawQuote, 0, len(tickers))
	err = json.Unmarshal(resp.Body(), &rawQuotes)
	if err != nil {
		slog.Error("can't unmarshall quotes response", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	quotes := make(map[string]model.Quote, len(rawQuotes))
	for _, raw := range rawQuotes {
		ticker := strings.ToUpper(raw.Ticker)
		quotes[ticker] = model.Quote{
			Ticker: ticker,
			Name:   raw.Name,
			Price:  raw.Price,
		}
	}

	return quotes, nil
}
