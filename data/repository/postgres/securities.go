package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kiwicapital/portfolio_manager/data/repository"
	"github.com/kiwicapital/portfolio_manager/internal/converter/dbConverter"
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/internal/model/dbModel"
	"github.com/kiwicapital/portfolio_manager/utils"
	"github.com/shopspring/decimal"
)

func (r *Postgres) InsertSecurity(ctx context.Context, ticker, name string, referencePrice decimal.Decimal) (securityID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertSecurity"
	query := `
		INSERT INTO securities(ticker, name, reference_price)
		VALUES($1, $2, $3)
		RETURNING security_id
		`

	slog.Debug("InsertSecurity start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	defer func() {
		if err != nil {
			slog.Error("InsertSecurity failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertSecurity completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, ticker, name, referencePrice).Scan(&securityID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return 0, repository.ErrAlreadyExists
			}
		}
		return 0, err
	}

	return securityID, nil
}

func (r *Postgres) GetSecurityByTicker(ctx context.Context, ticker string) (security model.Security, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetSecurityByTicker"
	query := `
		SELECT security_id, ticker, name, reference_price
		FROM securities
		WHERE ticker = $1
		`

	slog.Debug("GetSecurityByTicker start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	defer func() {
		if err != nil {
			slog.Error("GetSecurityByTicker failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetSecurityByTicker completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbSecurity := dbModel.Security{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, ticker).StructScan(&dbSecurity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Security{}, repository.ErrNotFound
		}
		return model.Security{}, err
	}

	return dbConverter.ConvertSecurity(dbSecurity), nil
}

func (r *Postgres) GetSecurities(ctx context.Context) (securities []model.Security, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetSecurities"
	query := `
		SELECT security_id, ticker, name, reference_price
		FROM securities
		ORDER BY ticker
		`

	slog.Debug("GetSecurities start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("GetSecurities failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetSecurities completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbSecurity dbModel.Security
		err = rows.StructScan(&dbSecurity)
		if err != nil {
			return nil, err
		}
		securities = append(securities, dbConverter.ConvertSecurity(dbSecurity))
	}

	return securities, nil
}

// UpdateReferencePrices bulk-updates reference prices from the latest quotes.
func (r *Postgres) UpdateReferencePrices(ctx context.Context, prices map[string]decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateReferencePrices"
	query := `
		UPDATE securities AS s
		SET reference_price = u.price
		FROM UNNEST($1::text[], $2::decimal[]) AS u(ticker, price)
		WHERE s.ticker = u.ticker
		`

	tickers := make([]string, 0, len(prices))
	priceValues := make([]decimal.Decimal, 0, len(prices))
	for ticker, price := range prices {
		tickers = append(tickers, ticker)
		priceValues = append(priceValues, price)
	}

	slog.Debug("UpdateReferencePrices start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(prices)))
	defer func() {
		if err != nil {
			slog.Error("UpdateReferencePrices failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateReferencePrices completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, tickers, priceValues)
	if err != nil {
		return err
	}

	return nil
}
