package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/kiwicapital/portfolio_manager/data/repository"
	"github.com/kiwicapital/portfolio_manager/internal/converter/dbConverter"
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/internal/model/dbModel"
	"github.com/kiwicapital/portfolio_manager/utils"
)

func (r *Postgres) InsertPortfolio(ctx context.Context, name, description, strategy string, userID int64) (portfolioID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertPortfolio"
	query := `
		INSERT INTO portfolios(name, description, strategy, user_id)
		VALUES($1, $2, $3, $4)
		RETURNING portfolio_id
		`

	slog.Debug("InsertPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name), slog.Int64("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("InsertPortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertPortfolio completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, name, description, strategy, userID).Scan(&portfolioID)
	if err != nil {
		return 0, err
	}

	return portfolioID, nil
}

func (r *Postgres) GetPortfolio(ctx context.Context, portfolioID int64) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetPortfolio"
	query := `
		SELECT p.portfolio_id, p.name, p.description, p.strategy, p.user_id, u.username AS owner_username
		FROM portfolios p
		JOIN users u USING(user_id)
		WHERE p.portfolio_id = $1
		`

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		if err != nil {
			slog.Error("GetPortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPortfolio completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbPortfolio := dbModel.Portfolio{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, portfolioID).StructScan(&dbPortfolio)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Portfolio{}, repository.ErrNotFound
		}
		return model.Portfolio{}, err
	}

	return dbConverter.ConvertPortfolio(dbPortfolio), nil
}

func (r *Postgres) getPortfolios(ctx context.Context, query string, args ...interface{}) (portfolios []model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.getPortfolios"

	slog.Debug("getPortfolios start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("getPortfolios failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("getPortfolios completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbPortfolio dbModel.Portfolio
		err = rows.StructScan(&dbPortfolio)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, dbConverter.ConvertPortfolio(dbPortfolio))
	}

	return portfolios, nil
}

func (r *Postgres) GetPortfolios(ctx context.Context) (portfolios []model.Portfolio, err error) {
	query := `
		SELECT p.portfolio_id, p.name, p.description, p.strategy, p.user_id, u.username AS owner_username
		FROM portfolios p
		JOIN users u USING(user_id)
		ORDER BY p.portfolio_id
		`

	return r.getPortfolios(ctx, query)
}

func (r *Postgres) GetPortfoliosByUserID(ctx context.Context, userID int64) (portfolios []model.Portfolio, err error) {
	query := `
		SELECT p.portfolio_id, p.name, p.description, p.strategy, p.user_id, u.username AS owner_username
		FROM portfolios p
		JOIN users u USING(user_id)
		WHERE p.user_id = $1
		ORDER BY p.portfolio_id
		`

	return r.getPortfolios(ctx, query, userID)
}

func (r *Postgres) UpdatePortfolio(ctx context.Context, portfolioID int64, name, description, strategy *string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdatePortfolio"
	query := `
		UPDATE portfolios
		SET
			name = COALESCE($1, name),
			description = COALESCE($2, description),
			strategy = COALESCE($3, strategy)
		WHERE portfolio_id = $4
		`

	slog.Debug("UpdatePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		if err != nil {
			slog.Error("UpdatePortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdatePortfolio completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, name, description, strategy, portfolioID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeletePortfolio cascades to the portfolio's investments (FK), historical
// transactions reference the portfolio by id only and stay untouched.
func (r *Postgres) DeletePortfolio(ctx context.Context, portfolioID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeletePortfolio"
	query := `DELETE FROM portfolios WHERE portfolio_id = $1`

	slog.Debug("DeletePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		if err != nil {
			slog.Error("DeletePortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeletePortfolio completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, portfolioID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *Postgres) GetPortfolioHoldings(ctx context.Context, portfolioID int64) (holdings []model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetPortfolioHoldings"
	query := `
		SELECT i.portfolio_id, i.security_id, s.ticker, s.name AS security_name, i.quantity
		FROM investments i
		JOIN securities s USING(security_id)
		WHERE i.portfolio_id = $1
		ORDER BY s.ticker
		`

	slog.Debug("GetPortfolioHoldings start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		if err != nil {
			slog.Error("GetPortfolioHoldings failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPortfolioHoldings completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, portfolioID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbInvestment dbModel.Investment
		err = rows.StructScan(&dbInvestment)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, dbConverter.ConvertInvestment(dbInvestment))
	}

	return holdings, nil
}
