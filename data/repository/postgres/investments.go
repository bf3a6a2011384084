package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/kiwicapital/portfolio_manager/data/repository"
	"github.com/kiwicapital/portfolio_manager/internal/model/dbModel"
	"github.com/kiwicapital/portfolio_manager/utils"
)

// GetInvestmentForUpdate locks the holding row so concurrent orders on the
// same (portfolio, security) pair serialize.
func (r *Postgres) GetInvestmentForUpdate(ctx context.Context, portfolioID, securityID int64) (investment dbModel.Investment, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetInvestmentForUpdate"
	query := `
		SELECT i.portfolio_id, i.security_id, s.ticker, s.name AS security_name, i.quantity
		FROM investments i
		JOIN securities s USING(security_id)
		WHERE i.portfolio_id = $1
		AND i.security_id = $2
		FOR UPDATE OF i
		`

	slog.Debug("GetInvestmentForUpdate start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID), slog.Int64("securityID", securityID))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetInvestmentForUpdate failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetInvestmentForUpdate completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, portfolioID, securityID).StructScan(&investment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbModel.Investment{}, repository.ErrNotFound
		}
		return dbModel.Investment{}, err
	}

	return investment, nil
}

// AddToInvestment increments the holding, creating the row when the pair is
// new.
func (r *Postgres) AddToInvestment(ctx context.Context, portfolioID, securityID int64, quantity int) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.AddToInvestment"
	query := `
		INSERT INTO investments(portfolio_id, security_id, quantity)
		VALUES($1, $2, $3)
		ON CONFLICT (portfolio_id, security_id)
		DO UPDATE SET quantity = investments.quantity + EXCLUDED.quantity
		`

	slog.Debug("AddToInvestment start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID), slog.Int64("securityID", securityID), slog.Int("quantity", quantity))
	defer func() {
		if err != nil {
			slog.Error("AddToInvestment failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("AddToInvestment completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, portfolioID, securityID, quantity)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) SetInvestmentQuantity(ctx context.Context, portfolioID, securityID int64, quantity int) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SetInvestmentQuantity"
	query := `
		UPDATE investments
		SET quantity = $1
		WHERE portfolio_id = $2
		AND security_id = $3
		`

	slog.Debug("SetInvestmentQuantity start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID), slog.Int64("securityID", securityID), slog.Int("quantity", quantity))
	defer func() {
		if err != nil {
			slog.Error("SetInvestmentQuantity failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SetInvestmentQuantity completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, quantity, portfolioID, securityID)
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

func (r *Postgres) DeleteInvestment(ctx context.Context, portfolioID, securityID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteInvestment"
	query := `
		DELETE FROM investments
		WHERE portfolio_id = $1
		AND security_id = $2
		`

	slog.Debug("DeleteInvestment start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID), slog.Int64("securityID", securityID))
	defer func() {
		if err != nil {
			slog.Error("DeleteInvestment failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteInvestment completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, portfolioID, securityID)
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
