package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/kiwicapital/portfolio_manager/internal/converter/dbConverter"
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/internal/model/dbModel"
	"github.com/kiwicapital/portfolio_manager/utils"
)

// InsertTransaction appends an audit record. The timestamp is assigned by the
// database at insert, rows are never updated or deleted afterwards.
func (r *Postgres) InsertTransaction(ctx context.Context, transaction dbModel.Transaction) (transactionID int64, createdAt time.Time, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertTransaction"
	query := `
		INSERT INTO transactions(user_id, portfolio_id, security_id, ticker, transaction_type, quantity, price, total_price)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING transaction_id, dt_create
		`

	slog.Debug(
		"InsertTransaction start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("ticker", transaction.Ticker),
		slog.String("type", transaction.Type),
		slog.Int("quantity", transaction.Quantity),
	)
	defer func() {
		if err != nil {
			slog.Error("InsertTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(
		ctx,
		query,
		transaction.UserID,
		transaction.PortfolioID,
		transaction.SecurityID,
		transaction.Ticker,
		transaction.Type,
		transaction.Quantity,
		transaction.Price,
		transaction.TotalPrice,
	).Scan(&transactionID, &createdAt)
	if err != nil {
		return 0, time.Time{}, err
	}

	return transactionID, createdAt, nil
}

func (r *Postgres) getTransactions(ctx context.Context, query string, args ...interface{}) (transactions []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.getTransactions"

	slog.Debug("getTransactions start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("getTransactions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("getTransactions completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbTransaction dbModel.Transaction
		err = rows.StructScan(&dbTransaction)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, dbConverter.ConvertTransaction(dbTransaction))
	}

	return transactions, nil
}

func (r *Postgres) GetTransactionsByUserID(ctx context.Context, userID int64) ([]model.Transaction, error) {
	query := `
		SELECT transaction_id, user_id, portfolio_id, security_id, ticker, transaction_type, quantity, price, total_price, dt_create
		FROM transactions
		WHERE user_id = $1
		ORDER BY dt_create, transaction_id
		`

	return r.getTransactions(ctx, query, userID)
}

func (r *Postgres) GetTransactionsByPortfolioID(ctx context.Context, portfolioID int64) ([]model.Transaction, error) {
	query := `
		SELECT transaction_id, user_id, portfolio_id, security_id, ticker, transaction_type, quantity, price, total_price, dt_create
		FROM transactions
		WHERE portfolio_id = $1
		ORDER BY dt_create, transaction_id
		`

	return r.getTransactions(ctx, query, portfolioID)
}

// GetTransactionsByTicker filters on the denormalized ticker column, so the
// history of a delisted security stays reachable.
func (r *Postgres) GetTransactionsByTicker(ctx context.Context, ticker string) ([]model.Transaction, error) {
	query := `
		SELECT transaction_id, user_id, portfolio_id, security_id, ticker, transaction_type, quantity, price, total_price, dt_create
		FROM transactions
		WHERE ticker = $1
		ORDER BY dt_create, transaction_id
		`

	return r.getTransactions(ctx, query, ticker)
}
