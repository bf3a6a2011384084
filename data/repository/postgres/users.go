package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/kiwicapital/portfolio_manager/data/repository"
	"github.com/kiwicapital/portfolio_manager/internal/converter/dbConverter"
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/internal/model/dbModel"
	"github.com/kiwicapital/portfolio_manager/utils"
	"github.com/shopspring/decimal"
)

func (r *Postgres) InsertUser(ctx context.Context, user dbModel.User) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertUser"
	query := `
		INSERT INTO users(username, password_hash, first_name, last_name, balance, role)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING user_id
		`

	slog.Debug("InsertUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", user.Username))
	defer func() {
		if err != nil {
			slog.Error("InsertUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(
		ctx,
		query,
		user.Username,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Balance,
		user.Role,
	).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return 0, repository.ErrAlreadyExists
			}
		}
		return 0, err
	}

	return userID, nil
}

func (r *Postgres) GetUserByUsername(ctx context.Context, username string) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetUserByUsername"
	query := `
		SELECT user_id, username, password_hash, first_name, last_name, balance, role
		FROM users
		WHERE username = $1
		`

	slog.Debug("GetUserByUsername start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		if err != nil {
			slog.Error("GetUserByUsername failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUserByUsername completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbUser := dbModel.User{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, username).StructScan(&dbUser)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, repository.ErrNotFound
		}
		return model.User{}, err
	}

	return dbConverter.ConvertUser(dbUser), nil
}

// GetUserForUpdate locks the user row for the rest of the surrounding transaction.
func (r *Postgres) GetUserForUpdate(ctx context.Context, username string) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetUserForUpdate"
	query := `
		SELECT user_id, username, password_hash, first_name, last_name, balance, role
		FROM users
		WHERE username = $1
		FOR UPDATE
		`

	slog.Debug("GetUserForUpdate start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		if err != nil {
			slog.Error("GetUserForUpdate failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUserForUpdate completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbUser := dbModel.User{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, username).StructScan(&dbUser)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, repository.ErrNotFound
		}
		return model.User{}, err
	}

	return dbConverter.ConvertUser(dbUser), nil
}

func (r *Postgres) GetUsers(ctx context.Context) (users []model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetUsers"
	query := `
		SELECT user_id, username, password_hash, first_name, last_name, balance, role
		FROM users
		ORDER BY username
		`

	slog.Debug("GetUsers start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("GetUsers failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUsers completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbUser dbModel.User
		err = rows.StructScan(&dbUser)
		if err != nil {
			return nil, err
		}
		users = append(users, dbConverter.ConvertUser(dbUser))
	}

	return users, nil
}

func (r *Postgres) UpdateUserBalance(ctx context.Context, userID int64, balance decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateUserBalance"
	query := `
		UPDATE users
		SET balance = $1
		WHERE user_id = $2
		`

	slog.Debug("UpdateUserBalance start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("UpdateUserBalance failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateUserBalance completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, balance, userID)
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

func (r *Postgres) UpdateUserRole(ctx context.Context, username, role string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateUserRole"
	query := `
		UPDATE users
		SET role = $1
		WHERE username = $2
		`

	slog.Debug("UpdateUserRole start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username), slog.String("role", role))
	defer func() {
		if err != nil {
			slog.Error("UpdateUserRole failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateUserRole completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, role, username)
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

func (r *Postgres) CountAdmins(ctx context.Context) (count int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.CountAdmins"
	query := `SELECT count(*) FROM users WHERE role = 'admin'`

	slog.Debug("CountAdmins start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("CountAdmins failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("CountAdmins completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteUser removes the user and, through FK cascades, their portfolios and
// investments. Transaction history is kept.
func (r *Postgres) DeleteUser(ctx context.Context, username string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteUser"
	query := `DELETE FROM users WHERE username = $1`

	slog.Debug("DeleteUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		if err != nil {
			slog.Error("DeleteUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, username)
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

func (r *Postgres) GetUserHoldings(ctx context.Context, userID int64) (holdings map[string]int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetUserHoldings"
	query := `
		SELECT s.ticker, SUM(i.quantity) AS quantity
		FROM portfolios p
		JOIN investments i USING(portfolio_id)
		JOIN securities s USING(security_id)
		WHERE p.user_id = $1
		GROUP BY s.ticker
		`

	slog.Debug("GetUserHoldings start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("GetUserHoldings failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUserHoldings completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	holdings = make(map[string]int)
	for rows.Next() {
		var ticker string
		var quantity int
		err = rows.Scan(&ticker, &quantity)
		if err != nil {
			return nil, err
		}
		holdings[ticker] = quantity
	}

	return holdings, nil
}
