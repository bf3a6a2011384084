package portfolioService

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kiwicapital/portfolio_manager/data/repository"
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/internal/model/dbModel"
	"github.com/kiwicapital/portfolio_manager/internal/service"
	"github.com/kiwicapital/portfolio_manager/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func (s *PortfolioService) RegisterUser(
	ctx context.Context,
	username, password, firstName, lastName string,
	balance decimal.Decimal,
	role string,
) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RegisterUser"

	slog.Debug("RegisterUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		slog.Debug("RegisterUser finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	}()

	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return model.User{}, service.ErrInvalidArgument
	}

	if role == "" {
		role = model.RoleUser
	}
	if !model.ValidRole(role) {
		return model.User{}, service.ErrInvalidRole
	}

	if balance.IsNegative() {
		return model.User{}, service.ErrNegativeBalance
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("got error from bcrypt.GenerateFromPassword", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	userID, err := s.repo.InsertUser(ctx, dbModel.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Balance:      balance,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.User{}, service.ErrAlreadyExists
		}
		slog.Error("got error from repo.InsertUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	return model.User{
		ID:        userID,
		Username:  username,
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Balance:   balance,
		Role:      role,
	}, nil
}

func (s *PortfolioService) GetUser(ctx context.Context, username string) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetUser"

	slog.Debug("GetUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		slog.Debug("GetUser finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	}()

	user, err = s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetUserByUsername", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	holdings, err := s.repo.GetUserHoldings(ctx, user.ID)
	if err != nil {
		slog.Error("got error from repo.GetUserHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}
	user.Holdings = holdings

	return user, nil
}

func (s *PortfolioService) ListUsers(ctx context.Context) (users []model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ListUsers"

	slog.Debug("ListUsers start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ListUsers finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	users, err = s.repo.GetUsers(ctx)
	if err != nil {
		slog.Error("got error from repo.GetUsers", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return users, nil
}

// DeleteUser removes the user with their portfolios and holdings. The final
// admin account cannot be removed.
func (s *PortfolioService) DeleteUser(ctx context.Context, username string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteUser"

	slog.Debug("DeleteUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		slog.Debug("DeleteUser finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	}()

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.repo.GetUserForUpdate(ctx, strings.TrimSpace(username))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return service.ErrNotFound
			}
			return err
		}

		if user.Role == model.RoleAdmin {
			adminCount, err := s.repo.CountAdmins(ctx)
			if err != nil {
				return err
			}
			if adminCount <= 1 {
				return service.ErrLastAdmin
			}
		}

		return s.repo.DeleteUser(ctx, user.Username)
	})
	if err != nil {
		slog.Error("DeleteUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *PortfolioService) ChangeUserRole(ctx context.Context, username, role string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ChangeUserRole"

	slog.Debug("ChangeUserRole start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username), slog.String("role", role))
	defer func() {
		slog.Debug("ChangeUserRole finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	}()

	if !model.ValidRole(role) {
		return service.ErrInvalidRole
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.repo.GetUserForUpdate(ctx, strings.TrimSpace(username))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return service.ErrNotFound
			}
			return err
		}

		// понижая последнего админа, остались бы без админов вовсе
		if user.Role == model.RoleAdmin && role != model.RoleAdmin {
			adminCount, err := s.repo.CountAdmins(ctx)
			if err != nil {
				return err
			}
			if adminCount <= 1 {
				return service.ErrLastAdmin
			}
		}

		return s.repo.UpdateUserRole(ctx, user.Username, role)
	})
	if err != nil {
		slog.Error("ChangeUserRole failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// SetUserBalance replaces the cash balance, used for deposits and corrections.
func (s *PortfolioService) SetUserBalance(ctx context.Context, username string, balance decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.SetUserBalance"

	slog.Debug("SetUserBalance start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		slog.Debug("SetUserBalance finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	}()

	if balance.IsNegative() {
		return service.ErrNegativeBalance
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.repo.GetUserForUpdate(ctx, strings.TrimSpace(username))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return service.ErrNotFound
			}
			return err
		}

		return s.repo.UpdateUserBalance(ctx, user.ID, balance)
	})
	if err != nil {
		slog.Error("SetUserBalance failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}
