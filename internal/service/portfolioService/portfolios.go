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
)

func (s *PortfolioService) CreatePortfolio(ctx context.Context, actingUser, name, description, strategy string) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CreatePortfolio"

	slog.Debug("CreatePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("actingUser", actingUser), slog.String("name", name))
	defer func() {
		slog.Debug("CreatePortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name))
	}()

	name = strings.TrimSpace(name)
	if name == "" {
		return model.Portfolio{}, service.ErrInvalidArgument
	}

	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(actingUser))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Portfolio{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetUserByUsername", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, err
	}

	portfolioID, err := s.repo.InsertPortfolio(ctx, name, description, strategy, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.Portfolio{}, service.ErrAlreadyExists
		}
		slog.Error("got error from repo.InsertPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, err
	}

	return model.Portfolio{
		ID:            portfolioID,
		Name:          name,
		Description:   description,
		Strategy:      strategy,
		UserID:        user.ID,
		OwnerUsername: user.Username,
	}, nil
}

func (s *PortfolioService) GetPortfolio(ctx context.Context, portfolioID int64) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolio"

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		slog.Debug("GetPortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	portfolio, err = s.repo.GetPortfolio(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Portfolio{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, err
	}

	holdings, err := s.repo.GetPortfolioHoldings(ctx, portfolioID)
	if err != nil {
		slog.Error("got error from repo.GetPortfolioHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, err
	}
	portfolio.Holdings = holdings

	return portfolio, nil
}

func (s *PortfolioService) ListPortfolios(ctx context.Context) (portfolios []model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ListPortfolios"

	slog.Debug("ListPortfolios start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ListPortfolios finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	portfolios, err = s.repo.GetPortfolios(ctx)
	if err != nil {
		slog.Error("got error from repo.GetPortfolios", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return portfolios, nil
}

func (s *PortfolioService) ListPortfoliosByUser(ctx context.Context, username string) (portfolios []model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ListPortfoliosByUser"

	slog.Debug("ListPortfoliosByUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		slog.Debug("ListPortfoliosByUser finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	}()

	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, service.ErrNotFound
		}
		slog.Error("got error from repo.GetUserByUsername", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	portfolios, err = s.repo.GetPortfoliosByUserID(ctx, user.ID)
	if err != nil {
		slog.Error("got error from repo.GetPortfoliosByUserID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return portfolios, nil
}

func (s *PortfolioService) UpdatePortfolio(ctx context.Context, actingUser string, portfolioID int64, name, description, strategy *string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdatePortfolio"

	slog.Debug("UpdatePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		slog.Debug("UpdatePortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	if name != nil && strings.TrimSpace(*name) == "" {
		return service.ErrInvalidArgument
	}

	if err = s.authorizePortfolioAccess(ctx, actingUser, portfolioID); err != nil {
		return err
	}

	err = s.repo.UpdatePortfolio(ctx, portfolioID, name, description, strategy)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.UpdatePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *PortfolioService) DeletePortfolio(ctx context.Context, actingUser string, portfolioID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeletePortfolio"

	slog.Debug("DeletePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		slog.Debug("DeletePortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	if err = s.authorizePortfolioAccess(ctx, actingUser, portfolioID); err != nil {
		return err
	}

	err = s.repo.DeletePortfolio(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.DeletePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// AddHolding seeds a position directly, without an order or an audit record.
func (s *PortfolioService) AddHolding(ctx context.Context, actingUser string, portfolioID int64, ticker string, quantity int) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.AddHolding"

	slog.Debug("AddHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID), slog.String("ticker", ticker))
	defer func() {
		slog.Debug("AddHolding finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	if quantity <= 0 {
		return service.ErrInvalidQuantity
	}

	if err = s.authorizePortfolioAccess(ctx, actingUser, portfolioID); err != nil {
		return err
	}

	security, err := s.repo.GetSecurityByTicker(ctx, normalizeTicker(ticker))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.GetSecurityByTicker", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if err = s.repo.AddToInvestment(ctx, portfolioID, security.ID, quantity); err != nil {
		slog.Error("got error from repo.AddToInvestment", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// RemoveHolding drops a position entirely, regardless of quantity.
func (s *PortfolioService) RemoveHolding(ctx context.Context, actingUser string, portfolioID int64, ticker string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RemoveHolding"

	slog.Debug("RemoveHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID), slog.String("ticker", ticker))
	defer func() {
		slog.Debug("RemoveHolding finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	if err = s.authorizePortfolioAccess(ctx, actingUser, portfolioID); err != nil {
		return err
	}

	security, err := s.repo.GetSecurityByTicker(ctx, normalizeTicker(ticker))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.GetSecurityByTicker", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if err = s.repo.DeleteInvestment(ctx, portfolioID, security.ID); err != nil {
		slog.Error("got error from repo.DeleteInvestment", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// authorizePortfolioAccess checks that actingUser owns the portfolio or is an admin.
func (s *PortfolioService) authorizePortfolioAccess(ctx context.Context, actingUser string, portfolioID int64) error {
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(actingUser))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		return err
	}

	portfolio, err := s.repo.GetPortfolio(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		return err
	}

	if portfolio.UserID != user.ID && user.Role != model.RoleAdmin {
		return service.ErrForbidden
	}

	return nil
}
