package portfolioService

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kiwicapital/portfolio_manager/data/repository"
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/internal/model/dbModel"
	"github.com/kiwicapital/portfolio_manager/internal/service"
	"github.com/kiwicapital/portfolio_manager/utils"
	"github.com/shopspring/decimal"
)

// BuySecurity applies a buy order for the acting user: debits the balance,
// increments the holding and appends a BUY record. All three effects happen in
// one database transaction, a failure anywhere rolls the whole order back.
func (s *PortfolioService) BuySecurity(
	ctx context.Context,
	username string,
	portfolioID int64,
	ticker string,
	quantity int,
	price *decimal.Decimal,
) (transaction model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.BuySecurity"

	slog.Debug("BuySecurity start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username), slog.String("ticker", ticker), slog.Int("quantity", quantity))
	defer func() {
		slog.Debug("BuySecurity finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	}()

	if quantity <= 0 {
		return model.Transaction{}, service.ErrInvalidQuantity
	}
	if price != nil && !price.IsPositive() {
		return model.Transaction{}, service.ErrInvalidPrice
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		user, security, err := s.resolveOrderParties(ctx, username, portfolioID, ticker)
		if err != nil {
			return err
		}

		orderPrice := s.resolveOrderPrice(ctx, security, price)
		totalPrice := orderPrice.Mul(decimal.NewFromInt(int64(quantity)))

		if user.Balance.LessThan(totalPrice) {
			return service.ErrInsufficientFunds
		}

		if err := s.repo.UpdateUserBalance(ctx, user.ID, user.Balance.Sub(totalPrice)); err != nil {
			return err
		}

		if err := s.repo.AddToInvestment(ctx, portfolioID, security.ID, quantity); err != nil {
			return err
		}

		transaction, err = s.appendTransaction(ctx, user, portfolioID, security, model.TransactionBuy, quantity, orderPrice, totalPrice)
		return err
	})
	if err != nil {
		slog.Error("BuySecurity rolled back", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Transaction{}, err
	}

	return transaction, nil
}

// SellSecurity applies a sell order: credits the balance, decrements the
// holding (removing it at zero) and appends a SELL record, atomically.
func (s *PortfolioService) SellSecurity(
	ctx context.Context,
	username string,
	portfolioID int64,
	ticker string,
	quantity int,
	price *decimal.Decimal,
) (transaction model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.SellSecurity"

	slog.Debug("SellSecurity start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username), slog.String("ticker", ticker), slog.Int("quantity", quantity))
	defer func() {
		slog.Debug("SellSecurity finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	}()

	if quantity <= 0 {
		return model.Transaction{}, service.ErrInvalidQuantity
	}
	if price != nil && !price.IsPositive() {
		return model.Transaction{}, service.ErrInvalidPrice
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		user, security, err := s.resolveOrderParties(ctx, username, portfolioID, ticker)
		if err != nil {
			return err
		}

		investment, err := s.repo.GetInvestmentForUpdate(ctx, portfolioID, security.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return service.ErrInsufficientHoldings
			}
			return err
		}

		if investment.Quantity < quantity {
			return service.ErrInsufficientHoldings
		}

		orderPrice := s.resolveOrderPrice(ctx, security, price)
		totalPrice := orderPrice.Mul(decimal.NewFromInt(int64(quantity)))

		remaining := investment.Quantity - quantity
		if remaining == 0 {
			err = s.repo.DeleteInvestment(ctx, portfolioID, security.ID)
		} else {
			err = s.repo.SetInvestmentQuantity(ctx, portfolioID, security.ID, remaining)
		}
		if err != nil {
			return err
		}

		if err := s.repo.UpdateUserBalance(ctx, user.ID, user.Balance.Add(totalPrice)); err != nil {
			return err
		}

		transaction, err = s.appendTransaction(ctx, user, portfolioID, security, model.TransactionSell, quantity, orderPrice, totalPrice)
		return err
	})
	if err != nil {
		slog.Error("SellSecurity rolled back", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Transaction{}, err
	}

	return transaction, nil
}

// resolveOrderParties loads and checks the three referents of an order. The
// user row comes back locked so concurrent orders for one user serialize.
func (s *PortfolioService) resolveOrderParties(ctx context.Context, username string, portfolioID int64, ticker string) (model.User, model.Security, error) {
	user, err := s.repo.GetUserForUpdate(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, model.Security{}, service.ErrNotFound
		}
		return model.User{}, model.Security{}, err
	}

	portfolio, err := s.repo.GetPortfolio(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, model.Security{}, service.ErrNotFound
		}
		return model.User{}, model.Security{}, err
	}

	if portfolio.UserID != user.ID && user.Role != model.RoleAdmin {
		return model.User{}, model.Security{}, service.ErrForbidden
	}

	security, err := s.repo.GetSecurityByTicker(ctx, normalizeTicker(ticker))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, model.Security{}, service.ErrNotFound
		}
		return model.User{}, model.Security{}, err
	}

	return user, security, nil
}

// resolveOrderPrice prefers the caller's price, then the live quote, then the
// stored reference price.
func (s *PortfolioService) resolveOrderPrice(ctx context.Context, security model.Security, price *decimal.Decimal) decimal.Decimal {
	if price != nil {
		return *price
	}

	quote, err := s.getQuote(ctx, security.Ticker)
	if err != nil || !quote.Price.IsPositive() {
		return security.ReferencePrice
	}

	return quote.Price
}

func (s *PortfolioService) appendTransaction(
	ctx context.Context,
	user model.User,
	portfolioID int64,
	security model.Security,
	transactionType model.TransactionType,
	quantity int,
	price, totalPrice decimal.Decimal,
) (model.Transaction, error) {
	transactionID, createdAt, err := s.repo.InsertTransaction(ctx, dbModel.Transaction{
		UserID:      user.ID,
		PortfolioID: portfolioID,
		SecurityID:  security.ID,
		Ticker:      security.Ticker,
		Type:        string(transactionType),
		Quantity:    quantity,
		Price:       price,
		TotalPrice:  totalPrice,
	})
	if err != nil {
		return model.Transaction{}, err
	}

	return model.Transaction{
		ID:          transactionID,
		UserID:      user.ID,
		PortfolioID: portfolioID,
		SecurityID:  security.ID,
		Ticker:      security.Ticker,
		Type:        transactionType,
		Quantity:    quantity,
		Price:       price,
		TotalPrice:  totalPrice,
		CreatedAt:   createdAt,
	}, nil
}
