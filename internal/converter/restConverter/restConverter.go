package restConverter

import (
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/internal/model/restModel"
)

func ConvertUser(user model.User) restModel.User {
	return restModel.User{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Balance:   user.Balance,
		Role:      user.Role,
		Holdings:  user.Holdings,
	}
}

func ConvertUsers(users []model.User) []restModel.User {
	res := make([]restModel.User, 0, len(users))
	for _, user := range users {
		res = append(res, ConvertUser(user))
	}
	return res
}

func ConvertPortfolio(portfolio model.Portfolio) restModel.Portfolio {
	holdings := make([]restModel.Holding, 0, len(portfolio.Holdings))
	for _, holding := range portfolio.Holdings {
		holdings = append(holdings, restModel.Holding{
			Ticker:       holding.Ticker,
			SecurityName: holding.SecurityName,
			Quantity:     holding.Quantity,
		})
	}

	return restModel.Portfolio{
		ID:            portfolio.ID,
		Name:          portfolio.Name,
		Description:   portfolio.Description,
		Strategy:      portfolio.Strategy,
		OwnerUsername: portfolio.OwnerUsername,
		Holdings:      holdings,
	}
}

func ConvertPortfolios(portfolios []model.Portfolio) []restModel.Portfolio {
	res := make([]restModel.Portfolio, 0, len(portfolios))
	for _, portfolio := range portfolios {
		res = append(res, ConvertPortfolio(portfolio))
	}
	return res
}

func ConvertSecurity(security model.Security) restModel.Security {
	return restModel.Security{
		ID:             security.ID,
		Ticker:         security.Ticker,
		Name:           security.Name,
		ReferencePrice: security.ReferencePrice,
	}
}

func ConvertSecurities(securities []model.Security) []restModel.Security {
	res := make([]restModel.Security, 0, len(securities))
	for _, security := range securities {
		res = append(res, ConvertSecurity(security))
	}
	return res
}

func ConvertQuote(quote model.Quote) restModel.Quote {
	return restModel.Quote{
		Ticker: quote.Ticker,
		Name:   quote.Name,
		Price:  quote.Price,
	}
}

func ConvertTransaction(transaction model.Transaction) restModel.Transaction {
	return restModel.Transaction{
		ID:          transaction.ID,
		UserID:      transaction.UserID,
		PortfolioID: transaction.PortfolioID,
		SecurityID:  transaction.SecurityID,
		Ticker:      transaction.Ticker,
		Type:        string(transaction.Type),
		Quantity:    transaction.Quantity,
		Price:       transaction.Price,
		TotalPrice:  transaction.TotalPrice,
		CreatedAt:   transaction.CreatedAt,
	}
}

func ConvertTransactions(transactions []model.Transaction) []restModel.Transaction {
	res := make([]restModel.Transaction, 0, len(transactions))
	for _, transaction := range transactions {
		res = append(res, ConvertTransaction(transaction))
	}
	return res
}
