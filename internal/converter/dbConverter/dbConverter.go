package dbConverter

import (
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/internal/model/dbModel"
)

func ConvertUser(dbUser dbModel.User) model.User {
	return model.User{
		ID:        dbUser.UserID,
		Username:  dbUser.Username,
		FirstName: dbUser.FirstName,
		LastName:  dbUser.LastName,
		Balance:   dbUser.Balance,
		Role:      dbUser.Role,
	}
}

func ConvertPortfolio(dbPortfolio dbModel.Portfolio) model.Portfolio {
	return model.Portfolio{
		ID:            dbPortfolio.PortfolioID,
		Name:          dbPortfolio.Name,
		Description:   dbPortfolio.Description,
		Strategy:      dbPortfolio.Strategy,
		UserID:        dbPortfolio.UserID,
		OwnerUsername: dbPortfolio.OwnerUsername,
	}
}

func ConvertInvestment(dbInvestment dbModel.Investment) model.Holding {
	return model.Holding{
		Ticker:       dbInvestment.Ticker,
		SecurityName: dbInvestment.SecurityName,
		Quantity:     dbInvestment.Quantity,
	}
}

func ConvertSecurity(dbSecurity dbModel.Security) model.Security {
	return model.Security{
		ID:             dbSecurity.SecurityID,
		Ticker:         dbSecurity.Ticker,
		Name:           dbSecurity.Name,
		ReferencePrice: dbSecurity.ReferencePrice,
	}
}

func ConvertTransaction(dbTransaction dbModel.Transaction) model.Transaction {
	return model.Transaction{
		ID:          dbTransaction.TransactionID,
		UserID:      dbTransaction.UserID,
		PortfolioID: dbTransaction.PortfolioID,
		SecurityID:  dbTransaction.SecurityID,
		Ticker:      dbTransaction.Ticker,
		Type:        model.TransactionType(dbTransaction.Type),
		Quantity:    dbTransaction.Quantity,
		Price:       dbTransaction.Price,
		TotalPrice:  dbTransaction.TotalPrice,
		CreatedAt:   dbTransaction.CreatedAt,
	}
}
