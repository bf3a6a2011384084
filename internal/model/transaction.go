package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionBuy  TransactionType = "BUY"
	TransactionSell TransactionType = "SELL"
)

// Transaction is an immutable audit record. It references user, portfolio and
// security by id only, so it outlives the entities it refers to.
type Transaction struct {
	ID          int64
	UserID      int64
	PortfolioID int64
	SecurityID  int64
	Ticker      string
	Type        TransactionType
	Quantity    int
	Price       decimal.Decimal
	TotalPrice  decimal.Decimal
	CreatedAt   time.Time
}
