package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Security struct {
	SecurityID     int64           `db:"security_id"`
	Ticker         string          `db:"ticker"`
	Name           string          `db:"name"`
	ReferencePrice decimal.Decimal `db:"reference_price"`
}

type Transaction struct {
	TransactionID int64           `db:"transaction_id"`
	UserID        int64           `db:"user_id"`
	PortfolioID   int64           `db:"portfolio_id"`
	SecurityID    int64           `db:"security_id"`
	Ticker        string          `db:"ticker"`
	Type          string          `db:"transaction_type"`
	Quantity      int             `db:"quantity"`
	Price         decimal.Decimal `db:"price"`
	TotalPrice    decimal.Decimal `db:"total_price"`
	CreatedAt     time.Time       `db:"dt_create"`
}
