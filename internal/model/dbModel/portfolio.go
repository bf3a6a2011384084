package dbModel

type Portfolio struct {
	PortfolioID   int64  `db:"portfolio_id"`
	Name          string `db:"name"`
	Description   string `db:"description"`
	Strategy      string `db:"strategy"`
	UserID        int64  `db:"user_id"`
	OwnerUsername string `db:"owner_username"`
}

type Investment struct {
	PortfolioID  int64  `db:"portfolio_id"`
	SecurityID   int64  `db:"security_id"`
	Ticker       string `db:"ticker"`
	SecurityName string `db:"security_name"`
	Quantity     int    `db:"quantity"`
}
