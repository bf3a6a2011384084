package dbModel

import "github.com/shopspring/decimal"

type User struct {
	UserID       int64           `db:"user_id"`
	Username     string          `db:"username"`
	PasswordHash string          `db:"password_hash"`
	FirstName    string          `db:"first_name"`
	LastName     string          `db:"last_name"`
	Balance      decimal.Decimal `db:"balance"`
	Role         string          `db:"role"`
}
