package model

import "github.com/shopspring/decimal"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	Balance   decimal.Decimal
	Role      string
	// Holdings aggregates quantities over all of the user's portfolios, keyed by ticker.
	Holdings map[string]int
}
