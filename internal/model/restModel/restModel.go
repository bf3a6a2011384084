package restModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Balance   decimal.Decimal `json:"balance"`
	Role      string          `json:"role"`
	Holdings  map[string]int  `json:"holdings,omitempty"`
}

type Holding struct {
	Ticker       string `json:"ticker"`
	SecurityName string `json:"security_name"`
	Quantity     int    `json:"quantity"`
}

type Portfolio struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Strategy      string    `json:"strategy,omitempty"`
	OwnerUsername string    `json:"owner"`
	Holdings      []Holding `json:"holdings,omitempty"`
}

type Security struct {
	ID             int64           `json:"id"`
	Ticker         string          `json:"ticker"`
	Name           string          `json:"name"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
}

type Quote struct {
	Ticker string          `json:"ticker"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

type Transaction struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	PortfolioID int64           `json:"portfolio_id"`
	SecurityID  int64           `json:"security_id"`
	Ticker      string          `json:"ticker"`
	Type        string          `json:"type"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	CreatedAt   time.Time       `json:"created_at"`
}
