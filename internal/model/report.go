package model

import "github.com/shopspring/decimal"

type PortfolioReport struct {
	Portfolio    Portfolio
	Positions    []ReportPosition
	Transactions []Transaction
	TotalValue   decimal.Decimal
}

type ReportPosition struct {
	Ticker       string
	SecurityName string
	Quantity     int
	Price        decimal.Decimal
	TotalPrice   decimal.Decimal
}
