package model

import "github.com/shopspring/decimal"

type Security struct {
	ID             int64
	Ticker         string
	Name           string
	ReferencePrice decimal.Decimal
}

type Quote struct {
	Ticker string
	Name   string
	Price  decimal.Decimal
}
