package model

type Portfolio struct {
	ID            int64
	Name          string
	Description   string
	Strategy      string
	UserID        int64
	OwnerUsername string
	Holdings      []Holding
}

// Holding is the quantity of one security held within a portfolio.
type Holding struct {
	Ticker       string
	SecurityName string
	Quantity     int
}
