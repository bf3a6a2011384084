package service

import "errors"

var (
	ErrNotFound             = errors.New("error not found")
	ErrAlreadyExists        = errors.New("error already exists")
	ErrInvalidArgument      = errors.New("error invalid argument")
	ErrInvalidQuantity      = errors.New("error quantity must be positive")
	ErrInvalidPrice         = errors.New("error price must be positive")
	ErrInvalidRole          = errors.New("error invalid role")
	ErrNegativeBalance      = errors.New("error balance cannot be negative")
	ErrInsufficientFunds    = errors.New("error insufficient funds")
	ErrInsufficientHoldings = errors.New("error insufficient holdings")
	ErrForbidden            = errors.New("error operation not permitted")
	ErrLastAdmin            = errors.New("error cannot delete the last admin")
)
