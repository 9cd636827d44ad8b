package domain

import "errors"

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrTransferNotFound = errors.New("transfer not found")

	ErrInvalidAmount        = errors.New("invalid transfer amount")
	ErrMerchantNotPermitted = errors.New("merchant accounts cannot send transfers")
	ErrInsufficientFunds    = errors.New("insufficient funds")

	ErrAuthorizationDenied      = errors.New("transfer not authorized")
	ErrAuthorizationUnavailable = errors.New("authorization service unavailable")

	ErrAlreadyReversed              = errors.New("transfer already reversed")
	ErrInvalidReversalState         = errors.New("transfer record cannot be reversed")
	ErrInsufficientFundsForReversal = errors.New("receiver balance too low to reverse transfer")

	ErrPersistence = errors.New("could not persist transfer")
)
