package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateAmount checks that a transfer amount is strictly positive and fits
// the two-decimal-place money precision used across the ledger.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: at most two decimal places", ErrInvalidAmount)
	}
	return nil
}

// ValidateTransfer runs the pre-authorization eligibility checks on the
// sender. Merchant accounts cannot send money; neither can accounts whose
// kind was never set.
func ValidateTransfer(sender *Account, amount decimal.Decimal) error {
	if sender.Kind != KindPersonal {
		return ErrMerchantNotPermitted
	}
	if sender.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}
