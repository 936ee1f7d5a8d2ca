package domain

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidInput marks user-input validation failures. These are
	// rejected synchronously, before any write is issued.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransferUnsupported is returned when a TRANSFER transaction is
	// submitted. The balance effect of transfers is undefined, so they are
	// rejected rather than silently recorded.
	ErrTransferUnsupported = errors.New("TRANSFER transactions are not supported")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func invalid(op string, detail interface{}) error {
	return fmt.Errorf("%s: %w: %v", op, ErrInvalidInput, detail)
}

// ValidateAccount checks an account before it is written.
func ValidateAccount(a Account) error {
	if err := validate.Struct(a); err != nil {
		return invalid("ValidateAccount", err)
	}
	return nil
}

// ValidateTransaction checks a transaction before it is written. TRANSFER
// is explicitly unsupported.
func ValidateTransaction(tx Transaction) error {
	if tx.Type == TypeTransfer {
		return ErrTransferUnsupported
	}
	if tx.Type != TypeIncome && tx.Type != TypeExpense {
		return invalid("ValidateTransaction", fmt.Sprintf("unknown transaction type %q", tx.Type))
	}
	if err := validate.Struct(tx); err != nil {
		return invalid("ValidateTransaction", err)
	}
	if tx.Date.IsZero() {
		return invalid("ValidateTransaction", "date is required")
	}
	return nil
}

// ValidateHolding checks a holding before it is written.
func ValidateHolding(h Holding) error {
	if err := validate.Struct(h); err != nil {
		return invalid("ValidateHolding", err)
	}
	return nil
}
