package domain

import (
	"time"
)

// TransactionType classifies how a transaction affects the owning account.
type TransactionType string

const (
	// TypeIncome credits the account by the transaction amount.
	TypeIncome TransactionType = "INCOME"
	// TypeExpense debits the account by the transaction amount.
	TypeExpense TransactionType = "EXPENSE"
	// TypeTransfer exists in stored data but has no defined balance effect.
	// Creating new TRANSFER transactions is rejected at validation.
	TypeTransfer TransactionType = "TRANSFER"
)

// User identifies the owner partition for accounts, transactions and
// holdings. Users are created by the auth service; everything else treats
// them as read-only.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Account is a bank account. Balance is the single source of truth for the
// cash held here and must equal the initial balance plus the sum of signed
// amounts of all existing transactions against the account.
type Account struct {
	ID              string  `json:"id"`
	Name            string  `json:"name" validate:"required"`
	InstitutionName string  `json:"institution_name"`
	AccountNumber   string  `json:"account_number"`
	Balance         float64 `json:"balance"`
	Currency        string  `json:"currency" validate:"required,len=3"`
}

// Transaction is one ledger entry against an account. Amount is always
// stored positive; the sign is derived from Type. Transactions are
// immutable once committed except for deletion.
type Transaction struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id" validate:"required"`
	Amount    float64         `json:"amount" validate:"required,gt=0"`
	Type      TransactionType `json:"type" validate:"required"`
	Category  string          `json:"category" validate:"required"`
	Date      time.Time       `json:"date"`
	Note      string          `json:"note"`
}

// Holding is a stock position valued independently of any account.
// CurrentPrice is refreshed by an external process.
type Holding struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol" validate:"required"`
	Name         string  `json:"name"`
	Market       string  `json:"market" validate:"required,oneof=TWSE NASDAQ NYSE"`
	Quantity     float64 `json:"quantity" validate:"gte=0"`
	AvgPrice     float64 `json:"avg_price" validate:"gte=0"`
	CurrentPrice float64 `json:"current_price" validate:"gte=0"`
}

// Snapshot is the derived aggregate view over the three live collections.
// It is recomputed on demand and never persisted or cached.
type Snapshot struct {
	NetWorth        float64 `json:"net_worth"`
	TotalCash       float64 `json:"total_cash"`
	TotalStockValue float64 `json:"total_stock_value"`
	IncomeTotal     float64 `json:"income_total"`
	ExpenseTotal    float64 `json:"expense_total"`
}
