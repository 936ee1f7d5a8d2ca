package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/wealthflow/internal/auth"
	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/dvloznov/wealthflow/internal/storage"
)

// Demo credentials for local development.
const (
	Email    = "demo@wealthflow.ai"
	Password = "demo-pass"
	Name     = "DemoUser"
)

// Accounts returns the demo bank accounts.
func Accounts() []domain.Account {
	return []domain.Account{
		{Name: "Primary Savings", InstitutionName: "CTBC Bank", AccountNumber: "822-1234567890", Balance: 150000, Currency: "TWD"},
		{Name: "Salary Account", InstitutionName: "E.SUN Bank", AccountNumber: "808-9876543210", Balance: 45000, Currency: "TWD"},
	}
}

// Holdings returns the demo stock positions.
func Holdings() []domain.Holding {
	return []domain.Holding{
		{Symbol: "2330", Name: "TSMC", Market: "TWSE", Quantity: 1000, AvgPrice: 500, CurrentPrice: 980},
		{Symbol: "AAPL", Name: "Apple Inc.", Market: "NASDAQ", Quantity: 50, AvgPrice: 150, CurrentPrice: 175},
		{Symbol: "0050", Name: "Yuanta Taiwan 50", Market: "TWSE", Quantity: 2000, AvgPrice: 120, CurrentPrice: 165},
	}
}

// Transactions returns demo ledger entries for the given account ids,
// dated relative to now. The balances in Accounts already include these
// entries, so they are inserted directly rather than recorded through the
// ledger coordinator.
func Transactions(savingsID, salaryID string) []domain.Transaction {
	now := time.Now()
	return []domain.Transaction{
		{AccountID: salaryID, Amount: 65000, Type: domain.TypeIncome, Category: "Salary", Date: now.AddDate(0, 0, -5), Note: "Monthly Salary"},
		{AccountID: savingsID, Amount: 12000, Type: domain.TypeExpense, Category: "Housing", Date: now.AddDate(0, 0, -3), Note: "Rent Payment"},
		{AccountID: salaryID, Amount: 1500, Type: domain.TypeExpense, Category: "Transport", Date: now.AddDate(0, 0, -2), Note: "HSR Ticket"},
		{AccountID: savingsID, Amount: 350, Type: domain.TypeExpense, Category: "Food", Date: now.AddDate(0, 0, -1), Note: "Lunch with colleagues"},
	}
}

// Seed registers the demo user and populates their three collections.
// Returns the demo user.
func Seed(ctx context.Context, authSvc auth.Service, db storage.Store) (*domain.User, error) {
	user, err := authSvc.Register(ctx, Email, Password, Name)
	if err != nil {
		return nil, fmt.Errorf("Seed: registering demo user: %w", err)
	}
	if err := authSvc.Logout(ctx); err != nil {
		return nil, fmt.Errorf("Seed: %w", err)
	}

	accountIDs := make([]string, 0, 2)
	for _, a := range Accounts() {
		doc := storage.EncodeAccount(a)
		doc[storage.OwnerField] = user.ID
		id, err := db.Insert(ctx, storage.CollectionAccounts, doc)
		if err != nil {
			return nil, fmt.Errorf("Seed: inserting account %q: %w", a.Name, err)
		}
		accountIDs = append(accountIDs, id)
	}

	for _, h := range Holdings() {
		doc := storage.EncodeHolding(h)
		doc[storage.OwnerField] = user.ID
		if _, err := db.Insert(ctx, storage.CollectionHoldings, doc); err != nil {
			return nil, fmt.Errorf("Seed: inserting holding %q: %w", h.Symbol, err)
		}
	}

	for _, tx := range Transactions(accountIDs[0], accountIDs[1]) {
		doc := storage.EncodeTransaction(tx)
		doc[storage.OwnerField] = user.ID
		if _, err := db.Insert(ctx, storage.CollectionTransactions, doc); err != nil {
			return nil, fmt.Errorf("Seed: inserting transaction %q: %w", tx.Note, err)
		}
	}

	return user, nil
}
