package domain

// SignedAmount returns the effect of a transaction on its account balance:
// positive for INCOME, negative for EXPENSE. TRANSFER has no defined effect
// and contributes zero; new transfers are rejected upstream by Validate.
func SignedAmount(tx Transaction) float64 {
	switch tx.Type {
	case TypeIncome:
		return tx.Amount
	case TypeExpense:
		return -tx.Amount
	default:
		return 0
	}
}

// NetWorth is total cash across accounts plus the market value of all
// holdings.
func NetWorth(accounts []Account, holdings []Holding) float64 {
	return TotalCash(accounts) + TotalStockValue(holdings)
}

// TotalCash sums account balances.
func TotalCash(accounts []Account) float64 {
	var total float64
	for _, a := range accounts {
		total += a.Balance
	}
	return total
}

// TotalStockValue sums quantity times current price across holdings.
func TotalStockValue(holdings []Holding) float64 {
	var total float64
	for _, h := range holdings {
		total += h.Quantity * h.CurrentPrice
	}
	return total
}

// AggregateByCategory sums transaction amounts per category for the given
// type. It always returns a freshly allocated map.
func AggregateByCategory(transactions []Transaction, txType TransactionType) map[string]float64 {
	totals := make(map[string]float64)
	for _, tx := range transactions {
		if tx.Type != txType {
			continue
		}
		totals[tx.Category] += tx.Amount
	}
	return totals
}

// GainLoss is the unrealized profit or loss of a holding.
func GainLoss(h Holding) float64 {
	return (h.CurrentPrice - h.AvgPrice) * h.Quantity
}

// GainLossPercent is the unrealized gain relative to cost basis, as a
// percentage. A zero cost basis yields 0 rather than NaN or Inf.
func GainLossPercent(h Holding) float64 {
	basis := h.AvgPrice * h.Quantity
	if basis == 0 {
		return 0
	}
	return GainLoss(h) / basis * 100
}

// BuildSnapshot derives the aggregate view from the three collections at a
// point in time.
func BuildSnapshot(accounts []Account, transactions []Transaction, holdings []Holding) Snapshot {
	var income, expense float64
	for _, tx := range transactions {
		switch tx.Type {
		case TypeIncome:
			income += tx.Amount
		case TypeExpense:
			expense += tx.Amount
		}
	}
	return Snapshot{
		NetWorth:        NetWorth(accounts, holdings),
		TotalCash:       TotalCash(accounts),
		TotalStockValue: TotalStockValue(holdings),
		IncomeTotal:     income,
		ExpenseTotal:    expense,
	}
}
