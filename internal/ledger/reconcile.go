package ledger

import (
	"math"

	"github.com/dvloznov/wealthflow/internal/domain"
)

// Drift is the mismatch between an account's stored balance and the balance
// recomputed from its transaction history.
type Drift struct {
	AccountID string  `json:"account_id"`
	Stored    float64 `json:"stored"`
	Computed  float64 `json:"computed"`
}

// driftTolerance absorbs float64 rounding from repeated balance updates.
const driftTolerance = 1e-6

// Reconcile recomputes each account balance as its initial balance plus the
// sum of signed amounts of its existing transactions, and reports every
// account whose stored balance disagrees. It reads the current snapshots
// and performs no writes; repairing drift is left to the operator.
//
// initialBalances maps account id to the balance at account creation.
// Accounts absent from the map are assumed to have started at zero.
func (c *Coordinator) Reconcile(initialBalances map[string]float64) []Drift {
	accounts := c.store.Accounts()
	transactions := c.store.Transactions()

	sums := make(map[string]float64, len(accounts))
	for _, tx := range transactions {
		sums[tx.AccountID] += domain.SignedAmount(tx)
	}

	var drifts []Drift
	for _, a := range accounts {
		computed := initialBalances[a.ID] + sums[a.ID]
		if math.Abs(a.Balance-computed) > driftTolerance {
			drifts = append(drifts, Drift{AccountID: a.ID, Stored: a.Balance, Computed: computed})
		}
	}
	return drifts
}
