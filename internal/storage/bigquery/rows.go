package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	st "github.com/dvloznov/wealthflow/internal/storage"
)

// Row types mirror the three collection tables. Every table carries id and
// owner_id; the remaining columns match the document fields of the
// corresponding collection.

type accountRow struct {
	ID              string                 `bigquery:"id"`       // REQUIRED
	OwnerID         string                 `bigquery:"owner_id"` // REQUIRED
	Name            string                 `bigquery:"name"`
	InstitutionName string                 `bigquery:"institution_name"`
	AccountNumber   string                 `bigquery:"account_number"`
	Balance         float64                `bigquery:"balance"`
	Currency        string                 `bigquery:"currency"`
	CreatedTS       bigquery.NullTimestamp `bigquery:"created_ts"` // TIMESTAMP, NULLABLE
}

type transactionRow struct {
	ID        string    `bigquery:"id"`       // REQUIRED
	OwnerID   string    `bigquery:"owner_id"` // REQUIRED
	AccountID string    `bigquery:"account_id"`
	Amount    float64   `bigquery:"amount"`
	Type      string    `bigquery:"type"`
	Category  string    `bigquery:"category"`
	Date      time.Time `bigquery:"date"` // TIMESTAMP
	Note      string    `bigquery:"note"`
}

type holdingRow struct {
	ID           string  `bigquery:"id"`       // REQUIRED
	OwnerID      string  `bigquery:"owner_id"` // REQUIRED
	Symbol       string  `bigquery:"symbol"`
	Name         string  `bigquery:"name"`
	Market       string  `bigquery:"market"`
	Quantity     float64 `bigquery:"quantity"`
	AvgPrice     float64 `bigquery:"avg_price"`
	CurrentPrice float64 `bigquery:"current_price"`
}

func (r *accountRow) toDocument() st.Document {
	return st.Document{
		"id":              r.ID,
		st.OwnerField:     r.OwnerID,
		"name":            r.Name,
		"institutionName": r.InstitutionName,
		"accountNumber":   r.AccountNumber,
		"balance":         r.Balance,
		"currency":        r.Currency,
	}
}

func (r *transactionRow) toDocument() st.Document {
	return st.Document{
		"id":          r.ID,
		st.OwnerField: r.OwnerID,
		"accountId":   r.AccountID,
		"amount":      r.Amount,
		"type":        r.Type,
		"category":    r.Category,
		"date":        r.Date.UTC().Format(time.RFC3339Nano),
		"note":        r.Note,
	}
}

func (r *holdingRow) toDocument() st.Document {
	return st.Document{
		"id":           r.ID,
		st.OwnerField:  r.OwnerID,
		"symbol":       r.Symbol,
		"name":         r.Name,
		"market":       r.Market,
		"quantity":     r.Quantity,
		"avgPrice":     r.AvgPrice,
		"currentPrice": r.CurrentPrice,
	}
}

// columns maps document field names to table column names per collection.
// Patches referencing fields outside this map are rejected, which also
// keeps id and owner_id immutable.
var columns = map[string]map[string]string{
	st.CollectionAccounts: {
		"name":            "name",
		"institutionName": "institution_name",
		"accountNumber":   "account_number",
		"balance":         "balance",
		"currency":        "currency",
	},
	st.CollectionTransactions: {
		"accountId": "account_id",
		"amount":    "amount",
		"type":      "type",
		"category":  "category",
		"date":      "date",
		"note":      "note",
	},
	st.CollectionHoldings: {
		"symbol":       "symbol",
		"name":         "name",
		"market":       "market",
		"quantity":     "quantity",
		"avgPrice":     "avg_price",
		"currentPrice": "current_price",
	},
}
