package storage

import (
	"time"

	"github.com/dvloznov/wealthflow/internal/domain"
)

// Codec between domain entities and schemaless documents. Dates travel as
// RFC 3339 strings; numbers as float64. Decoding tolerates missing fields
// and integer-typed numbers from backends that do not preserve float64.

// EncodeAccount maps an account to a document, excluding the id.
func EncodeAccount(a domain.Account) Document {
	return Document{
		"name":            a.Name,
		"institutionName": a.InstitutionName,
		"accountNumber":   a.AccountNumber,
		"balance":         a.Balance,
		"currency":        a.Currency,
	}
}

// DecodeAccount maps a document back to an account.
func DecodeAccount(doc Document) domain.Account {
	return domain.Account{
		ID:              docString(doc, "id"),
		Name:            docString(doc, "name"),
		InstitutionName: docString(doc, "institutionName"),
		AccountNumber:   docString(doc, "accountNumber"),
		Balance:         docFloat(doc, "balance"),
		Currency:        docString(doc, "currency"),
	}
}

// EncodeTransaction maps a transaction to a document, excluding the id.
func EncodeTransaction(tx domain.Transaction) Document {
	return Document{
		"accountId": tx.AccountID,
		"amount":    tx.Amount,
		"type":      string(tx.Type),
		"category":  tx.Category,
		"date":      tx.Date.UTC().Format(time.RFC3339Nano),
		"note":      tx.Note,
	}
}

// DecodeTransaction maps a document back to a transaction.
func DecodeTransaction(doc Document) domain.Transaction {
	return domain.Transaction{
		ID:        docString(doc, "id"),
		AccountID: docString(doc, "accountId"),
		Amount:    docFloat(doc, "amount"),
		Type:      domain.TransactionType(docString(doc, "type")),
		Category:  docString(doc, "category"),
		Date:      docTime(doc, "date"),
		Note:      docString(doc, "note"),
	}
}

// EncodeHolding maps a holding to a document, excluding the id.
func EncodeHolding(h domain.Holding) Document {
	return Document{
		"symbol":       h.Symbol,
		"name":         h.Name,
		"market":       h.Market,
		"quantity":     h.Quantity,
		"avgPrice":     h.AvgPrice,
		"currentPrice": h.CurrentPrice,
	}
}

// DecodeHolding maps a document back to a holding.
func DecodeHolding(doc Document) domain.Holding {
	return domain.Holding{
		ID:           docString(doc, "id"),
		Symbol:       docString(doc, "symbol"),
		Name:         docString(doc, "name"),
		Market:       docString(doc, "market"),
		Quantity:     docFloat(doc, "quantity"),
		AvgPrice:     docFloat(doc, "avgPrice"),
		CurrentPrice: docFloat(doc, "currentPrice"),
	}
}

func docString(doc Document, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func docFloat(doc Document, key string) float64 {
	switch v := doc[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func docTime(doc Document, key string) time.Time {
	switch v := doc[key].(type) {
	case time.Time:
		return v
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return ts
		}
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts
		}
	}
	return time.Time{}
}
