package advice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/rs/zerolog"
)

// TextGenerator is the text-generation collaborator contract.
type TextGenerator interface {
	// GenerateText sends a single prompt and returns the raw model text.
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Fallback strings returned when no generator is configured or the model
// returns nothing useful.
const (
	noKeyAdvice     = "Please provide an API Key to get AI insights."
	emptyAdvice     = "Could not generate advice at this time."
	defaultCategory = "Other"
)

// maxRecentExpenses bounds the spending summary included in the prompt.
const maxRecentExpenses = 10

// Advisor builds deterministic prompts from the current snapshots and hands
// the raw model response back unmodified. It never fails the caller when
// unconfigured: a local fallback string is returned instead.
type Advisor struct {
	gen TextGenerator
	log zerolog.Logger
}

// New creates an advisor. gen may be nil when no credential is configured.
func New(gen TextGenerator, log zerolog.Logger) *Advisor {
	return &Advisor{gen: gen, log: log}
}

// FinancialAdvice returns markdown commentary for the given financial
// snapshot, or a fallback string when no generator is configured.
func (a *Advisor) FinancialAdvice(ctx context.Context, accounts []domain.Account, transactions []domain.Transaction, holdings []domain.Holding) (string, error) {
	if a.gen == nil {
		return noKeyAdvice, nil
	}

	prompt, err := BuildAdvicePrompt(accounts, transactions, holdings)
	if err != nil {
		return "", fmt.Errorf("FinancialAdvice: %w", err)
	}

	text, err := a.gen.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("FinancialAdvice: generating: %w", err)
	}
	if text == "" {
		return emptyAdvice, nil
	}
	return text, nil
}

// Categorize asks the model for a one-word category for a transaction
// description. It degrades to "Other" on any failure and never returns an
// error: categorization is advisory.
func (a *Advisor) Categorize(ctx context.Context, description string) string {
	if a.gen == nil {
		return defaultCategory
	}

	prompt := fmt.Sprintf(
		"Categorize this financial transaction description into one word (e.g. Food, Transport, Housing, Salary, Shopping, Utilities, Health): %q. Return only the category word.",
		description,
	)
	text, err := a.gen.GenerateText(ctx, prompt)
	if err != nil {
		a.log.Warn().Err(err).Msg("Categorization failed; using default")
		return defaultCategory
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return defaultCategory
	}
	return text
}

// BuildAdvicePrompt constructs the advice prompt. It is deterministic for a
// given input: totals, the holdings listing and the last N expenses appear
// in a fixed order and format.
func BuildAdvicePrompt(accounts []domain.Account, transactions []domain.Transaction, holdings []domain.Holding) (string, error) {
	totalCash := domain.TotalCash(accounts)
	totalStock := domain.TotalStockValue(holdings)

	type position struct {
		Symbol string  `json:"symbol"`
		Name   string  `json:"name"`
		Qty    float64 `json:"qty"`
		Avg    float64 `json:"avg"`
		Curr   float64 `json:"curr"`
	}
	positions := make([]position, 0, len(holdings))
	for _, h := range holdings {
		positions = append(positions, position{
			Symbol: h.Symbol,
			Name:   h.Name,
			Qty:    h.Quantity,
			Avg:    h.AvgPrice,
			Curr:   h.CurrentPrice,
		})
	}
	portfolioJSON, err := json.Marshal(positions)
	if err != nil {
		return "", fmt.Errorf("BuildAdvicePrompt: marshaling portfolio: %w", err)
	}

	// Transactions arrive date-descending from the sync store, so the
	// first N expenses are the most recent ones.
	var expenses []string
	for _, tx := range transactions {
		if tx.Type != domain.TypeExpense {
			continue
		}
		expenses = append(expenses, fmt.Sprintf("%s: $%g", tx.Category, tx.Amount))
		if len(expenses) == maxRecentExpenses {
			break
		}
	}

	var b strings.Builder
	b.WriteString("You are a professional financial advisor. Analyze the following financial snapshot for a user in Taiwan (TWD currency context).\n\n")
	b.WriteString("Overview:\n")
	fmt.Fprintf(&b, "- Total Cash: %g TWD\n", totalCash)
	fmt.Fprintf(&b, "- Total Stock Portfolio Value: %g TWD\n\n", totalStock)
	b.WriteString("Portfolio:\n")
	b.Write(portfolioJSON)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Recent Expenses (Last %d):\n", maxRecentExpenses)
	b.WriteString(strings.Join(expenses, ", "))
	b.WriteString("\n\n")
	b.WriteString("Please provide:\n")
	b.WriteString("1. A brief assessment of financial health.\n")
	b.WriteString("2. An observation on spending habits.\n")
	b.WriteString("3. Specific advice on the stock portfolio (hold/sell suggestions based on general financial principles, not real-time market data).\n")
	b.WriteString("4. Format the response in Markdown. Keep it concise, encouraging, and professional.\n")

	return b.String(), nil
}
