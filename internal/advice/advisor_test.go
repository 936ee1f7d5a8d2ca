package advice

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/wealthflow/internal/domain"
	"github.com/rs/zerolog"
)

// stubGenerator echoes a fixed response and records the last prompt.
type stubGenerator struct {
	response string
	err      error
	prompt   string
}

func (s *stubGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func sampleData() ([]domain.Account, []domain.Transaction, []domain.Holding) {
	accounts := []domain.Account{
		{ID: "a1", Name: "Primary Savings", Balance: 150000},
		{ID: "a2", Name: "Salary Account", Balance: 45000},
	}
	holdings := []domain.Holding{
		{Symbol: "2330", Name: "TSMC", Quantity: 1000, AvgPrice: 500, CurrentPrice: 980},
	}
	txs := []domain.Transaction{
		{Category: "Food", Amount: 350, Type: domain.TypeExpense, Date: time.Now()},
		{Category: "Salary", Amount: 65000, Type: domain.TypeIncome, Date: time.Now()},
		{Category: "Housing", Amount: 12000, Type: domain.TypeExpense, Date: time.Now()},
	}
	return accounts, txs, holdings
}

func TestFinancialAdvice_NoGeneratorFallback(t *testing.T) {
	a := New(nil, zerolog.Nop())

	accounts, txs, holdings := sampleData()
	got, err := a.FinancialAdvice(context.Background(), accounts, txs, holdings)
	if err != nil {
		t.Fatalf("FinancialAdvice failed: %v", err)
	}
	if got != noKeyAdvice {
		t.Errorf("FinancialAdvice() = %q, want fallback", got)
	}
}

func TestFinancialAdvice_ReturnsRawModelText(t *testing.T) {
	gen := &stubGenerator{response: "## Looking good\nKeep saving."}
	a := New(gen, zerolog.Nop())

	accounts, txs, holdings := sampleData()
	got, err := a.FinancialAdvice(context.Background(), accounts, txs, holdings)
	if err != nil {
		t.Fatalf("FinancialAdvice failed: %v", err)
	}
	if got != gen.response {
		t.Errorf("FinancialAdvice() = %q, want raw model response", got)
	}
}

func TestFinancialAdvice_GeneratorError(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("quota exceeded")}
	a := New(gen, zerolog.Nop())

	accounts, txs, holdings := sampleData()
	if _, err := a.FinancialAdvice(context.Background(), accounts, txs, holdings); err == nil {
		t.Error("expected error from failing generator")
	}
}

func TestBuildAdvicePrompt_Deterministic(t *testing.T) {
	accounts, txs, holdings := sampleData()

	first, err := BuildAdvicePrompt(accounts, txs, holdings)
	if err != nil {
		t.Fatalf("BuildAdvicePrompt failed: %v", err)
	}
	second, err := BuildAdvicePrompt(accounts, txs, holdings)
	if err != nil {
		t.Fatalf("BuildAdvicePrompt failed: %v", err)
	}
	if first != second {
		t.Error("prompt must be deterministic for identical input")
	}

	for _, want := range []string{
		"Total Cash: 195000 TWD",
		"Total Stock Portfolio Value: 980000 TWD",
		`"symbol":"2330"`,
		"Food: $350",
		"Housing: $12000",
	} {
		if !strings.Contains(first, want) {
			t.Errorf("prompt missing %q:\n%s", want, first)
		}
	}
	if strings.Contains(first, "Salary: $65000") {
		t.Error("income must not appear in the expense summary")
	}
}

func TestBuildAdvicePrompt_LimitsRecentExpenses(t *testing.T) {
	var txs []domain.Transaction
	for i := 0; i < 15; i++ {
		txs = append(txs, domain.Transaction{
			Category: fmt.Sprintf("Cat%02d", i),
			Amount:   100,
			Type:     domain.TypeExpense,
			Date:     time.Now(),
		})
	}

	prompt, err := BuildAdvicePrompt(nil, txs, nil)
	if err != nil {
		t.Fatalf("BuildAdvicePrompt failed: %v", err)
	}
	if !strings.Contains(prompt, "Cat09") {
		t.Error("expected the tenth expense in the prompt")
	}
	if strings.Contains(prompt, "Cat10") {
		t.Error("expenses beyond the limit must be dropped")
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		gen  *stubGenerator
		want string
	}{
		{name: "model answer", gen: &stubGenerator{response: " Food\n"}, want: "Food"},
		{name: "empty answer", gen: &stubGenerator{response: ""}, want: defaultCategory},
		{name: "model failure", gen: &stubGenerator{err: fmt.Errorf("down")}, want: defaultCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.gen, zerolog.Nop())
			if got := a.Categorize(context.Background(), "Lunch with colleagues"); got != tt.want {
				t.Errorf("Categorize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCategorize_NoGenerator(t *testing.T) {
	a := New(nil, zerolog.Nop())
	if got := a.Categorize(context.Background(), "anything"); got != defaultCategory {
		t.Errorf("Categorize() = %q, want %q", got, defaultCategory)
	}
}
