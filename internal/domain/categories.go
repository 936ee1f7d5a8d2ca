package domain

// Category taxonomy used by forms and by the AI categorizer fallback.
var (
	IncomeCategories  = []string{"Salary", "Investment", "Bonus", "Other"}
	ExpenseCategories = []string{"Food", "Transport", "Housing", "Entertainment", "Utilities", "Shopping", "Health"}
)

// CategoriesFor returns the category list for a transaction type, or nil
// for types without a taxonomy.
func CategoriesFor(txType TransactionType) []string {
	switch txType {
	case TypeIncome:
		return IncomeCategories
	case TypeExpense:
		return ExpenseCategories
	default:
		return nil
	}
}
