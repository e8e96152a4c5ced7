package renderer

import (
	"github.com/etnz/bdgt/store"
)

// AccountsMarkdown renders the accounts table.
func AccountsMarkdown(accounts []store.Account, currency string) string {
	b := &builder{currency: currency}
	b.Printf("## Accounts\n\n")
	if len(accounts) == 0 {
		b.Printf("No accounts yet.\n")
		return b.String()
	}
	b.Printf("| Account | Opening | Balance |\n")
	b.Printf("|:---|---:|---:|\n")
	for _, a := range accounts {
		b.Printf("| %s | %s | %s |\n", a.Name, b.amount(a.Initial), b.amount(a.Balance))
	}
	return b.String()
}

// CategoriesMarkdown renders the categories table.
func CategoriesMarkdown(categories []store.Category) string {
	b := &builder{}
	b.Printf("## Categories\n\n")
	if len(categories) == 0 {
		b.Printf("No categories yet.\n")
		return b.String()
	}
	b.Printf("| Category | Type |\n")
	b.Printf("|:---|:---|\n")
	for _, c := range categories {
		b.Printf("| %s | %s |\n", c.Name, c.Type)
	}
	return b.String()
}

// PlansMarkdown renders the plans table. Category names are resolved from
// the given categories.
func PlansMarkdown(plans []store.Plan, categories []store.Category, currency string) string {
	names := categoryNames(categories)
	b := &builder{currency: currency}
	b.Printf("## Plans\n\n")
	if len(plans) == 0 {
		b.Printf("No plans yet.\n")
		return b.String()
	}
	b.Printf("| Plan | Category | Limit |\n")
	b.Printf("|:---|:---|---:|\n")
	for _, p := range plans {
		b.Printf("| %s | %s | %s |\n", p.Name, names[p.CategoryID], b.amount(p.Limit))
	}
	return b.String()
}

// TransactionsMarkdown renders the transactions table in chronological
// order. Transfer legs show "transfer" in place of a category.
func TransactionsMarkdown(txs []store.Transaction, accounts []store.Account, categories []store.Category, currency string) string {
	accountNames := make(map[store.ID]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}
	names := categoryNames(categories)

	b := &builder{currency: currency}
	b.Printf("## Transactions\n\n")
	if len(txs) == 0 {
		b.Printf("No transactions in this window.\n")
		return b.String()
	}
	b.Printf("| Date | Description | Account | Category | Amount | Id |\n")
	b.Printf("|:---|:---|:---|:---|---:|:---|\n")
	for _, x := range txs {
		category := names[x.CategoryID]
		if x.IsTransfer() {
			category = "transfer"
		}
		b.Printf("| %s | %s | %s | %s | %s | %s |\n",
			x.Timestamp.Format("2006-01-02"), x.Description, accountNames[x.AccountID], category, b.signedAmount(x.Amount), x.ID)
	}
	return b.String()
}

func categoryNames(categories []store.Category) map[store.ID]string {
	names := make(map[store.ID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names
}
