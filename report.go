package bdgt

import (
	"time"

	"github.com/etnz/bdgt/interval"
	"github.com/etnz/bdgt/store"

	"github.com/shopspring/decimal"
)

// CategoryTotal is one report line: the sum of transaction amounts recorded
// against a category over the report window. For outcome categories Limit
// carries the sum of the category's plan limits, zero when no plan is set.
type CategoryTotal struct {
	Category store.Category
	Total    decimal.Decimal
	Limit    decimal.Decimal
}

// Overrun reports whether spending exceeded the planned limit. It is always
// false without a plan.
func (c CategoryTotal) Overrun() bool {
	return c.Limit.IsPositive() && c.Total.Neg().GreaterThan(c.Limit)
}

// Report summarizes budget activity over a half-open time window: per
// category totals split by type, the transfer volume, and the grand totals.
type Report struct {
	Window interval.Window

	Income  []CategoryTotal
	Outcome []CategoryTotal
	// Transferred is the volume moved between own accounts, counted once
	// per transfer (the positive legs).
	Transferred decimal.Decimal

	TotalIncome  decimal.Decimal
	TotalOutcome decimal.Decimal
}

// Balance is the window's net result, income plus outcome.
func (r Report) Balance() decimal.Decimal { return r.TotalIncome.Add(r.TotalOutcome) }

// Report computes activity totals over the window designated by month and
// year, resolved the same way the command line resolves them: zero month
// means the whole year, relative values count from today.
func (b *Budget) Report(month, year int) (Report, error) {
	w, err := interval.Resolve(month, year)
	if err != nil {
		return Report{}, err
	}
	return b.ReportWindow(w)
}

// ReportWindow computes activity totals over an explicit window.
func (b *Budget) ReportWindow(w interval.Window) (Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := Report{Window: w}
	err := b.store.View(func(tx *store.Tx) error {
		categories, err := tx.Categories(false)
		if err != nil {
			return err
		}
		txs, err := tx.Transactions(store.TransactionQuery{From: w.Start, To: w.End})
		if err != nil {
			return err
		}

		totals := make(map[store.ID]decimal.Decimal, len(categories))
		for _, x := range txs {
			if x.IsTransfer() {
				if x.Amount.IsPositive() {
					r.Transferred = r.Transferred.Add(x.Amount)
				}
				continue
			}
			totals[x.CategoryID] = totals[x.CategoryID].Add(x.Amount)
		}

		for _, c := range categories {
			line := CategoryTotal{Category: c, Total: totals[c.ID]}
			switch c.Type {
			case store.Income:
				r.Income = append(r.Income, line)
				r.TotalIncome = r.TotalIncome.Add(line.Total)
			case store.Outcome:
				plans, err := tx.PlansOf(c.ID)
				if err != nil {
					return err
				}
				for _, p := range plans {
					line.Limit = line.Limit.Add(p.Limit)
				}
				r.Outcome = append(r.Outcome, line)
				r.TotalOutcome = r.TotalOutcome.Add(line.Total)
			}
		}
		return nil
	})
	return r, err
}

// MonthToDate is a convenience for the current month's report.
func (b *Budget) MonthToDate() (Report, error) {
	now := time.Now()
	return b.Report(int(now.Month()), now.Year())
}
