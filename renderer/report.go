package renderer

import (
	"github.com/etnz/bdgt"
)

// ReportMarkdown renders a full activity report: income and outcome tables,
// plan usage, and the window's net result.
func ReportMarkdown(r bdgt.Report, currency string) string {
	b := &builder{currency: currency}
	b.Printf("# Report %s to %s\n\n",
		r.Window.Start.Format("2006-01-02"), r.Window.End.AddDate(0, 0, -1).Format("2006-01-02"))

	if len(r.Income) > 0 {
		b.Printf("## Income\n\n")
		b.Printf("| Category | Total |\n")
		b.Printf("|:---|---:|\n")
		for _, line := range r.Income {
			b.Printf("| %s | %s |\n", line.Category.Name, b.amount(line.Total))
		}
		b.Printf("| **Total** | **%s** |\n\n", b.amount(r.TotalIncome))
	}

	if len(r.Outcome) > 0 {
		b.Printf("## Outcome\n\n")
		b.Printf("| Category | Total | Planned | |\n")
		b.Printf("|:---|---:|---:|:---|\n")
		for _, line := range r.Outcome {
			planned, note := "-", ""
			if line.Limit.IsPositive() {
				planned = b.amount(line.Limit)
				if line.Overrun() {
					note = "over plan"
				}
			}
			b.Printf("| %s | %s | %s | %s |\n", line.Category.Name, b.amount(line.Total.Neg()), planned, note)
		}
		b.Printf("| **Total** | **%s** | | |\n\n", b.amount(r.TotalOutcome.Neg()))
	}

	if !r.Transferred.IsZero() {
		b.Printf("Transferred between accounts: %s\n\n", b.amount(r.Transferred))
	}
	b.Printf("**Net result: %s**\n", b.signedAmount(r.Balance()))
	return b.String()
}
