package cli

import (
	"io"
	"strconv"

	"bank-ledger/pkg/ledger"
	"bank-ledger/pkg/teller"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// WriteReport renders accounts as a table with a total balance footer.
func WriteReport(w io.Writer, accounts []teller.AccountSummary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Account", "Kind", "Balance", "Last Transaction", "Transactions", "Fees Applied"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
	})

	total := decimal.Zero
	for _, a := range accounts {
		last := "-"
		if !a.LastTransactionDate.IsZero() {
			last = a.LastTransactionDate.String()
		}
		fees := "no"
		if a.FeesApplied {
			fees = "yes"
		}

		table.Append([]string{
			strconv.Itoa(a.ID),
			a.Kind.Title(),
			ledger.FormatMoney(a.Balance),
			last,
			strconv.Itoa(a.Transactions),
			fees,
		})
		total = total.Add(a.Balance)
	}

	table.SetFooter([]string{"", "Total", ledger.FormatMoney(total), "", strconv.Itoa(len(accounts)), ""})
	table.Render()
}
