// Package cli implements the numbered text menu over a teller.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bank-ledger/pkg/ledger"
	"bank-ledger/pkg/logging"
	"bank-ledger/pkg/storage"
	"bank-ledger/pkg/teller"

	"go.uber.org/zap"
)

const menuText = `--------------------------------
Currently selected account: %s
Enter command
1: open account
2: summary
3: select account
4: list transactions
5: add transaction
6: interest and fees
7: save
8: load
9: quit
`

// Menu reads commands from in and writes responses to out until the user
// quits or input ends.
type Menu struct {
	teller   *teller.Teller
	in       *bufio.Scanner
	out      io.Writer
	logger   *logging.Logger
	selected int
	choices  map[string]func(context.Context) bool
}

// NewMenu returns a menu driving t.
func NewMenu(t *teller.Teller, in io.Reader, out io.Writer) *Menu {
	m := &Menu{
		teller: t,
		in:     bufio.NewScanner(in),
		out:    out,
		logger: logging.Global().Named("cli"),
	}
	m.choices = map[string]func(context.Context) bool{
		"1": m.openAccount,
		"2": m.summary,
		"3": m.selectAccount,
		"4": m.listTransactions,
		"5": m.addTransaction,
		"6": m.interestAndFees,
		"7": m.save,
		"8": m.load,
		"9": m.quit,
	}
	return m
}

// Run shows the menu and dispatches choices. It returns nil when the user
// quits or input is exhausted.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintf(m.out, menuText, m.selectedDisplay())
		choice, ok := m.prompt(">")
		if !ok {
			return m.in.Err()
		}

		action, found := m.choices[choice]
		if !found {
			fmt.Fprintf(m.out, "%s is not a valid choice\n", choice)
			continue
		}
		if !action(ctx) {
			return m.in.Err()
		}
	}
}

// Selected returns the selected account id, or 0 when none is selected.
func (m *Menu) Selected() int {
	return m.selected
}

func (m *Menu) selectedDisplay() string {
	if m.selected == 0 {
		return "None"
	}
	s, err := m.teller.Account(m.selected)
	if err != nil {
		m.selected = 0
		return "None"
	}
	return s.Display
}

// prompt writes p and reads one trimmed line. It reports false at end of input.
func (m *Menu) prompt(p string) (string, bool) {
	fmt.Fprint(m.out, p)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

// requireSelection prints a hint and reports false when no account is selected.
func (m *Menu) requireSelection() bool {
	if m.selected == 0 {
		fmt.Fprintln(m.out, "Please select an account first.")
		return false
	}
	return true
}

func (m *Menu) openAccount(ctx context.Context) bool {
	kind, ok := m.prompt("Type of account? (checking/savings)\n>")
	if !ok {
		return false
	}
	amount, ok := m.prompt("Initial deposit amount?\n>")
	if !ok {
		return false
	}

	s, err := m.teller.OpenAccount(ctx, kind, amount, "")
	if err != nil {
		m.report(err)
		return true
	}
	fmt.Fprintf(m.out, "Opened %s\n", s.Display)
	return true
}

func (m *Menu) summary(context.Context) bool {
	for _, s := range m.teller.Accounts() {
		fmt.Fprintln(m.out, s.Display)
	}
	return true
}

func (m *Menu) selectAccount(context.Context) bool {
	raw, ok := m.prompt("Enter account number\n>")
	if !ok {
		return false
	}

	// A failed selection leaves nothing selected.
	m.selected = 0

	id, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Fprintf(m.out, "%q is not an account number.\n", raw)
		return true
	}
	if _, err := m.teller.Account(id); err != nil {
		m.report(err)
		return true
	}
	m.selected = id
	return true
}

func (m *Menu) listTransactions(context.Context) bool {
	if !m.requireSelection() {
		return true
	}

	txs, err := m.teller.Transactions(m.selected)
	if err != nil {
		m.report(err)
		return true
	}
	for _, t := range txs {
		fmt.Fprintln(m.out, t)
	}
	return true
}

func (m *Menu) addTransaction(ctx context.Context) bool {
	if !m.requireSelection() {
		return true
	}

	amount, ok := m.prompt("Amount?\n>")
	if !ok {
		return false
	}
	date, ok := m.prompt("Date? (YYYY-MM-DD)\n>")
	if !ok {
		return false
	}

	if _, err := m.teller.Post(ctx, m.selected, amount, date); err != nil {
		m.report(err)
	}
	return true
}

func (m *Menu) interestAndFees(ctx context.Context) bool {
	if !m.requireSelection() {
		return true
	}

	accrual, _, err := m.teller.Accrue(ctx, m.selected)
	if err != nil {
		var seq *ledger.TransactionSequenceError
		if errors.As(err, &seq) {
			fmt.Fprintf(m.out, "Cannot apply interest and fees again in the month of %s.\n",
				seq.AsOf.Time().Format("January 2006"))
			return true
		}
		m.report(err)
		return true
	}

	fmt.Fprintf(m.out, "Interest: %s\n", accrual.Interest)
	if accrual.FeeCharged {
		fmt.Fprintf(m.out, "Fee: %s\n", accrual.Fee)
	}
	return true
}

func (m *Menu) save(ctx context.Context) bool {
	meta, err := m.teller.Save(ctx)
	if err != nil {
		m.report(err)
		return true
	}
	fmt.Fprintf(m.out, "Saved snapshot %s to %s.\n", meta.SnapshotID, meta.Storage)
	return true
}

func (m *Menu) load(ctx context.Context) bool {
	meta, err := m.teller.Load(ctx)
	if err != nil {
		m.report(err)
		return true
	}
	if m.selected != 0 {
		if _, err := m.teller.Account(m.selected); err != nil {
			m.selected = 0
		}
	}
	fmt.Fprintf(m.out, "Loaded snapshot %s.\n", meta.SnapshotID)
	return true
}

func (m *Menu) quit(context.Context) bool {
	return false
}

// report prints a user-facing explanation of err.
func (m *Menu) report(err error) {
	fmt.Fprintln(m.out, Describe(err))
	if ledger.ClassifyError(err) == "other" && !knownShellError(err) {
		m.logger.Error("menu operation failed", zap.Error(err))
	}
}

func knownShellError(err error) bool {
	return errors.Is(err, teller.ErrAccountNotFound) ||
		errors.Is(err, teller.ErrNoStore) ||
		storage.IsNotFound(err)
}

// Describe translates ledger, teller and storage errors into menu messages.
func Describe(err error) string {
	var limit *ledger.TransactionLimitError
	var seq *ledger.TransactionSequenceError

	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "Please try again with a valid dollar amount."
	case errors.Is(err, ledger.ErrInvalidDate):
		return "Please try again with a valid date in the format YYYY-MM-DD."
	case errors.Is(err, ledger.ErrUnknownAccountKind):
		return "Please choose checking or savings."
	case ledger.IsOverdraw(err):
		return "This transaction could not be completed due to an insufficient balance."
	case errors.As(err, &limit):
		return fmt.Sprintf("This transaction could not be completed because the account is limited to %d transactions per %s.",
			limit.Limit, limit.Period)
	case errors.As(err, &seq):
		return fmt.Sprintf("New transactions must be from %s onward.", seq.AsOf)
	case errors.Is(err, teller.ErrAccountNotFound):
		return "That account does not exist."
	case errors.Is(err, teller.ErrNoStore):
		return "Saving and loading are not configured."
	case storage.IsNotFound(err):
		return "No saved ledger was found."
	case errors.Is(err, storage.ErrUnsupportedVersion):
		return "The saved ledger was written by an incompatible version."
	case storage.IsCircuitOpen(err), storage.IsTimeout(err):
		return "Storage is unavailable right now. Please try again later."
	default:
		return fmt.Sprintf("Something went wrong: %v", err)
	}
}
