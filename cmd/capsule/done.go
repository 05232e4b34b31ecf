package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/aretw0/capsule/pkg/core"
)

var doneExpenses []string

var doneCmd = &cobra.Command{
	Use:   "done <id|#position>",
	Short: "Complete a record, optionally with an expense split",
	Long: `Mark a record as done. A Todo becomes a Schedule.
Each --expense category=amount with a positive amount is also stored as its
own record, and the amounts are summed onto the completed record.

  capsule done #3 --expense 餐饮=50 --expense 交通=12.5`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		items, err := parseExpenses(doneExpenses)
		if err != nil {
			fatal("Invalid expense", err)
		}

		v := openVault()
		defer v.Close()

		var c core.Completion
		if pos, ok, perr := parsePosition(args[0]); perr != nil {
			fatal("Invalid position", perr)
		} else if ok {
			c, err = v.Svc.CompleteAt(cmd.Context(), pos, items)
		} else {
			c, err = v.Svc.Complete(cmd.Context(), args[0], items)
		}
		if err != nil {
			if errors.Is(err, core.ErrNoSuchRecord) {
				fmt.Println("Tip: 'capsule list' shows record positions and IDs.")
			}
			fatal("Failed to complete record", err)
		}

		fmt.Printf("Done: [%s] %s\n", c.Record.Category, c.Record.Content)
		if c.Promoted {
			fmt.Println("  promoted Todo -> Schedule")
		}
		if c.Record.LinkedCost.IsPositive() {
			fmt.Printf("  cost: ¥%s\n", c.Record.LinkedCost)
		}
		for _, d := range c.Derived {
			fmt.Printf("  + %s ¥%s\n", d.Category, d.LinkedCost)
		}
	},
}

// parsePosition reads "#N". ok is false for anything else, which is then
// taken as a record ID.
func parsePosition(arg string) (pos int, ok bool, err error) {
	if !strings.HasPrefix(arg, "#") {
		return 0, false, nil
	}
	pos, err = strconv.Atoi(arg[1:])
	if err != nil {
		return 0, false, fmt.Errorf("%q is not a position", arg)
	}
	return pos, true, nil
}

// parseExpenses reads category=amount pairs. A bare amount is booked as
// Finance.
func parseExpenses(pairs []string) ([]core.ExpenseItem, error) {
	items := make([]core.ExpenseItem, 0, len(pairs))
	for _, pair := range pairs {
		category, amount := string(core.CategoryFinance), pair
		if k, val, found := strings.Cut(pair, "="); found {
			category, amount = strings.TrimSpace(k), val
		}
		if category == "" {
			return nil, fmt.Errorf("%q: empty category", pair)
		}
		d, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", pair, err)
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("%q: %w", pair, core.ErrInvalidExpense)
		}
		items = append(items, core.ExpenseItem{Amount: d, Category: core.Category(category)})
	}
	return items, nil
}

func init() {
	rootCmd.AddCommand(doneCmd)
	doneCmd.Flags().StringArrayVar(&doneExpenses, "expense", nil, "Expense item as category=amount (repeatable)")
}
