// budgetctl is a local CLI for the budget store: create months, import
// bank statements, and print summaries without running the server.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"budget/internal/cli"
	"budget/internal/core"
	"budget/internal/services"
)

type app struct {
	budget  *services.BudgetService
	imports *services.ImportService
	cleanup func() error
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Manage monthly budgets from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := cli.LoadAndValidateConfig(logger)
			backend := cli.OpenStores(logger, cfg)
			a.budget = services.NewBudgetService(backend.Stores, nil)
			a.imports = services.NewImportService(backend.Stores, nil)
			a.cleanup = backend.Cleanup
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.cleanup != nil {
				a.cleanup()
			}
		},
	}

	rootCmd.AddCommand(
		newMonthCmd(a),
		importCmd(a),
		summaryCmd(a),
		monthsCmd(a),
		overviewCmd(a),
	)

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newMonthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "newmonth <YYYY-MM> <income>",
		Short: "Start a new monthly budget with the configured categories",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := core.ParseDecimalToCents(args[1])
			if err != nil {
				return fmt.Errorf("invalid income %q: %w", args[1], err)
			}

			ledger, err := a.budget.CreateMonth(cmd.Context(), args[0], core.Money{Cents: cents})
			if err != nil {
				return err
			}

			color.Green("Created budget for %s (income %s)", ledger.Key, ledger.Plan.TotalIncome)
			printSummary(core.Summarize(ledger))
			return nil
		},
	}
}

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <YYYY-MM> <statement.csv>",
		Short: "Import a bank statement CSV into a month",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := a.imports.ImportStatement(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}

			fmt.Printf("Processed %d transactions\n", result.Total)
			color.Green("  imported:   %d", result.Imported)
			color.Yellow("  duplicates: %d", result.Duplicates)
			if result.Unresolved > 0 {
				color.Red("  unresolved: %d", result.Unresolved)
				for _, tx := range result.UnresolvedTransactions {
					fmt.Printf("    %-40s %10s  %s\n", tx.Description, tx.Amount, tx.Date)
				}
				fmt.Println("Resolve these via the API or add matching rules.")
			}
			return nil
		},
	}
}

func summaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <YYYY-MM>",
		Short: "Print a month's budget summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := a.budget.MonthSummary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSummary(summary)
			return nil
		},
	}
}

func monthsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "months",
		Short: "List tracked months",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := a.budget.ListMonths(cmd.Context())
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Println("No months tracked yet.")
				return nil
			}
			for _, key := range keys {
				fmt.Println(key)
			}
			return nil
		},
	}
}

func overviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Print income totals across all tracked months",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overview, err := a.budget.Overview(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Months tracked: %d\n", overview.MonthsTracked)
			fmt.Printf("Total income:   %s\n", overview.TotalIncome)
			fmt.Printf("Average income: %s\n", overview.AverageIncome)
			return nil
		},
	}
}

func printSummary(s core.MonthSummary) {
	bold := color.New(color.Bold)
	bold.Printf("%s  income %s  spent %s  remaining %s\n",
		s.Key, s.TotalIncome, s.TotalSpent, s.TotalRemaining)

	for _, row := range s.Categories {
		line := fmt.Sprintf("  %-20s %5.1f%%  allocated %10s  spent %10s  remaining %10s",
			row.Name, row.Percentage, row.Allocated, row.Spent, row.Remaining)
		if row.Remaining.Cents < 0 {
			color.Red(line)
		} else {
			fmt.Println(line)
		}
	}
	fmt.Printf("  %d expenses recorded\n", s.ExpenseCount)
}
