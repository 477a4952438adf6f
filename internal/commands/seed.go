package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"detetive/internal/seed"
)

func newSeedCommand(env *environment) *cobra.Command {
	var opts seed.Options

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create fake households with accounts, cards, transactions and budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			a, err := env.open(ctx, false)
			if err != nil {
				return err
			}
			defer a.cleanup()

			if env.cfg.Uses("memory") {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: some domains use the memory backend; their data is gone when this command exits")
			}

			rep, err := seed.NewGenerator(a.svc, opts).Run(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seeded %d users: %d accounts, %d categories, %d cards, %d transactions, %d budgets\n",
				len(rep.Emails), rep.Accounts, rep.Categories, rep.Cards, rep.Transactions, rep.Budgets)
			fmt.Fprintf(out, "Log in with password %q as:\n  %s\n", passwordOrDefault(opts.Password), strings.Join(rep.Emails, "\n  "))
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.Users, "users", 3, "number of users to create")
	f.IntVar(&opts.Months, "months", 3, "months of history per user")
	f.IntVar(&opts.TransactionsPerMonth, "per-month", 20, "expenses per user per month")
	f.Int64Var(&opts.Seed, "seed", 0, "random seed for reproducible data (0 = random)")
	f.StringVar(&opts.Password, "password", "", "password for every seeded user")
	return cmd
}

func passwordOrDefault(pw string) string {
	if pw == "" {
		return "detetive123"
	}
	return pw
}
