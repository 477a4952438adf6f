package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"detetive/internal/core"
)

func newSummaryCommand(env *environment) *cobra.Command {
	var email, at string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a user's budget summaries with the month-end projection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			when := env.now()
			if at != "" {
				d, err := core.ParseDate(at)
				if err != nil {
					return fmt.Errorf("invalid --at %q: want YYYY-MM-DD", at)
				}
				when = d.Time
			}

			a, err := env.open(ctx, false)
			if err != nil {
				return err
			}
			defer a.cleanup()

			u, err := a.userByEmail(ctx, email)
			if err != nil {
				return err
			}
			summaries, err := a.svc.Budgets.Summaries(ctx, u.ID, when)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintf(out, "%s has no active budgets\n", u.Email)
				return nil
			}

			fmt.Fprintf(out, "Budgets for %s on %s\n\n", u.Email, core.DateOf(when))
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "BUDGET\tWINDOW\tLIMIT\tSPENT\tUSED\tPROJECTED\tSTATUS")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s..%s\t%s\t%s\t%s%%\t%s\t%s\n",
					s.Name, s.WindowStart, s.WindowEnd,
					s.Amount.BRL(), s.Spent.BRL(),
					humanize.FtoaWithDigits(s.PercentUsed, 1),
					s.Projected.BRL(), s.Status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the user")
	cmd.Flags().StringVar(&at, "at", "", "reference date YYYY-MM-DD (default: today)")
	return cmd
}
