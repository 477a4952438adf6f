package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newTokenCommand(env *environment) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user, for local API testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			a, err := env.open(ctx, true)
			if err != nil {
				return err
			}
			defer a.cleanup()

			u, err := a.userByEmail(ctx, email)
			if err != nil {
				return err
			}
			token, exp, err := a.tokens.Issue(u.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "user %s, expires %s\n", u.ID, exp.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the user")
	return cmd
}
