package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"detetive/internal/config"
)

func newFlagsCommand(env *environment) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Show the backend serving each data domain",
		Long: "Show the backend resolved for each data domain from DATA_BACKEND_<DOMAIN>,\n" +
			"FEATURE_FLAGS_FILE and DATA_BACKEND. With --write the selection is saved\n" +
			"as a flags file usable as FEATURE_FLAGS_FILE.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := env.cfg.Validate(); err != nil {
				return err
			}
			if out != "" {
				if err := config.SaveFlagsFile(out, env.cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DOMAIN\tBACKEND")
			for _, d := range config.Domains {
				fmt.Fprintf(tw, "%s\t%s\n", d, env.cfg.BackendFor(d))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&out, "write", "", "save the selection to this flags file")
	return cmd
}
