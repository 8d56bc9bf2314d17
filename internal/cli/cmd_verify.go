package cli

import (
	"fmt"

	sheetdb "github.com/ideamans/go-sheetdb"
	"github.com/spf13/cobra"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Create missing worksheets and repair header rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			if b.structure == nil {
				return fmt.Errorf("verify needs a sheet backend; use migrate for SQL databases")
			}

			report, err := sheetdb.VerifyStructure(cmd.Context(), b.registry, b.structure, a.logger)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(cmd.OutOrStdout(), report)
			}
			out := cmd.OutOrStdout()
			for _, t := range report.Created {
				fmt.Fprintf(out, "created  %s\n", t)
			}
			for _, t := range report.Repaired {
				fmt.Fprintf(out, "repaired %s\n", t)
			}
			for _, t := range report.OK {
				fmt.Fprintf(out, "ok       %s\n", t)
			}
			return nil
		},
	}
}
