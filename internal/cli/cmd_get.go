package cli

import (
	"fmt"

	sheetdb "github.com/ideamans/go-sheetdb"
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Show one row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(b *backend, s *sheetdb.Session) error {
				row, err := s.Get(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if row == nil {
					return fmt.Errorf("%w: %s %s", sheetdb.ErrNotFound, args[0], args[1])
				}
				return a.printRow(cmd.OutOrStdout(), b.registry.ColumnsFor(row.Table()), row)
			})
		},
	}
}
