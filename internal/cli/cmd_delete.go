package cli

import (
	"fmt"

	sheetdb "github.com/ideamans/go-sheetdb"
	"github.com/spf13/cobra"
)

func newDeleteCmd(a *app) *cobra.Command {
	var hard bool
	cmd := &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Soft-delete a row",
		Long: `Mark a row as deleted. With --hard the row is removed from the backend.

Example:
  sheetdb delete tasks 5f0c...          # set is_deleted
  sheetdb delete tasks 5f0c... --hard   # remove the row`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(b *backend, s *sheetdb.Session) error {
				row, err := s.Get(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				ok, err := s.Delete(cmd.Context(), row, !hard)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: %s %s", sheetdb.ErrNotFound, args[0], args[1])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", row.Table(), row.ID())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&hard, "hard", false, "remove the row instead of marking it deleted")
	return cmd
}
