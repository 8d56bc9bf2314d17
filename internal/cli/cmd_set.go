package cli

import (
	"fmt"
	"strings"

	sheetdb "github.com/ideamans/go-sheetdb"
	"github.com/spf13/cobra"
)

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <table> <id> field=value...",
		Short: "Change fields of one row",
		Long: `Change fields of one row. Only the named fields and updated_at are written.

Example:
  sheetdb set tasks 5f0c... status=done assigned_to=u-17`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseAssignments(args[2:]); err != nil {
				return err
			}
			return a.withSession(cmd.Context(), func(b *backend, s *sheetdb.Session) error {
				row, err := s.Get(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if row == nil {
					return fmt.Errorf("%w: %s %s", sheetdb.ErrNotFound, args[0], args[1])
				}
				for _, arg := range args[2:] {
					field, value, _ := splitAssignment(arg)
					if err := row.Set(field, value); err != nil {
						return err
					}
				}
				fields := row.DirtyFields()
				if _, err := s.Commit(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %s %s: %s\n", row.Table(), row.ID(), strings.Join(fields, ", "))
				return nil
			})
		},
	}
}
