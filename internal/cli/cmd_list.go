package cli

import (
	sheetdb "github.com/ideamans/go-sheetdb"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var (
		where          []string
		includeDeleted bool
		limit          int
	)
	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "List the rows of a table",
		Long: `List the rows of a table or model.

Example:
  sheetdb list tasks --where status=pending --where priority=1
  sheetdb list FilingTask --include-deleted --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseAssignments(where)
			if err != nil {
				return err
			}
			return a.withSession(cmd.Context(), func(b *backend, s *sheetdb.Session) error {
				q, err := s.Query(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !includeDeleted {
					q = q.Active()
				}
				q = q.Filter(filters).Limit(limit)
				return a.printRows(cmd.OutOrStdout(), b.registry.ColumnsFor(q.Table()), q.All())
			})
		},
	}
	cmd.Flags().StringArrayVar(&where, "where", nil, "field=value filter, repeatable")
	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "include soft-deleted rows")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows")
	return cmd
}
