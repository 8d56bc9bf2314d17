package cli

import (
	"fmt"

	sheetdb "github.com/ideamans/go-sheetdb"
	"github.com/spf13/cobra"
)

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <table> field=value...",
		Short: "Insert a row",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			return a.withSession(cmd.Context(), func(b *backend, s *sheetdb.Session) error {
				row, err := s.Add(cmd.Context(), args[0], data)
				if err != nil {
					return err
				}
				table := b.registry.ResolveTable(args[0])
				id := row[b.registry.IdentityFor(table)]
				if a.jsonOut {
					return a.printJSON(cmd.OutOrStdout(), row)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%v\n", id)
				return nil
			})
		},
	}
}
