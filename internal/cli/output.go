package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	sheetdb "github.com/ideamans/go-sheetdb"
)

func splitAssignment(arg string) (string, string, error) {
	field, value, ok := strings.Cut(arg, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return "", "", fmt.Errorf("expected field=value, got %q", arg)
	}
	return field, value, nil
}

func parseAssignments(args []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(args))
	for _, arg := range args {
		field, value, err := splitAssignment(arg)
		if err != nil {
			return nil, err
		}
		out[field] = value
	}
	return out, nil
}

func (a *app) printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printRows(w io.Writer, columns []string, rows []*sheetdb.RowProxy) error {
	if a.jsonOut {
		out := make([]map[string]interface{}, len(rows))
		for i, r := range rows {
			out[i] = r.ToMap()
		}
		return a.printJSON(w, out)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, r := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = r.String(col)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func (a *app) printRow(w io.Writer, columns []string, row *sheetdb.RowProxy) error {
	if a.jsonOut {
		return a.printJSON(w, row.ToMap())
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, col := range columns {
		fmt.Fprintf(tw, "%s\t%s\n", col, row.String(col))
	}
	return tw.Flush()
}
