package googlesheets

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/sheets/v4"
)

const testSpreadsheetID = "test-id"

// fakeSheets is an in-memory stand-in for the subset of the Sheets v4 REST
// API the adaptor uses. Like the real API it trims trailing empty cells and
// rows from value reads.
type fakeSheets struct {
	mu     sync.Mutex
	titles []string
	ids    map[string]int64
	data   map[string][][]string
	calls  map[string]int
}

func newFakeSheets(t *testing.T) (*fakeSheets, *httptest.Server) {
	t.Helper()
	f := &fakeSheets{
		ids:   make(map[string]int64),
		data:  make(map[string][][]string),
		calls: make(map[string]int),
	}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeSheets) addSheet(title string, rows ...[]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addSheetLocked(title)
	f.data[title] = rows
}

func (f *fakeSheets) addSheetLocked(title string) {
	if _, ok := f.ids[title]; ok {
		return
	}
	f.ids[title] = int64(len(f.titles)) * 1000
	f.titles = append(f.titles, title)
	f.data[title] = nil
}

func (f *fakeSheets) rows(title string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.data[title]))
	for i, r := range f.data[title] {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (f *fakeSheets) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := "/v4/spreadsheets/" + testSpreadsheetID
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case rest == "" && r.Method == http.MethodGet:
		f.calls["spreadsheet"]++
		f.writeSpreadsheet(w)
	case rest == ":batchUpdate":
		f.calls["structure"]++
		var req sheets.BatchUpdateSpreadsheetRequest
		if !decode(w, r, &req) {
			return
		}
		f.applyStructure(w, &req)
	case rest == "/values:batchUpdate":
		f.calls["batchUpdate"]++
		var req sheets.BatchUpdateValuesRequest
		if !decode(w, r, &req) {
			return
		}
		for _, vr := range req.Data {
			title, rng := splitRange(vr.Range)
			col, row := parseCell(rng)
			for _, line := range vr.Values {
				for i, v := range line {
					f.setCell(title, row, col+i, fmt.Sprintf("%v", v))
				}
			}
		}
		writeJSON(w, map[string]interface{}{"spreadsheetId": testSpreadsheetID})
	case strings.HasPrefix(rest, "/values/"):
		f.serveValues(w, r, strings.TrimPrefix(rest, "/values/"))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSheets) serveValues(w http.ResponseWriter, r *http.Request, target string) {
	switch {
	case strings.HasSuffix(target, ":append"):
		f.calls["append"]++
		title, _ := splitRange(strings.TrimSuffix(target, ":append"))
		var vr sheets.ValueRange
		if !decode(w, r, &vr) {
			return
		}
		for _, line := range vr.Values {
			row := make([]string, len(line))
			for i, v := range line {
				row[i] = fmt.Sprintf("%v", v)
			}
			f.data[title] = append(f.data[title], row)
		}
		writeJSON(w, map[string]interface{}{"spreadsheetId": testSpreadsheetID})
	case strings.HasSuffix(target, ":clear"):
		f.calls["clear"]++
		title, _ := splitRange(strings.TrimSuffix(target, ":clear"))
		if len(f.data[title]) > 0 {
			f.data[title][0] = nil
		}
		writeJSON(w, map[string]interface{}{"spreadsheetId": testSpreadsheetID})
	case r.Method == http.MethodPut:
		f.calls["update"]++
		title, rng := splitRange(target)
		col, row := parseCell(rng)
		var vr sheets.ValueRange
		if !decode(w, r, &vr) {
			return
		}
		for i, line := range vr.Values {
			for j, v := range line {
				f.setCell(title, row+i, col+j, fmt.Sprintf("%v", v))
			}
		}
		writeJSON(w, map[string]interface{}{"spreadsheetId": testSpreadsheetID})
	case r.Method == http.MethodGet:
		f.calls["get"]++
		title, rng := splitRange(target)
		if _, ok := f.ids[title]; !ok {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(w, map[string]interface{}{"error": map[string]interface{}{"code": 400, "message": "Unable to parse range: " + target}})
			return
		}
		rows := f.data[title]
		if rng == "1:1" && len(rows) > 1 {
			rows = rows[:1]
		}
		writeJSON(w, map[string]interface{}{
			"range":          target,
			"majorDimension": "ROWS",
			"values":         trimRows(rows),
		})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSheets) writeSpreadsheet(w http.ResponseWriter) {
	list := make([]map[string]interface{}, 0, len(f.titles))
	for _, title := range f.titles {
		list = append(list, map[string]interface{}{
			"properties": map[string]interface{}{"sheetId": f.ids[title], "title": title},
		})
	}
	writeJSON(w, map[string]interface{}{"spreadsheetId": testSpreadsheetID, "sheets": list})
}

func (f *fakeSheets) applyStructure(w http.ResponseWriter, req *sheets.BatchUpdateSpreadsheetRequest) {
	for _, r := range req.Requests {
		switch {
		case r.AddSheet != nil:
			f.addSheetLocked(r.AddSheet.Properties.Title)
		case r.DeleteDimension != nil:
			rng := r.DeleteDimension.Range
			for title, id := range f.ids {
				if id != rng.SheetId {
					continue
				}
				rows := f.data[title]
				if int(rng.EndIndex) <= len(rows) {
					f.data[title] = append(rows[:rng.StartIndex], rows[rng.EndIndex:]...)
				}
			}
		}
	}
	writeJSON(w, map[string]interface{}{"spreadsheetId": testSpreadsheetID})
}

// setCell writes a value at 1-indexed row and 0-indexed col, growing the grid.
func (f *fakeSheets) setCell(title string, row, col int, value string) {
	rows := f.data[title]
	for len(rows) < row {
		rows = append(rows, nil)
	}
	line := rows[row-1]
	for len(line) <= col {
		line = append(line, "")
	}
	line[col] = value
	rows[row-1] = line
	f.data[title] = rows
}

func trimRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		end := len(r)
		for end > 0 && r[end-1] == "" {
			end--
		}
		out = append(out, r[:end])
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out
}

func splitRange(a1 string) (string, string) {
	i := strings.LastIndex(a1, "!")
	if i < 0 {
		return a1, ""
	}
	return strings.Trim(a1[:i], "'"), a1[i+1:]
}

// parseCell turns "C5" into column 2 and row 5.
func parseCell(cell string) (int, int) {
	col := 0
	i := 0
	for i < len(cell) && cell[i] >= 'A' && cell[i] <= 'Z' {
		col = col*26 + int(cell[i]-'A'+1)
		i++
	}
	row, _ := strconv.Atoi(cell[i:])
	return col - 1, row
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
