package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	xlsReader "github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Load reads a dataset from disk, choosing the decoder by file extension.
// Supported extensions are .csv, .xlsx and .xls.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %v", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FromCSV(f, name)
	case ".xlsx":
		return FromXLSX(f, name)
	case ".xls":
		return FromXLS(f, name)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

// FromCSV parses a CSV stream into a dataset. The first record is the header.
func FromCSV(r io.Reader, name string) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	grid, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %v", err)
	}
	if len(grid) > 0 && len(grid[0]) > 0 {
		grid[0][0] = strings.TrimPrefix(grid[0][0], "\uFEFF")
	}
	return build(name, grid)
}

// FromXLSX parses an Excel workbook, reading the first sheet.
func FromXLSX(r io.Reader, name string) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %v", sheets[0], err)
	}
	return build(name, grid)
}

// FromXLS parses a legacy BIFF workbook, reading the first sheet.
func FromXLS(r io.ReadSeeker, name string) (*Dataset, error) {
	workbook, err := xlsReader.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy workbook: %v", err)
	}
	if workbook.GetNumberSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %v", err)
	}

	var grid [][]string
	for i := 0; i <= sheet.GetNumberRows(); i++ {
		row, err := sheet.GetRow(i)
		if err != nil {
			continue
		}
		cols := row.GetCols()
		cells := make([]string, len(cols))
		hasData := false
		for c, cell := range cols {
			cells[c] = toUTF8(cell.GetString())
			if !hasData && strings.TrimSpace(cells[c]) != "" {
				hasData = true
			}
		}
		if !hasData {
			continue
		}
		grid = append(grid, cells)
	}
	return build(name, grid)
}

// toUTF8 repairs cell text from legacy workbooks that predate Unicode.
func toUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	decoded, err := charmap.Windows1252.NewDecoder().String(s)
	if err != nil {
		return strings.ToValidUTF8(s, "�")
	}
	return decoded
}

// build turns a raw string grid into a typed dataset. Row 0 is the header;
// short rows are padded with blanks so every column has the same length.
func build(name string, grid [][]string) (*Dataset, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("file has no header row")
	}
	maxCols := 0
	for _, row := range grid {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	if maxCols == 0 {
		return nil, fmt.Errorf("file has no columns")
	}
	for i, row := range grid {
		if len(row) < maxCols {
			padded := make([]string, maxCols)
			copy(padded, row)
			grid[i] = padded
		}
	}

	header := normalizeHeader(grid[0][:maxCols])
	records := grid[1:]

	cols := make([]*Column, maxCols)
	for j := 0; j < maxCols; j++ {
		cells := make([]string, len(records))
		for i, row := range records {
			cells[i] = strings.TrimSpace(row[j])
		}
		cols[j] = inferColumn(header[j], cells)
	}
	return New(name, cols)
}

// normalizeHeader fills in blank header cells and disambiguates duplicates,
// so "a, a, a" becomes "a, a.1, a.2".
func normalizeHeader(raw []string) []string {
	names := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))
	for j, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", j)
		}
		if seen[name] {
			for k := 1; ; k++ {
				candidate := fmt.Sprintf("%s.%d", name, k)
				if !seen[candidate] {
					name = candidate
					break
				}
			}
		}
		seen[name] = true
		names[j] = name
	}
	return names
}

var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"#n/a": true,
	"nan":  true,
	"null": true,
	"none": true,
}

func isMissingToken(v string) bool {
	return missingTokens[strings.ToLower(v)]
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

var timeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

// candidateLayout returns the first layout that parses every non-missing cell.
func candidateLayout(cells []string, missing []bool) (string, bool) {
	for _, layout := range timeLayouts {
		ok := true
		for i, v := range cells {
			if missing[i] {
				continue
			}
			if _, err := time.Parse(layout, v); err != nil {
				ok = false
				break
			}
		}
		if ok {
			return layout, true
		}
	}
	return "", false
}

// inferColumn scans the whole column and picks the narrowest type that fits
// every non-missing cell. Integer columns with missing cells are stored as
// floats, the way most dataframe libraries promote them.
func inferColumn(name string, cells []string) *Column {
	n := len(cells)
	missing := make([]bool, n)
	allInt, allFloat, allBool := true, true, true
	seen, hasMissing := false, false

	for i, v := range cells {
		if isMissingToken(v) {
			missing[i] = true
			hasMissing = true
			continue
		}
		seen = true
		if allBool {
			if _, ok := parseBool(v); !ok {
				allBool = false
			}
		}
		if allInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				allFloat = false
			}
		}
	}

	col := &Column{Name: name, Missing: missing}
	switch {
	case !seen:
		col.Type = Text
		col.Strs = make([]string, n)
	case allBool:
		col.Type = Boolean
		col.Bools = make([]bool, n)
		for i, v := range cells {
			if !missing[i] {
				b, _ := parseBool(v)
				col.Bools[i] = b
			}
		}
	case allInt || allFloat:
		col.Type = Numeric
		col.Integer = allInt && !hasMissing
		col.Floats = make([]float64, n)
		for i, v := range cells {
			if !missing[i] {
				f, _ := strconv.ParseFloat(v, 64)
				col.Floats[i] = f
			}
		}
	default:
		if layout, ok := candidateLayout(cells, missing); ok {
			col.Type = Temporal
			col.TimeLayout = layout
			col.Times = make([]time.Time, n)
			for i, v := range cells {
				if !missing[i] {
					t, _ := time.Parse(layout, v)
					col.Times[i] = t
				}
			}
		} else {
			col.Type = Text
			col.Strs = make([]string, n)
			copy(col.Strs, cells)
		}
	}
	return col
}
