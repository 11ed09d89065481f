package core

// cells.go converts raw cell values from any format adapter into strings.
//
// CSV cells are always strings, but spreadsheet cells arrive typed: numbers,
// booleans, timestamps or nil for blank cells. Everything is funnelled through
// CellString so the coercer only ever sees trimmed text.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// CellString renders a raw cell value as trimmed text.
// nil becomes "", integral floats drop their fraction ("5551234" not "5551234.0").
func CellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(c)
	case []byte:
		return strings.TrimSpace(string(c))
	case float64:
		return formatFloat(c)
	case float32:
		return formatFloat(float64(c))
	case int:
		return strconv.Itoa(c)
	case int64:
		return strconv.FormatInt(c, 10)
	case bool:
		return strconv.FormatBool(c)
	case time.Time:
		return c.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return strings.TrimSpace(c.String())
	default:
		return strings.TrimSpace(fmt.Sprint(c))
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// cellAt returns the text of row[idx], or "" when the column is absent or
// the row is shorter than the header.
func cellAt(row []any, idx int, ok bool) string {
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return CellString(row[idx])
}

// CleanCell removes common spreadsheet artifacts from a header value:
//   - Trims whitespace
//   - Removes Excel formula prefix (="...")
//   - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// StringRow converts a row of strings to the typed-cell form used by Sheet.
func StringRow(cells []string) []any {
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
