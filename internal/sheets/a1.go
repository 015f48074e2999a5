package sheets

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const alphabetSize = 26

// ColumnLabel converts a 1-based column number to its spreadsheet letter
// label: 1 -> "A", 26 -> "Z", 27 -> "AA". This is bijective base-26, not a
// positional numeral system — there is no digit for zero, so column 26 is
// "Z" rather than a two-letter label.
func ColumnLabel(n int) string {
	var b []byte

	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%alphabetSize)}, b...)
		n /= alphabetSize
	}

	return string(b)
}

// ColumnIndex is the inverse of ColumnLabel: "A" -> 1, "Z" -> 26, "AA" -> 27.
// Returns 0 for an empty or malformed label.
func ColumnIndex(label string) int {
	n := 0

	for i := 0; i < len(label); i++ {
		c := label[i]
		if c < 'A' || c > 'Z' {
			return 0
		}

		n = n*alphabetSize + int(c-'A'+1)
	}

	return n
}

// RangeForRow returns the A1 cell range spanning column A through the last
// configured column, both endpoints on the given 1-based row:
// RangeForRow(7, 5) -> "A7:E7".
func RangeForRow(row, columnCount int) string {
	return fmt.Sprintf("A%d:%s%d", row, ColumnLabel(columnCount), row)
}

// RangeSpan returns the A1 range covering rows first through last across
// column A to the last configured column: RangeSpan(2, 4, 5) -> "A2:E4".
func RangeSpan(first, last, columnCount int) string {
	return fmt.Sprintf("A%d:%s%d", first, ColumnLabel(columnCount), last)
}

// DataRange returns the open-ended A1 range covering all data rows (row 2
// onward) across the configured columns: DataRange(5) -> "A2:E".
func DataRange(columnCount int) string {
	return "A2:" + ColumnLabel(columnCount)
}

// rangeRowPattern matches the row number of the first cell in an A1 range
// reference, with or without a sheet qualifier: "'Leads'!A7:E7" -> 7.
var rangeRowPattern = regexp.MustCompile(`(?:^|!)[A-Z]+([0-9]+)`)

// RowFromRange parses the row number out of a range reference as returned
// by the append endpoint's updatedRange field. The response format is an
// external contract with the sink; parse failures are surfaced so the
// caller can leave its index un-updated rather than record a bogus row.
func RowFromRange(ref string) (int, error) {
	m := rangeRowPattern.FindStringSubmatch(ref)
	if m == nil {
		return 0, fmt.Errorf("sheets: no row number in range %q", ref)
	}

	row, err := strconv.Atoi(m[1])
	if err != nil || row < 1 {
		return 0, fmt.Errorf("sheets: invalid row number in range %q", ref)
	}

	return row, nil
}

// qualifyRange prefixes a cell range with the sheet name, quoting the name
// when it contains characters the A1 grammar requires quoting for.
func qualifyRange(sheetName, cells string) string {
	if strings.ContainsAny(sheetName, " '!") {
		return "'" + strings.ReplaceAll(sheetName, "'", "''") + "'!" + cells
	}

	return sheetName + "!" + cells
}
