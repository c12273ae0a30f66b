package batch

import (
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/ezid-batch/transform"
)

// DefaultColumns returns the default output column set.
func DefaultColumns() []string {
	return []string{"_n", "_id", "_error"}
}

// ParseColumns splits a -o argument into column names.
func ParseColumns(s string) []string {
	var columns []string
	for _, col := range strings.Split(s, ",") {
		col = strings.TrimSpace(col)
		if col != "" {
			columns = append(columns, col)
		}
	}
	return columns
}

// BuildRow assembles one output row. Each column is sourced from the
// row ordinal (_n), the registration outcome (_id, _error), a 1-based
// input column (numeric names), or the metadata record. Unknown or
// out-of-range columns emit empty values, never an error.
func BuildRow(columns []string, ordinal int, row []string, rec *transform.Record, id, errMsg string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		switch col {
		case "_n":
			out[i] = strconv.Itoa(ordinal)
		case "_id":
			out[i] = id
		case "_error":
			out[i] = errMsg
		default:
			if n, err := strconv.Atoi(col); err == nil {
				if n >= 1 && n <= len(row) {
					out[i] = row[n-1]
				}
				continue
			}
			out[i] = rec.Elements[col]
		}
	}
	return out
}
