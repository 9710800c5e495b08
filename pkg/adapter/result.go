package adapter

import (
	"context"
	"fmt"
)

// Result is a fully read query result.
type Result struct {
	Columns []string
	Rows    [][]any
	// Truncated is set when rows beyond the limit were discarded.
	Truncated bool
}

// Collect reads up to limit rows (all rows when limit <= 0) and closes rows.
// Byte slices are converted to strings.
func Collect(rows *Rows, limit int) (*Result, error) {
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	res := &Result{Columns: cols}
	for rows.Next() {
		if limit > 0 && len(res.Rows) == limit {
			res.Truncated = true
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return res, nil
}

// QueryAll runs sql on a and collects the result.
func QueryAll(ctx context.Context, a Adapter, sql string, limit int) (*Result, error) {
	rows, err := a.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return Collect(rows, limit)
}
