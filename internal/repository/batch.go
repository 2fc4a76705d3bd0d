package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// batchRows caps rows per multi-value INSERT so bind parameters stay below the
// Postgres limit of 65535.
const batchRows = 1000

func insertBatches[T any](ctx context.Context, exec sqlx.ExtContext, query string, rows []T) error {
	for start := 0; start < len(rows); start += batchRows {
		end := start + batchRows
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := sqlx.NamedExecContext(ctx, exec, query, rows[start:end]); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}
