package store

import (
	"database/sql"
	"fmt"

	"YcrudAPI/internal/model"
)

// scanRecords преобразует результат SQL в []model.Record, ключ = имя колонки.
// Text columns arrive as []byte from some drivers and are stored as strings.
func scanRecords(rows *sql.Rows) ([]model.Record, error) {
	if rows == nil {
		return nil, fmt.Errorf("rows is nil")
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]model.Record, 0, 16)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(model.Record, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
