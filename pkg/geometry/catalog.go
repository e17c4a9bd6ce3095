package geometry

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/nsxbet/geoqc/pkg/types"
)

const listTablesQuery = `
		SELECT f_table_name, f_geometry_column, type
		FROM geometry_columns
		WHERE f_table_schema = $1
		ORDER BY f_table_name, f_geometry_column`

// ListTables returns the spatial tables registered in geometry_columns for
// schema, ordered by name. A table with several geometry columns is listed
// once, with its first column.
func (i *Inspector) ListTables(ctx context.Context, schema string) ([]types.Table, error) {
	rows, err := i.db.QueryContext(ctx, listTablesQuery, schema)
	if err != nil {
		return nil, errors.Wrapf(ErrQueryExecution, "list tables of schema %s: %v", schema, err)
	}
	defer func() { _ = rows.Close() }()

	var tables []types.Table
	seen := make(map[string]bool)
	for rows.Next() {
		t := types.Table{Schema: schema, IDColumn: defaultIDColumn}
		if err := rows.Scan(&t.Name, &t.GeometryColumn, &t.GeometryType); err != nil {
			return nil, errors.Wrapf(ErrQueryExecution, "scan geometry_columns: %v", err)
		}
		if seen[t.Name] {
			i.logger.Debug("ignoring extra geometry column", "table", t.ID(), "column", t.GeometryColumn)
			continue
		}
		seen[t.Name] = true
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(ErrQueryExecution, "list tables of schema %s: %v", schema, err)
	}

	i.logger.Debug("spatial tables found", "schema", schema, "count", len(tables))
	return tables, nil
}

// TableInfo summarises the content of a spatial table.
type TableInfo struct {
	Table types.Table      `json:"table" yaml:"table"`
	Rows  int64            `json:"rows" yaml:"rows"`
	Types map[string]int64 `json:"types" yaml:"types"`
}

// Describe counts the rows of a table per geometry type. Null geometries are
// counted under "NULL".
func (i *Inspector) Describe(ctx context.Context, t types.Table) (*TableInfo, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(GeometryType(%[1]s), 'NULL') AS geometry_type, count(*)
		FROM %[2]s
		GROUP BY 1
		ORDER BY 1`, geomColumn(t), relation(t))

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, queryError(t, "describe", err)
	}
	defer func() { _ = rows.Close() }()

	info := &TableInfo{Table: t, Types: make(map[string]int64)}
	for rows.Next() {
		var (
			name  string
			count int64
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, queryError(t, "describe", err)
		}
		info.Types[name] = count
		info.Rows += count
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(t, "describe", err)
	}
	return info, nil
}
