package introspect

import (
	"context"
	"fmt"

	"github.com/ridoystarlord/relmap/motor"
)

// Querier runs catalog queries. *motor.Motor implements it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (motor.Rows, error)
}

// Snapshot is the relational layout found in the public schema.
type Snapshot struct {
	Tables    []ExistingTable
	Sequences []string
}

// Table returns the existing table with the given name.
func (s *Snapshot) Table(name string) (ExistingTable, bool) {
	for _, t := range s.Tables {
		if t.TableName == name {
			return t, true
		}
	}
	return ExistingTable{}, false
}

// HasSequence reports whether the sequence exists.
func (s *Snapshot) HasSequence(name string) bool {
	for _, seq := range s.Sequences {
		if seq == name {
			return true
		}
	}
	return false
}

type ExistingTable struct {
	TableName   string
	Columns     []ExistingColumn
	ForeignKeys []ExistingForeignKey
}

type ExistingColumn struct {
	ColumnName   string
	DataType     string
	IsNullable   bool
	IsPrimaryKey bool
}

type ExistingForeignKey struct {
	ConstraintName   string
	ColumnName       string
	ReferencesTable  string
	ReferencesColumn string
	Deferrable       bool
}

const tablesQuery = `
	SELECT table_name::text
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
	ORDER BY table_name`

const columnsQuery = `
	SELECT
		c.column_name::text,
		c.data_type::text,
		(c.is_nullable = 'YES') AS is_nullable,
		EXISTS (
			SELECT 1
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = c.table_schema
				AND tc.table_name = c.table_name
				AND kcu.column_name = c.column_name
		) AS is_primary
	FROM information_schema.columns c
	WHERE c.table_schema = 'public' AND c.table_name = $1
	ORDER BY c.ordinal_position`

const foreignKeysQuery = `
	SELECT
		tc.constraint_name::text,
		kcu.column_name::text,
		ccu.table_name::text AS foreign_table_name,
		ccu.column_name::text AS foreign_column_name,
		(tc.is_deferrable = 'YES' AND tc.initially_deferred = 'YES') AS deferred
	FROM information_schema.table_constraints AS tc
	JOIN information_schema.key_column_usage AS kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
	JOIN information_schema.constraint_column_usage AS ccu
		ON ccu.constraint_name = tc.constraint_name
		AND ccu.table_schema = tc.table_schema
	WHERE tc.constraint_type = 'FOREIGN KEY'
		AND tc.table_schema = 'public'
		AND tc.table_name = $1
	ORDER BY tc.constraint_name`

const sequencesQuery = `
	SELECT sequence_name::text
	FROM information_schema.sequences
	WHERE sequence_schema = 'public'
	ORDER BY sequence_name`

// IntrospectDatabase reads tables, columns, foreign keys and sequences of
// the public schema.
func IntrospectDatabase(ctx context.Context, q Querier) (*Snapshot, error) {
	snap := &Snapshot{}

	tableNames, err := queryStrings(ctx, q, tablesQuery)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}

	for _, tableName := range tableNames {
		columns, err := getColumns(ctx, q, tableName)
		if err != nil {
			return nil, fmt.Errorf("getting columns for table %s: %w", tableName, err)
		}

		foreignKeys, err := getForeignKeys(ctx, q, tableName)
		if err != nil {
			return nil, fmt.Errorf("getting foreign keys for table %s: %w", tableName, err)
		}

		snap.Tables = append(snap.Tables, ExistingTable{
			TableName:   tableName,
			Columns:     columns,
			ForeignKeys: foreignKeys,
		})
	}

	snap.Sequences, err = queryStrings(ctx, q, sequencesQuery)
	if err != nil {
		return nil, fmt.Errorf("querying sequences: %w", err)
	}
	return snap, nil
}

// queryRows collects all rows of a query, checking the number of values.
func queryRows(ctx context.Context, q Querier, width int, sql string, args ...any) ([][]any, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if len(values) != width {
			return nil, fmt.Errorf("expected %d values, got %d", width, len(values))
		}
		res = append(res, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return res, nil
}

func queryStrings(ctx context.Context, q Querier, sql string) ([]string, error) {
	rows, err := queryRows(ctx, q, 1, sql)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(rows))
	for i, r := range rows {
		res[i] = asString(r[0])
	}
	return res, nil
}

func getColumns(ctx context.Context, q Querier, tableName string) ([]ExistingColumn, error) {
	rows, err := queryRows(ctx, q, 4, columnsQuery, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	columns := make([]ExistingColumn, len(rows))
	for i, r := range rows {
		columns[i] = ExistingColumn{
			ColumnName:   asString(r[0]),
			DataType:     asString(r[1]),
			IsNullable:   asBool(r[2]),
			IsPrimaryKey: asBool(r[3]),
		}
	}
	return columns, nil
}

func getForeignKeys(ctx context.Context, q Querier, tableName string) ([]ExistingForeignKey, error) {
	rows, err := queryRows(ctx, q, 5, foreignKeysQuery, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying foreign keys: %w", err)
	}
	foreignKeys := make([]ExistingForeignKey, len(rows))
	for i, r := range rows {
		foreignKeys[i] = ExistingForeignKey{
			ConstraintName:   asString(r[0]),
			ColumnName:       asString(r[1]),
			ReferencesTable:  asString(r[2]),
			ReferencesColumn: asString(r[3]),
			Deferrable:       asBool(r[4]),
		}
	}
	return foreignKeys, nil
}

func asString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
