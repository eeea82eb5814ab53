package diff

import (
	"regexp"
	"strings"

	"github.com/ridoystarlord/relmap/introspect"
	"github.com/ridoystarlord/relmap/schema"
)

type OperationType string

const (
	CreateSequence  OperationType = "CREATE_SEQUENCE"
	DropSequence    OperationType = "DROP_SEQUENCE"
	CreateTable     OperationType = "CREATE_TABLE"
	DropTable       OperationType = "DROP_TABLE"
	AddColumn       OperationType = "ADD_COLUMN"
	DropColumn      OperationType = "DROP_COLUMN"
	AlterColumnType OperationType = "ALTER_COLUMN_TYPE"
	AddForeignKey   OperationType = "ADD_FOREIGN_KEY"
	DropForeignKey  OperationType = "DROP_FOREIGN_KEY"
)

type Operation struct {
	Type       OperationType
	TableName  string
	Table      *Table      // CREATE_TABLE, DROP_TABLE
	Column     *Column     // ADD_COLUMN, DROP_COLUMN, ALTER_COLUMN_TYPE
	OldType    string      // ALTER_COLUMN_TYPE
	ForeignKey *ForeignKey // ADD_FOREIGN_KEY, DROP_FOREIGN_KEY
	Sequence   string      // CREATE_SEQUENCE, DROP_SEQUENCE
}

// Options tune DiffSchemas.
type Options struct {
	// Prune drops tables and sequences the target does not know.
	Prune bool
}

// DiffSchemas computes the operations turning the existing layout into
// the target one. Operations come in an order they can be applied in:
// stale foreign keys are dropped first and new ones added last.
func DiffSchemas(target *Target, existing *introspect.Snapshot, opts Options) []Operation {
	var dropFKs, seqs, tables, columns, drops, dropSeqs, addFKs []Operation

	for _, seq := range target.Sequences {
		if !existing.HasSequence(seq) {
			seqs = append(seqs, Operation{Type: CreateSequence, Sequence: seq})
		}
	}

	existingFKs := map[[2]string]introspect.ExistingForeignKey{}
	for _, table := range existing.Tables {
		for _, fk := range table.ForeignKeys {
			existingFKs[[2]string{table.TableName, fk.ColumnName}] = fk
		}
	}
	wantedFKs := map[[2]string]ForeignKey{}
	for _, fk := range target.ForeignKeys {
		wantedFKs[[2]string{fk.Table, fk.Column}] = fk
	}

	for i := range target.Tables {
		table := &target.Tables[i]
		current, exists := existing.Table(table.Name)
		if !exists {
			tables = append(tables, Operation{Type: CreateTable, TableName: table.Name, Table: table})
			continue
		}

		existingCols := map[string]introspect.ExistingColumn{}
		for _, c := range current.Columns {
			existingCols[c.ColumnName] = c
		}
		for j := range table.Columns {
			col := &table.Columns[j]
			old, ok := existingCols[col.Name]
			switch {
			case !ok:
				columns = append(columns, Operation{Type: AddColumn, TableName: table.Name, Column: col})
			case NormalizeType(old.DataType) != NormalizeType(col.Type):
				columns = append(columns, Operation{Type: AlterColumnType, TableName: table.Name, Column: col, OldType: old.DataType})
			}
		}
		for _, c := range current.Columns {
			if _, ok := table.Column(c.ColumnName); !ok {
				columns = append(columns, Operation{
					Type:      DropColumn,
					TableName: table.Name,
					Column:    &Column{Name: c.ColumnName, Type: c.DataType, NotNull: !c.IsNullable},
				})
			}
		}
	}

	// foreign keys of managed tables
	for _, table := range existing.Tables {
		_, managed := target.Table(table.TableName)
		if !managed && !opts.Prune {
			continue
		}
		for _, fk := range table.ForeignKeys {
			want, ok := wantedFKs[[2]string{table.TableName, fk.ColumnName}]
			if ok && sameForeignKey(want, fk) {
				continue
			}
			dropFKs = append(dropFKs, Operation{
				Type:      DropForeignKey,
				TableName: table.TableName,
				ForeignKey: &ForeignKey{
					Name:       fk.ConstraintName,
					Table:      table.TableName,
					Column:     fk.ColumnName,
					References: fk.ReferencesTable,
				},
			})
		}
	}
	for i := range target.ForeignKeys {
		fk := &target.ForeignKeys[i]
		if old, ok := existingFKs[[2]string{fk.Table, fk.Column}]; ok && sameForeignKey(*fk, old) {
			continue
		}
		addFKs = append(addFKs, Operation{Type: AddForeignKey, TableName: fk.Table, ForeignKey: fk})
	}

	if opts.Prune {
		for _, table := range existing.Tables {
			if _, ok := target.Table(table.TableName); ok {
				continue
			}
			drops = append(drops, Operation{Type: DropTable, TableName: table.TableName, Table: existingTable(table)})
		}
		wanted := map[string]bool{}
		for _, seq := range target.Sequences {
			wanted[seq] = true
		}
		for _, seq := range existing.Sequences {
			if !wanted[seq] {
				dropSeqs = append(dropSeqs, Operation{Type: DropSequence, Sequence: seq})
			}
		}
	}

	var ops []Operation
	for _, group := range [][]Operation{dropFKs, seqs, tables, columns, drops, dropSeqs, addFKs} {
		ops = append(ops, group...)
	}
	return ops
}

func sameForeignKey(want ForeignKey, have introspect.ExistingForeignKey) bool {
	return have.ReferencesTable == want.References &&
		have.ReferencesColumn == schema.KeyColumn &&
		have.Deferrable
}

// existingTable converts an introspected table, so that dropping it can
// be rolled back.
func existingTable(t introspect.ExistingTable) *Table {
	table := &Table{Name: t.TableName}
	for _, c := range t.Columns {
		table.Columns = append(table.Columns, Column{Name: c.ColumnName, Type: c.DataType, NotNull: !c.IsNullable})
		if c.IsPrimaryKey {
			table.PrimaryKey = append(table.PrimaryKey, c.ColumnName)
		}
	}
	return table
}

var typeModifierRe = regexp.MustCompile(`\s*\(.*\)`)

var typeAliases = map[string]string{
	"int":         "integer",
	"int4":        "integer",
	"serial":      "integer",
	"int8":        "bigint",
	"bigserial":   "bigint",
	"int2":        "smallint",
	"bool":        "boolean",
	"varchar":     "character varying",
	"char":        "character",
	"decimal":     "numeric",
	"float8":      "double precision",
	"float4":      "real",
	"timestamp":   "timestamp without time zone",
	"timestamptz": "timestamp with time zone",
	"time":        "time without time zone",
	"timetz":      "time with time zone",
}

// NormalizeType maps a SQL type to the name reported by
// information_schema, ignoring modifiers such as lengths.
func NormalizeType(typ string) string {
	t := strings.ToLower(strings.TrimSpace(typ))
	t = typeModifierRe.ReplaceAllString(t, "")
	if alias, ok := typeAliases[t]; ok {
		return alias
	}
	return t
}
