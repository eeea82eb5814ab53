package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ridoystarlord/relmap/diff"
	"github.com/ridoystarlord/relmap/schema"
)

// Section markers of migration files.
const (
	UpMarker   = "-- Up Migration"
	DownMarker = "-- Down Migration (Rollback)"
)

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// GenerateSQL converts a list of Operations into raw SQL statements, one
// statement per operation.
func GenerateSQL(ops []diff.Operation) ([]string, error) {
	var sqlStatements []string

	for _, op := range ops {
		var stmt string
		switch op.Type {
		case diff.CreateSequence:
			stmt = fmt.Sprintf(`CREATE SEQUENCE %s;`, quote(op.Sequence))

		case diff.DropSequence:
			stmt = fmt.Sprintf(`DROP SEQUENCE IF EXISTS %s;`, quote(op.Sequence))

		case diff.CreateTable:
			if op.Table == nil {
				return nil, fmt.Errorf("generate CREATE TABLE %s: table is nil", op.TableName)
			}
			stmt = createTable(op.Table)

		case diff.DropTable:
			stmt = fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, quote(op.TableName))

		case diff.AddColumn:
			if op.Column == nil {
				return nil, fmt.Errorf("generate ADD COLUMN on %s: column is nil", op.TableName)
			}
			stmt = fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s;`, quote(op.TableName), columnDef(*op.Column))

		case diff.DropColumn:
			if op.Column == nil {
				return nil, fmt.Errorf("generate DROP COLUMN on %s: column is nil", op.TableName)
			}
			stmt = fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s;`, quote(op.TableName), quote(op.Column.Name))

		case diff.AlterColumnType:
			if op.Column == nil {
				return nil, fmt.Errorf("generate ALTER COLUMN on %s: column is nil", op.TableName)
			}
			stmt = alterType(op.TableName, op.Column.Name, op.Column.Type)

		case diff.AddForeignKey:
			if op.ForeignKey == nil {
				return nil, fmt.Errorf("generate ADD FOREIGN KEY on %s: foreign key is nil", op.TableName)
			}
			stmt = addForeignKey(op.ForeignKey)

		case diff.DropForeignKey:
			if op.ForeignKey == nil {
				return nil, fmt.Errorf("generate DROP FOREIGN KEY on %s: foreign key is nil", op.TableName)
			}
			stmt = fmt.Sprintf(`ALTER TABLE %s DROP CONSTRAINT %s;`, quote(op.TableName), quote(op.ForeignKey.Name))

		default:
			return nil, fmt.Errorf("unsupported operation: %s", op.Type)
		}
		sqlStatements = append(sqlStatements, stmt)
	}

	return sqlStatements, nil
}

// GenerateRollbackSQL converts a list of Operations into statements
// undoing them, in reverse order.
func GenerateRollbackSQL(ops []diff.Operation) ([]string, error) {
	var sqlStatements []string

	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		var stmt string
		switch op.Type {
		case diff.CreateSequence:
			stmt = fmt.Sprintf(`DROP SEQUENCE IF EXISTS %s;`, quote(op.Sequence))

		case diff.DropSequence:
			stmt = fmt.Sprintf(`CREATE SEQUENCE %s;`, quote(op.Sequence))

		case diff.CreateTable:
			stmt = fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, quote(op.TableName))

		case diff.DropTable:
			if op.Table == nil {
				return nil, fmt.Errorf("generate rollback of DROP TABLE %s: table definition is unknown", op.TableName)
			}
			stmt = createTable(op.Table)

		case diff.AddColumn:
			stmt = fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s;`, quote(op.TableName), quote(op.Column.Name))

		case diff.DropColumn:
			stmt = fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s;`, quote(op.TableName), columnDef(*op.Column))

		case diff.AlterColumnType:
			stmt = alterType(op.TableName, op.Column.Name, op.OldType)

		case diff.AddForeignKey:
			stmt = fmt.Sprintf(`ALTER TABLE %s DROP CONSTRAINT %s;`, quote(op.TableName), quote(op.ForeignKey.Name))

		case diff.DropForeignKey:
			stmt = addForeignKey(op.ForeignKey)

		default:
			return nil, fmt.Errorf("unsupported rollback operation: %s", op.Type)
		}
		sqlStatements = append(sqlStatements, stmt)
	}

	return sqlStatements, nil
}

func columnDef(col diff.Column) string {
	def := fmt.Sprintf(`%s %s`, quote(col.Name), col.Type)
	if col.NotNull {
		def += " NOT NULL"
	}
	return def
}

func createTable(t *diff.Table) string {
	defs := make([]string, 0, len(t.Columns)+1)
	for _, col := range t.Columns {
		defs = append(defs, columnDef(col))
	}
	if len(t.PrimaryKey) > 0 {
		keys := make([]string, len(t.PrimaryKey))
		for i, k := range t.PrimaryKey {
			keys[i] = quote(k)
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(keys, ", ")))
	}
	return fmt.Sprintf(`CREATE TABLE %s (%s);`, quote(t.Name), strings.Join(defs, ", "))
}

func alterType(table, column, typ string) string {
	return fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s;`,
		quote(table), quote(column), typ, quote(column), typ)
}

func addForeignKey(fk *diff.ForeignKey) string {
	return fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) DEFERRABLE INITIALLY DEFERRED;`,
		quote(fk.Table),
		quote(fk.Name),
		quote(fk.Column),
		quote(fk.References),
		quote(schema.KeyColumn),
	)
}

// WriteMigrationFile saves the SQL statements into a timestamped .sql file
// with up and down sections and returns its path.
func WriteMigrationFile(dir string, sqlStatements []string, rollbackStatements []string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating migrations folder: %w", err)
	}

	timestamp := time.Now().Format("20060102150405")
	filename := filepath.Join(dir, fmt.Sprintf("%s_migration.sql", timestamp))

	var b strings.Builder
	b.WriteString("-- Migration: " + timestamp + "\n")
	b.WriteString("-- Description: Auto-generated by relmap\n\n")

	b.WriteString(UpMarker + "\n")
	b.WriteString("-- ============\n")
	for _, stmt := range sqlStatements {
		b.WriteString(stmt + "\n")
	}

	b.WriteString("\n" + DownMarker + "\n")
	b.WriteString("-- =======================\n")
	for _, stmt := range rollbackStatements {
		b.WriteString(stmt + "\n")
	}

	if err := os.WriteFile(filename, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing migration file: %w", err)
	}
	return filename, nil
}
