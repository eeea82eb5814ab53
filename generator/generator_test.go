package generator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ridoystarlord/relmap/diff"
	"github.com/ridoystarlord/relmap/introspect"
	"github.com/ridoystarlord/relmap/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appOps(t *testing.T) []diff.Operation {
	t.Helper()
	reg, err := loader.LoadRegistryFromYAML(filepath.Join("..", "loader", "testdata", "app.yaml"))
	require.NoError(t, err)
	target, err := diff.Layout(reg)
	require.NoError(t, err)
	return diff.DiffSchemas(target, &introspect.Snapshot{}, diff.Options{})
}

func TestGenerateSQL(t *testing.T) {
	stmts, err := GenerateSQL(appOps(t))
	require.NoError(t, err)
	require.Len(t, stmts, 19)

	assert.Equal(t, `CREATE SEQUENCE "order_seq";`, stmts[0])
	assert.Contains(t, stmts, `CREATE TABLE "order" ("__key__" integer NOT NULL, "no" integer, "finished" boolean, PRIMARY KEY ("__key__"));`)
	assert.Contains(t, stmts, `CREATE TABLE "employee_orders" ("order" integer NOT NULL, "employee" integer NOT NULL, PRIMARY KEY ("order", "employee"));`)
	assert.Contains(t, stmts, `ALTER TABLE "order_item" ADD CONSTRAINT "order_item_order_fkey_fkey" FOREIGN KEY ("order_fkey") REFERENCES "order" ("__key__") DEFERRABLE INITIALLY DEFERRED;`)

	// constraints only after every table exists
	lastTable := 0
	firstFK := len(stmts)
	for i, s := range stmts {
		if strings.HasPrefix(s, "CREATE TABLE") {
			lastTable = i
		}
		if strings.Contains(s, "ADD CONSTRAINT") && i < firstFK {
			firstFK = i
		}
	}
	assert.Less(t, lastTable, firstFK)
}

func TestGenerateRollbackSQL(t *testing.T) {
	stmts, err := GenerateRollbackSQL(appOps(t))
	require.NoError(t, err)
	require.Len(t, stmts, 19)

	assert.Equal(t, `ALTER TABLE "employee_orders" DROP CONSTRAINT "employee_orders_employee_fkey";`, stmts[0])
	assert.Contains(t, stmts, `DROP TABLE IF EXISTS "order";`)
	assert.Equal(t, `DROP SEQUENCE IF EXISTS "order_seq";`, stmts[len(stmts)-1])
}

func TestGenerateColumnChanges(t *testing.T) {
	ops := []diff.Operation{
		{Type: diff.AlterColumnType, TableName: "order", Column: &diff.Column{Name: "no", Type: "integer"}, OldType: "text"},
		{Type: diff.AddColumn, TableName: "order", Column: &diff.Column{Name: "finished", Type: "boolean"}},
		{Type: diff.DropColumn, TableName: "order", Column: &diff.Column{Name: "legacy", Type: "text", NotNull: true}},
		{Type: diff.DropTable, TableName: "audit", Table: &diff.Table{
			Name:       "audit",
			Columns:    []diff.Column{{Name: "id", Type: "integer", NotNull: true}},
			PrimaryKey: []string{"id"},
		}},
		{Type: diff.DropSequence, Sequence: "audit_id_seq"},
		{Type: diff.DropForeignKey, TableName: "audit", ForeignKey: &diff.ForeignKey{Name: "audit_order_fkey", Table: "audit", Column: "order", References: "order"}},
	}

	up, err := GenerateSQL(ops)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`ALTER TABLE "order" ALTER COLUMN "no" TYPE integer USING "no"::integer;`,
		`ALTER TABLE "order" ADD COLUMN "finished" boolean;`,
		`ALTER TABLE "order" DROP COLUMN "legacy";`,
		`DROP TABLE IF EXISTS "audit";`,
		`DROP SEQUENCE IF EXISTS "audit_id_seq";`,
		`ALTER TABLE "audit" DROP CONSTRAINT "audit_order_fkey";`,
	}, up)

	down, err := GenerateRollbackSQL(ops)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`ALTER TABLE "audit" ADD CONSTRAINT "audit_order_fkey" FOREIGN KEY ("order") REFERENCES "order" ("__key__") DEFERRABLE INITIALLY DEFERRED;`,
		`CREATE SEQUENCE "audit_id_seq";`,
		`CREATE TABLE "audit" ("id" integer NOT NULL, PRIMARY KEY ("id"));`,
		`ALTER TABLE "order" ADD COLUMN "legacy" text NOT NULL;`,
		`ALTER TABLE "order" DROP COLUMN "finished";`,
		`ALTER TABLE "order" ALTER COLUMN "no" TYPE text USING "no"::text;`,
	}, down)
}

func TestGenerateErrors(t *testing.T) {
	_, err := GenerateSQL([]diff.Operation{{Type: "RENAME_TABLE"}})
	assert.ErrorContains(t, err, "unsupported operation")

	_, err = GenerateSQL([]diff.Operation{{Type: diff.CreateTable, TableName: "order"}})
	assert.ErrorContains(t, err, "table is nil")

	_, err = GenerateRollbackSQL([]diff.Operation{{Type: diff.DropTable, TableName: "audit"}})
	assert.ErrorContains(t, err, "table definition is unknown")
}

func TestWriteMigrationFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migrations")
	path, err := WriteMigrationFile(dir, []string{`CREATE SEQUENCE "order_seq";`}, []string{`DROP SEQUENCE IF EXISTS "order_seq";`})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "_migration.sql"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	up := strings.Index(content, UpMarker)
	down := strings.Index(content, DownMarker)
	require.True(t, up >= 0 && down > up)
	assert.Contains(t, content[up:down], `CREATE SEQUENCE "order_seq";`)
	assert.Contains(t, content[down:], `DROP SEQUENCE IF EXISTS "order_seq";`)
}
