package cmd

import (
	"fmt"

	"github.com/ridoystarlord/relmap/diff"
	"github.com/ridoystarlord/relmap/generator"
	"github.com/ridoystarlord/relmap/introspect"
	"github.com/spf13/cobra"
)

var (
	dryRunGenerate  bool
	offlineGenerate bool
	pruneGenerate   bool
)

func init() {
	generateCmd.Flags().BoolVar(&dryRunGenerate, "dry-run", false, "Preview the SQL that would be generated without writing files")
	generateCmd.Flags().BoolVar(&offlineGenerate, "offline", false, "Generate the complete layout without reading the database")
	generateCmd.Flags().BoolVar(&pruneGenerate, "prune", false, "Drop relations and sequences no class maps")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate migration file from the class schema",
	Long: `Generate a migration file creating or updating the relations of your
classes. The database is introspected and only the differences are
written, unless --offline is given.

Examples:
  relmap generate                    # Generate from schema.yaml
  relmap generate -m models          # Generate from Go structs
  relmap generate --offline          # Complete layout, no database needed
  relmap generate --dry-run          # Print the SQL only
`,
	Run: func(cmd *cobra.Command, args []string) {
		var ops []diff.Operation
		var err error
		if offlineGenerate {
			ops, err = layoutOperations()
		} else {
			ops, err = computeDiff(pruneGenerate)
		}
		if err != nil {
			fail("Computing changes", err)
		}
		if len(ops) == 0 {
			fmt.Println("✅ No changes detected.")
			return
		}

		sqls, err := generator.GenerateSQL(ops)
		if err != nil {
			fail("Generating SQL", err)
		}
		rollbackSqls, err := generator.GenerateRollbackSQL(ops)
		if err != nil {
			fail("Generating rollback SQL", err)
		}

		if dryRunGenerate {
			fmt.Println("\n================ DRY RUN: Migration Preview ================")
			fmt.Println(generator.UpMarker)
			for _, stmt := range sqls {
				fmt.Println(stmt)
			}
			fmt.Println("\n" + generator.DownMarker)
			for _, stmt := range rollbackSqls {
				fmt.Println(stmt)
			}
			fmt.Println("============================================================")
			fmt.Println("(Dry run only. No files were written.)")
			return
		}

		filename, err := generator.WriteMigrationFile(migrationsDir, sqls, rollbackSqls)
		if err != nil {
			fail("Writing migration file", err)
		}
		fmt.Println("✅ Migration generated:", filename)
	},
}

// layoutOperations creates the complete layout of the classes from scratch.
func layoutOperations() ([]diff.Operation, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	target, err := diff.Layout(reg)
	if err != nil {
		return nil, fmt.Errorf("laying out relations: %w", err)
	}
	return diff.DiffSchemas(target, &introspect.Snapshot{}, diff.Options{}), nil
}
