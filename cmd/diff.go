package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/relmap/diff"
	"github.com/ridoystarlord/relmap/introspect"
)

var (
	diffVisual bool
	diffPrune  bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show differences between classes and database",
	Long: `Show the changes needed to bring the database in line with the class
schema: sequences, relations, columns and foreign keys.

Examples:
  relmap diff                    # Show differences in text format
  relmap diff --visual           # Show differences grouped with colors
  relmap diff --prune            # Also drop relations no class maps
`,
	Run: func(cmd *cobra.Command, args []string) {
		ops, err := computeDiff(diffPrune)
		if err != nil {
			fail("Computing differences", err)
		}

		if len(ops) == 0 {
			fmt.Println("✅ No differences found between schema and database")
			return
		}

		if diffVisual {
			showVisualDiff(ops)
		} else {
			showTextDiff(ops)
		}
	},
}

// computeDiff lays the classes out and compares them with the database.
func computeDiff(prune bool) ([]diff.Operation, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	target, err := diff.Layout(reg)
	if err != nil {
		return nil, fmt.Errorf("laying out relations: %w", err)
	}

	ctx, cancel := commandContext()
	defer cancel()
	m, err := openMotor(ctx)
	if err != nil {
		return nil, err
	}
	defer m.Close(ctx)

	existing, err := introspect.IntrospectDatabase(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("introspecting database: %w", err)
	}
	return diff.DiffSchemas(target, existing, diff.Options{Prune: prune}), nil
}

func describe(op diff.Operation) string {
	switch op.Type {
	case diff.CreateSequence:
		return fmt.Sprintf("CREATE SEQUENCE %s", op.Sequence)
	case diff.DropSequence:
		return fmt.Sprintf("DROP SEQUENCE %s", op.Sequence)
	case diff.CreateTable:
		return fmt.Sprintf("CREATE TABLE %s", op.TableName)
	case diff.DropTable:
		return fmt.Sprintf("DROP TABLE %s", op.TableName)
	case diff.AddColumn:
		s := fmt.Sprintf("ADD COLUMN %s.%s (%s)", op.TableName, op.Column.Name, op.Column.Type)
		if op.Column.NotNull {
			s += " NOT NULL"
		}
		return s
	case diff.DropColumn:
		return fmt.Sprintf("DROP COLUMN %s.%s", op.TableName, op.Column.Name)
	case diff.AlterColumnType:
		return fmt.Sprintf("ALTER COLUMN %s.%s TYPE %s → %s", op.TableName, op.Column.Name, op.OldType, op.Column.Type)
	case diff.AddForeignKey:
		return fmt.Sprintf("ADD FOREIGN KEY %s.%s → %s", op.TableName, op.ForeignKey.Column, op.ForeignKey.References)
	case diff.DropForeignKey:
		return fmt.Sprintf("DROP FOREIGN KEY %s", op.ForeignKey.Name)
	}
	return string(op.Type)
}

func showTextDiff(operations []diff.Operation) {
	fmt.Println("📋 Schema Changes (Text Format)")
	fmt.Println(strings.Repeat("=", 40))

	for i, op := range operations {
		fmt.Printf("%d. %s\n", i+1, describe(op))
	}
}

func showVisualDiff(operations []diff.Operation) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	blue := color.New(color.FgBlue, color.Bold)

	fmt.Println("🌳 Schema Changes (Visual Diff)")
	fmt.Println(strings.Repeat("=", 50))

	groups := []struct {
		title string
		types []diff.OperationType
	}{
		{"🔢 Sequences:", []diff.OperationType{diff.CreateSequence, diff.DropSequence}},
		{"📋 Tables:", []diff.OperationType{diff.CreateTable, diff.DropTable}},
		{"📝 Columns:", []diff.OperationType{diff.AddColumn, diff.DropColumn, diff.AlterColumnType}},
		{"🔗 Foreign Keys:", []diff.OperationType{diff.AddForeignKey, diff.DropForeignKey}},
	}
	for _, g := range groups {
		var ops []diff.Operation
		for _, op := range operations {
			for _, t := range g.types {
				if op.Type == t {
					ops = append(ops, op)
				}
			}
		}
		if len(ops) == 0 {
			continue
		}
		fmt.Println("\n" + g.title)
		for _, op := range ops {
			switch op.Type {
			case diff.CreateSequence, diff.CreateTable, diff.AddColumn, diff.AddForeignKey:
				green.Printf("  ➕ %s\n", describe(op))
			case diff.AlterColumnType:
				blue.Printf("  🔄 %s\n", describe(op))
			default:
				red.Printf("  ❌ %s\n", describe(op))
			}
		}
	}
}

func init() {
	diffCmd.Flags().BoolVar(&diffVisual, "visual", false, "Show changes grouped with colors")
	diffCmd.Flags().BoolVar(&diffPrune, "prune", false, "Drop relations and sequences no class maps")
}
