package cmd

import (
	"context"
	"fmt"

	"github.com/ridoystarlord/relmap/generator"
	"github.com/ridoystarlord/relmap/motor"
	"github.com/ridoystarlord/relmap/runner"
	"github.com/spf13/cobra"
)

var prunePush bool

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Apply the class schema to the database without a migration file",
	Long: `Compare the class schema with the database and apply the differences
at once, in a single transaction. Useful while prototyping; use generate
and migrate to keep a history.

Examples:
  relmap push
  relmap push --prune    # Also drop relations no class maps
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ops, err := computeDiff(prunePush)
		if err != nil {
			return fmt.Errorf("computing differences: %w", err)
		}
		if len(ops) == 0 {
			fmt.Println("✅ Database is up to date.")
			return nil
		}
		stmts, err := generator.GenerateSQL(ops)
		if err != nil {
			return fmt.Errorf("generating SQL: %w", err)
		}

		return withMotor(func(ctx context.Context, m *motor.Motor) error {
			if err := runner.New(m, migrationsDir).Apply(ctx, stmts); err != nil {
				return fmt.Errorf("applying changes: %w", err)
			}
			fmt.Printf("✅ Applied %d changes.\n", len(stmts))
			return nil
		})
	},
}

func init() {
	pushCmd.Flags().BoolVar(&prunePush, "prune", false, "Drop relations and sequences no class maps")
}
