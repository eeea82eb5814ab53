package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/ridoystarlord/relmap/motor"
	"github.com/ridoystarlord/relmap/runner"
	"github.com/spf13/cobra"
)

var steps int

func init() {
	rollbackCmd.Flags().IntVarP(&steps, "steps", "s", 1, "Number of migrations to rollback")
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback migrations",
	Long: `Rollback the last migration or multiple migrations.

Examples:
  relmap rollback            # Rollback the last migration
  relmap rollback --steps=3  # Rollback the last 3 migrations
  relmap rollback -s 5       # Rollback the last 5 migrations
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if steps < 1 {
			return errors.New("steps must be at least 1")
		}

		return withMotor(func(ctx context.Context, m *motor.Motor) error {
			done, err := runner.New(m, migrationsDir).RollbackMigrations(ctx, steps)
			for _, f := range done {
				fmt.Println("↩️  Rolled back", f)
			}
			if err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}

			switch len(done) {
			case 0:
				fmt.Println("✅ Nothing to roll back.")
			case 1:
				fmt.Println("✅ Rolled back 1 migration.")
			default:
				fmt.Printf("✅ Rolled back %d migrations.\n", len(done))
			}
			return nil
		})
	},
}
