package cmd

import (
	"context"
	"fmt"

	"github.com/ridoystarlord/relmap/motor"
	"github.com/ridoystarlord/relmap/runner"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity",
	Long: `Check if the database is accessible and report the migration state.

Examples:
  relmap health                    # Check default database connection
  relmap health --timeout 10s      # Set custom timeout
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := withMotor(func(ctx context.Context, m *motor.Motor) error {
			fmt.Println("✅ Database is healthy and accessible")

			st, err := runner.New(m, migrationsDir).Status(ctx)
			if err != nil {
				fmt.Printf("⚠️  Migration state unavailable: %v\n", err)
				return nil
			}
			fmt.Printf("📊 Found %d applied migrations, %d pending\n", len(st.Applied), len(st.Pending))
			return nil
		})
		if err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
		return nil
	},
}
