package cmd

import (
	"context"
	"fmt"

	"github.com/ridoystarlord/relmap/motor"
	"github.com/ridoystarlord/relmap/runner"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMotor(func(ctx context.Context, m *motor.Motor) error {
			st, err := runner.New(m, migrationsDir).Status(ctx)
			if err != nil {
				return fmt.Errorf("status error: %w", err)
			}

			fmt.Println("✅ Applied migrations:")
			for _, f := range st.Applied {
				fmt.Println("   -", f)
			}

			if len(st.Modified) > 0 {
				fmt.Println("\n⚠️  Modified after being applied:")
				for _, f := range st.Modified {
					fmt.Println("   -", f)
				}
			}

			fmt.Println("\n🕒 Pending migrations:")
			for _, f := range st.Pending {
				fmt.Println("   -", f)
			}
			return nil
		})
	},
}
