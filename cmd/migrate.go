package cmd

import (
	"context"
	"fmt"

	"github.com/ridoystarlord/relmap/motor"
	"github.com/ridoystarlord/relmap/runner"
	"github.com/spf13/cobra"
)

var dryRunMigrate bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMotor(func(ctx context.Context, m *motor.Motor) error {
			r := runner.New(m, migrationsDir)

			if dryRunMigrate {
				pending, err := r.PreviewMigrations(ctx)
				if err != nil {
					return fmt.Errorf("dry run failed: %w", err)
				}
				if len(pending) == 0 {
					fmt.Println("✅ No pending migrations.")
					return nil
				}
				for _, p := range pending {
					fmt.Println("--", p.Name)
					for _, stmt := range p.Up {
						fmt.Println(stmt)
					}
				}
				fmt.Println("(Dry run only. Nothing was applied.)")
				return nil
			}

			done, err := r.Migrate(ctx)
			for _, f := range done {
				fmt.Println("✅ Applied", f)
			}
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			if len(done) == 0 {
				fmt.Println("✅ No pending migrations.")
			}
			return nil
		})
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&dryRunMigrate, "dry-run", false, "Preview the SQL that would be executed without applying migrations")
}
