package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ridoystarlord/relmap/database"
	"github.com/ridoystarlord/relmap/loader"
	"github.com/ridoystarlord/relmap/motor"
	"github.com/ridoystarlord/relmap/schema"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	schemaFile    string
	modelsDir     string
	dsn           string
	migrationsDir string
	verbose       bool
	timeout       time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "relmap",
	Short: "Map application classes onto PostgreSQL relations",
	Long: `relmap keeps application classes and their PostgreSQL relations in sync.

Classes are declared in a YAML schema file or as Go structs with relmap
tags. relmap derives the relations, sequences and link tables from them,
compiles the statements used to load and store objects, and migrates the
database.

Examples:

  relmap init
  relmap validate
  relmap generate
  relmap migrate
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// Register subcommands
func init() {
	rootCmd.PersistentFlags().StringVarP(&schemaFile, "schema", "f", "schema.yaml", "Schema YAML file to load")
	rootCmd.PersistentFlags().StringVarP(&modelsDir, "models", "m", "", "Load classes from the Go structs of this directory instead of the schema file")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database URL (default: DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations", "migrations", "Migrations directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log compiled statements and executed SQL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for database operations")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(statementsCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(generateStructsCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(docsCmd)
}

// loadRegistry loads the classes from the models directory when one is
// given, from the schema file otherwise.
func loadRegistry() (*schema.Registry, error) {
	if modelsDir != "" {
		reg, err := loader.LoadRegistryFromTags(modelsDir)
		if err != nil {
			return nil, fmt.Errorf("loading models from structs: %w", err)
		}
		return reg, nil
	}
	reg, err := loader.LoadRegistryFromYAML(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", schemaFile, err)
	}
	return reg, nil
}

// openMotor opens the motor used by the database commands.
var openMotor = connect

// withMotor runs fn on an open motor and closes it once fn returns, rolling
// back anything fn left uncommitted.
func withMotor(fn func(ctx context.Context, m *motor.Motor) error) (err error) {
	ctx, cancel := commandContext()
	defer cancel()
	m, err := openMotor(ctx)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer func() {
		if cerr := m.Close(ctx); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing connection: %w", cerr))
		}
	}()
	return fn(ctx, m)
}

// connect opens the motor. The caller closes it.
func connect(ctx context.Context) (*motor.Motor, error) {
	url, err := database.ResolveDSN(dsn)
	if err != nil {
		return nil, err
	}
	m := motor.New(motor.WithLogger(log.StandardLogger()))
	if err := m.Connect(ctx, url); err != nil {
		return nil, err
	}
	return m, nil
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func fail(msg string, err error) {
	fmt.Println("❌", msg+":", err)
	os.Exit(1)
}
