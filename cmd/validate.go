package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/ridoystarlord/relmap/introspect"
	"github.com/ridoystarlord/relmap/validator"
	"github.com/spf13/cobra"
)

var (
	validateFormat string
	validateOnline bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the class schema",
	Long: `Validate your classes before generating relations or statements.

This command checks:
- Relation and column naming (PostgreSQL identifier rules, reserved keywords)
- Data types of plain attributes
- Relations and link relations used by more than one class
- Bi-directional associations declared on both sides
- Statements compiling for every class

With --online the database is introspected too and existing relations are
reported.

Examples:
  relmap validate                    # Validate schema.yaml
  relmap validate -m models          # Validate Go structs
  relmap validate --format json      # Output validation results as JSON
  relmap validate --online           # Also check against the database
`,
	Run: func(cmd *cobra.Command, args []string) {
		result, err := validateSchema()
		if err != nil {
			fail("Schema validation failed", err)
		}
		if validateFormat == "json" {
			err = outputJSON(result)
		} else {
			err = outputText(result)
		}
		if err != nil {
			fail("Writing validation results", err)
		}
		if !result.Valid {
			os.Exit(1)
		}
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateFormat, "format", "text", "Output format (text, json)")
	validateCmd.Flags().BoolVar(&validateOnline, "online", false, "Also check against the database")
}

func validateSchema() (*validator.ValidationResult, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}

	v := &validator.SchemaValidator{}
	if validateOnline {
		ctx, cancel := commandContext()
		defer cancel()
		m, err := openMotor(ctx)
		if err != nil {
			return nil, err
		}
		defer m.Close(ctx)
		snap, err := introspect.IntrospectDatabase(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("introspecting database: %w", err)
		}
		v.Snapshot = snap
	}
	return v.ValidateRegistry(reg), nil
}

func outputJSON(result *validator.ValidationResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printEntries(title string, entries []validator.ValidationError) {
	if len(entries) == 0 {
		return
	}
	fmt.Printf("\n%s (%d):\n", title, len(entries))
	for i, e := range entries {
		fmt.Printf("  %d. ", i+1)
		if e.Class != "" {
			fmt.Printf("[%s]", e.Class)
		}
		if e.Attr != "" {
			fmt.Printf(".%s", e.Attr)
		}
		if e.Relation != "" {
			fmt.Printf(" (relation: %s)", e.Relation)
		}
		fmt.Printf(": %s\n", e.Message)
	}
}

func outputText(result *validator.ValidationResult) error {
	if result.Valid {
		color.Green("✅ Schema validation passed!")
	} else {
		color.Red("❌ Schema validation failed!")
	}

	printEntries("🔴 Errors", result.Errors)
	printEntries("🟡 Warnings", result.Warnings)
	printEntries("🔵 Info", result.Info)

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("  • Errors: %d\n", len(result.Errors))
	fmt.Printf("  • Warnings: %d\n", len(result.Warnings))
	fmt.Printf("  • Info: %d\n", len(result.Info))

	if result.Valid {
		fmt.Printf("\n🎉 Your schema is valid and ready for migration generation!\n")
	} else {
		fmt.Printf("\n💡 Fix the errors above before generating migrations.\n")
	}
	return nil
}
