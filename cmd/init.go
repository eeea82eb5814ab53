package cmd

import (
	"fmt"
	"os"

	"github.com/ridoystarlord/relmap/generator"
	"github.com/ridoystarlord/relmap/loader"
	"github.com/spf13/cobra"
)

var initStructs bool

// sampleClasses is a small order management application: a one-to-many
// association between orders and their items and a many-to-many one
// between orders and employees.
var sampleClasses = []loader.ClassDef{
	{
		Name:     "Order",
		Relation: "order",
		Columns: []loader.ColumnDef{
			{Attr: "no", Type: "integer"},
			{Attr: "finished", Type: "boolean"},
			{Attr: "items", Class: "OrderItem", VCol: "order_fkey", VAttr: "order"},
			{Attr: "employees", Col: "order", Class: "Employee", Link: "employee_orders", VCol: "employee", VAttr: "orders"},
		},
	},
	{
		Name:     "Employee",
		Relation: "employee",
		Columns: []loader.ColumnDef{
			{Attr: "name", Type: "text"},
			{Attr: "surname", Type: "text"},
			{Attr: "orders", Col: "employee", Class: "Order", Link: "employee_orders", VCol: "order", VAttr: "employees"},
		},
	},
	{
		Name:     "OrderItem",
		Relation: "order_item",
		Columns: []loader.ColumnDef{
			{Attr: "order", Col: "order_fkey", Class: "Order", VAttr: "items"},
			{Attr: "pos", Type: "integer"},
			{Attr: "quantity", Type: "numeric"},
		},
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new relmap project",
	Long: `Initialize a new relmap project with a sample class schema.

By default a schema.yaml file is created. With --structs the same classes
are written as Go structs with relmap tags into the models directory.

Examples:
  relmap init                      # Create schema.yaml
  relmap init --structs            # Create models/models.go
  relmap init --structs -m entity  # Create entity/models.go`,
	Run: func(cmd *cobra.Command, args []string) {
		if initStructs {
			dir := modelsDir
			if dir == "" {
				dir = "models"
			}
			if _, err := os.Stat(dir); err == nil {
				fmt.Printf("❌ %s directory already exists!\n", dir)
				os.Exit(1)
			}
			filename, err := generator.WriteModelsFile(dir, "models", sampleClasses)
			if err != nil {
				fail("Creating models", err)
			}
			fmt.Println("✅ Created", filename)
			fmt.Printf("🚀 Run 'relmap generate -m %s' to create a migration from your structs\n", dir)
			return
		}

		if _, err := os.Stat(schemaFile); err == nil {
			fmt.Printf("❌ %s already exists!\n", schemaFile)
			os.Exit(1)
		}
		data, err := loader.MarshalYAML(sampleClasses)
		if err != nil {
			fail("Rendering sample schema", err)
		}
		if err := os.WriteFile(schemaFile, data, 0o644); err != nil {
			fail("Creating "+schemaFile, err)
		}
		fmt.Printf("✅ Created %s example file.\n", schemaFile)
		fmt.Printf("📝 Edit %s to declare your classes\n", schemaFile)
		fmt.Println("🚀 Run 'relmap generate' to create migrations from your schema")
	},
}

func init() {
	initCmd.Flags().BoolVar(&initStructs, "structs", false, "Create Go structs with relmap tags instead of a YAML schema")
}
