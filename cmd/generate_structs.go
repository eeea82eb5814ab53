package cmd

import (
	"fmt"

	"github.com/ridoystarlord/relmap/generator"
	"github.com/ridoystarlord/relmap/loader"
	"github.com/spf13/cobra"
)

var (
	outputDir   string
	packageName string
)

func init() {
	generateStructsCmd.Flags().StringVarP(&outputDir, "output", "o", "models", "Output directory for generated structs")
	generateStructsCmd.Flags().StringVarP(&packageName, "package", "p", "models", "Package name for generated structs")
}

var generateStructsCmd = &cobra.Command{
	Use:   "generate-structs",
	Short: "Generate Go structs from the YAML schema",
	Long: `Generate Go structs carrying relmap tags from your YAML schema. The
generated directory can be used with -m in place of the schema file.

Examples:
  relmap generate-structs                       # Generate models/models.go
  relmap generate-structs -o ./internal/models  # Custom output directory
  relmap generate-structs -p entities           # Custom package name
`,
	Run: func(cmd *cobra.Command, args []string) {
		defs, err := loader.ReadDefsFromYAML(schemaFile)
		if err != nil {
			fail("Loading "+schemaFile, err)
		}
		if _, err := loader.Build(defs); err != nil {
			fail("Checking classes", err)
		}

		filename, err := generator.WriteModelsFile(outputDir, packageName, defs)
		if err != nil {
			fail("Generating structs", err)
		}
		fmt.Printf("✅ Generated Go structs in %s\n", filename)
	},
}
