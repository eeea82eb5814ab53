package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/relmap/diff"
	"github.com/ridoystarlord/relmap/generator"
)

var (
	docsFormat string
	docsOutput string
)

var docsExtensions = map[string]string{
	generator.PlantUML: "erd.puml",
	generator.Mermaid:  "erd.md",
	generator.Graphviz: "erd.dot",
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Generate ER diagrams of the mapped relations",
	Long: `Generate ER diagrams of the relations, link relations and foreign keys
derived from your classes.

Supported formats:
  - plantuml: PlantUML ERD diagram
  - mermaid: Mermaid ERD diagram
  - graphviz: Graphviz DOT format
  - all: every format, written into the output directory

Examples:
  relmap docs --format plantuml --output erd.puml
  relmap docs --format mermaid --output erd.md
  relmap docs --format all --output docs/
`,
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := loadRegistry()
		if err != nil {
			fail("Loading classes", err)
		}
		if reg.Len() == 0 {
			fmt.Println("❌ No classes found in schema")
			os.Exit(1)
		}
		target, err := diff.Layout(reg)
		if err != nil {
			fail("Laying out relations", err)
		}

		if docsFormat == "all" {
			if docsOutput == "" {
				docsOutput = "docs"
			}
			if err := os.MkdirAll(docsOutput, 0o755); err != nil {
				fail("Creating output directory", err)
			}
			for _, format := range []string{generator.PlantUML, generator.Mermaid, generator.Graphviz} {
				writeDiagram(target, format, filepath.Join(docsOutput, docsExtensions[format]))
			}
		} else {
			output := docsOutput
			if output == "" {
				output = docsExtensions[docsFormat]
			}
			writeDiagram(target, docsFormat, output)
		}

		fmt.Println("✅ Documentation generated successfully!")
	},
}

func writeDiagram(target *diff.Target, format, output string) {
	content, err := generator.GenerateDiagram(target, format)
	if err != nil {
		fmt.Println("Supported formats: plantuml, mermaid, graphviz, all")
		fail("Generating diagram", err)
	}
	if err := os.WriteFile(output, []byte(content), 0o644); err != nil {
		fail("Writing "+output, err)
	}
	fmt.Printf("✅ %s ERD saved to: %s\n", format, output)
}

func init() {
	docsCmd.Flags().StringVar(&docsFormat, "format", generator.Mermaid, "Diagram format (plantuml, mermaid, graphviz, all)")
	docsCmd.Flags().StringVarP(&docsOutput, "output", "o", "", "Output file, or directory with --format all")
}
