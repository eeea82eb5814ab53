package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/ridoystarlord/relmap/mapper"
	"github.com/spf13/cobra"
)

var statementsCmd = &cobra.Command{
	Use:   "statements [class...]",
	Short: "Show the SQL compiled for each class",
	Long: `Show the statements used to load, insert, update and delete the objects
of each class, allocate their keys and maintain many-to-many links.

Examples:
  relmap statements                # All classes
  relmap statements Order Boss     # Selected classes
`,
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := loadRegistry()
		if err != nil {
			fail("Loading classes", err)
		}

		classes := reg.Classes()
		if len(args) > 0 {
			classes = classes[:0]
			for _, name := range args {
				cls, ok := reg.Lookup(name)
				if !ok {
					fmt.Printf("❌ Unknown class %s\n", name)
					os.Exit(1)
				}
				classes = append(classes, cls)
			}
		}

		title := color.New(color.FgCyan, color.Bold)
		for _, cls := range classes {
			stmts, err := mapper.Compile(cls)
			if err != nil {
				fail("Compiling "+cls.Name, err)
			}
			title.Printf("\n%s (%s)\n", cls.Name, cls.Relation)
			printStatements(stmts)
		}
	},
}

func printStatements(s *mapper.Statements) {
	fmt.Println("  load:     ", s.Load)
	fmt.Println("  insert:   ", s.Insert)
	if s.Update != "" {
		fmt.Println("  update:   ", s.Update)
	}
	fmt.Println("  delete:   ", s.Delete)
	fmt.Println("  next key: ", s.NextKey)
	for _, col := range s.Class.Columns() {
		p, ok := s.Pairs[col.Attr]
		if !ok {
			continue
		}
		fmt.Printf("  %s (%s):\n", col.Attr, col.Link)
		fmt.Println("    load:   ", p.Load)
		fmt.Println("    insert: ", p.Insert)
		fmt.Println("    delete: ", p.Delete)
	}
}
