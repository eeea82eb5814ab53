package generator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ridoystarlord/relmap/diff"
)

// Diagram formats supported by GenerateDiagram.
const (
	PlantUML = "plantuml"
	Mermaid  = "mermaid"
	Graphviz = "graphviz"
)

// GenerateDiagram renders the relations of a layout as an ER diagram.
func GenerateDiagram(target *diff.Target, format string) (string, error) {
	switch format {
	case PlantUML:
		return generatePlantUMLContent(target), nil
	case Mermaid:
		return generateMermaidContent(target), nil
	case Graphviz:
		return generateGraphvizContent(target), nil
	}
	return "", fmt.Errorf("unsupported format: %s", format)
}

func columnMarks(table *diff.Table, col diff.Column, fks map[[2]string]bool) []string {
	var marks []string
	if slices.Contains(table.PrimaryKey, col.Name) {
		marks = append(marks, "PK")
	}
	if fks[[2]string{table.Name, col.Name}] {
		marks = append(marks, "FK")
	}
	return marks
}

func foreignKeySet(target *diff.Target) map[[2]string]bool {
	fks := map[[2]string]bool{}
	for _, fk := range target.ForeignKeys {
		fks[[2]string{fk.Table, fk.Column}] = true
	}
	return fks
}

func displayType(typ string) string {
	return strings.ReplaceAll(strings.ToUpper(typ), " ", "_")
}

func generatePlantUMLContent(target *diff.Target) string {
	var content strings.Builder
	fks := foreignKeySet(target)

	content.WriteString("@startuml\n")
	content.WriteString("!theme plain\n")
	content.WriteString("skinparam linetype ortho\n\n")

	for i := range target.Tables {
		table := &target.Tables[i]
		fmt.Fprintf(&content, "entity \"%s\" {\n", table.Name)
		for _, col := range table.Columns {
			line := fmt.Sprintf("  %s : %s", col.Name, displayType(col.Type))
			for _, m := range columnMarks(table, col, fks) {
				line += fmt.Sprintf(" <<%s>>", m)
			}
			if col.NotNull {
				line += " <<NN>>"
			}
			content.WriteString(line + "\n")
		}
		content.WriteString("}\n\n")
	}

	for _, fk := range target.ForeignKeys {
		fmt.Fprintf(&content, "\"%s\" ||--o{ \"%s\" : \"%s\"\n", fk.References, fk.Table, fk.Column)
	}

	content.WriteString("@enduml\n")
	return content.String()
}

func generateMermaidContent(target *diff.Target) string {
	var content strings.Builder
	fks := foreignKeySet(target)

	content.WriteString("```mermaid\nerDiagram\n")
	for i := range target.Tables {
		table := &target.Tables[i]
		fmt.Fprintf(&content, "    %s {\n", mermaidName(table.Name))
		for _, col := range table.Columns {
			line := fmt.Sprintf("        %s %s", displayType(col.Type), col.Name)
			if marks := columnMarks(table, col, fks); len(marks) > 0 {
				line += " " + strings.Join(marks, ",")
			}
			content.WriteString(line + "\n")
		}
		content.WriteString("    }\n")
	}

	for _, fk := range target.ForeignKeys {
		fmt.Fprintf(&content, "    %s ||--o{ %s : %s\n", mermaidName(fk.References), mermaidName(fk.Table), fk.Column)
	}

	content.WriteString("```\n")
	return content.String()
}

// mermaidName quotes entity names Mermaid would not parse as is.
func mermaidName(name string) string {
	for _, r := range name {
		if !(r == '_' || r == '-' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Sprintf("%q", name)
		}
	}
	return name
}

func generateGraphvizContent(target *diff.Target) string {
	var content strings.Builder

	content.WriteString("digraph ERD {\n")
	content.WriteString("  rankdir=LR;\n")
	content.WriteString("  node [shape=record, fontname=\"Helvetica\"];\n\n")

	for _, table := range target.Tables {
		var fields []string
		for _, col := range table.Columns {
			fields = append(fields, fmt.Sprintf("<%s> %s : %s", col.Name, col.Name, col.Type))
		}
		fmt.Fprintf(&content, "  \"%s\" [label=\"{%s|%s}\"];\n", table.Name, table.Name, strings.Join(fields, "|"))
	}
	content.WriteString("\n")

	for _, fk := range target.ForeignKeys {
		fmt.Fprintf(&content, "  \"%s\":\"%s\" -> \"%s\";\n", fk.Table, fk.Column, fk.References)
	}

	content.WriteString("}\n")
	return content.String()
}
