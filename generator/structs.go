package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/ridoystarlord/relmap/diff"
	"github.com/ridoystarlord/relmap/loader"
)

type modelsData struct {
	PackageName string
	NeedsTime   bool
	Models      []modelData
}

type modelData struct {
	Name     string
	Bases    []string
	ClassTag string
	Fields   []fieldData
}

type fieldData struct {
	Name string
	Type string
	Tag  string
}

const modelsTemplate = `// Code generated by relmap. DO NOT EDIT.

package {{.PackageName}}
{{if .NeedsTime}}
import "time"
{{end}}
{{range .Models}}
type {{.Name}} struct {
{{- range .Bases}}
	{{.}}
{{- end}}
	_ struct{} ` + "`{{.ClassTag}}`" + `
{{- range .Fields}}
	{{.Name}} {{.Type}} ` + "`{{.Tag}}`" + `
{{- end}}
}
{{end}}`

var modelsTmpl = template.Must(template.New("models").Parse(modelsTemplate))

// GenerateModels renders the class definitions as Go structs carrying
// relmap tags. Loading the result with the tag loader gives back the
// same classes.
func GenerateModels(defs []loader.ClassDef, packageName string) ([]byte, error) {
	data := modelsData{PackageName: packageName}
	for _, def := range defs {
		md := modelData{
			Name:     def.Name,
			Bases:    def.Bases,
			ClassTag: classTag(def),
		}
		for _, col := range def.Columns {
			f := fieldData{
				Name: toPascalCase(col.Attr),
				Type: fieldType(col),
				Tag:  columnTag(col),
			}
			if f.Type == "time.Time" {
				data.NeedsTime = true
			}
			md.Fields = append(md.Fields, f)
		}
		data.Models = append(data.Models, md)
	}

	var buf bytes.Buffer
	if err := modelsTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing models template: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting generated models: %w", err)
	}
	return src, nil
}

// WriteModelsFile writes the generated structs to dir/models.go.
func WriteModelsFile(dir, packageName string, defs []loader.ClassDef) (string, error) {
	src, err := GenerateModels(defs, packageName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating models directory: %w", err)
	}
	filename := filepath.Join(dir, "models.go")
	if err := os.WriteFile(filename, src, 0o644); err != nil {
		return "", fmt.Errorf("writing models file: %w", err)
	}
	return filename, nil
}

func classTag(def loader.ClassDef) string {
	var opts []string
	if def.Relation != "" {
		opts = append(opts, "relation:"+def.Relation)
	}
	if def.Sequencer != "" {
		opts = append(opts, "sequencer:"+def.Sequencer)
	}
	if def.Module != "" {
		opts = append(opts, "module:"+def.Module)
	}
	return fmt.Sprintf(`%s:"%s"`, loader.TagName, strings.Join(opts, ";"))
}

func columnTag(col loader.ColumnDef) string {
	var opts []string
	if loader.AttrName(toPascalCase(col.Attr)) != col.Attr {
		opts = append(opts, "attr:"+col.Attr)
	}
	if col.Col != "" && col.Col != col.Attr {
		opts = append(opts, "column:"+col.Col)
	}
	for _, kv := range [][2]string{{"link", col.Link}, {"vcol", col.VCol}, {"vattr", col.VAttr}, {"type", col.Type}} {
		if kv[1] != "" {
			opts = append(opts, kv[0]+":"+kv[1])
		}
	}
	if col.NoUpdate {
		opts = append(opts, "no_update")
	}
	return fmt.Sprintf(`%s:"%s" json:"%s"`, loader.TagName, strings.Join(opts, ";"), col.Attr)
}

// fieldType picks the Go type of a column. Association fields name the
// referenced struct, which is how the tag loader finds the class.
func fieldType(col loader.ColumnDef) string {
	switch {
	case col.Class != "" && (col.Link != "" || col.VCol != ""):
		return "[]*" + col.Class
	case col.Class != "":
		return "*" + col.Class
	}
	return goType(col.Type)
}

func goType(sqlType string) string {
	switch diff.NormalizeType(sqlType) {
	case "integer", "smallint":
		return "int"
	case "bigint":
		return "int64"
	case "boolean":
		return "bool"
	case "numeric", "real", "double precision":
		return "float64"
	case "timestamp without time zone", "timestamp with time zone", "date":
		return "time.Time"
	case "bytea":
		return "[]byte"
	default:
		return "string"
	}
}

func toPascalCase(s string) string {
	parts := strings.Split(s, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}
