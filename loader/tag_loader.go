package loader

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/ridoystarlord/relmap/schema"
)

// TagName is the struct tag read by the tag loader.
const TagName = "relmap"

// TagLoader loads class definitions from Go structs with relmap tags.
//
// Every tagged exported field becomes a column:
//
//	type Order struct {
//		_         struct{}     `relmap:"relation:order;module:business"`
//		No        int          `relmap:"column:no"`
//		Finished  bool         `relmap:""`
//		Employees []*Employee  `relmap:"column:order;link:employee_orders;vcol:employee;vattr:orders"`
//	}
//
// The blank field carries class options. An embedded struct makes the
// class derive from it. A field whose type names another loaded struct is
// an association with that class.
type TagLoader struct {
	modelsDir string
}

// NewTagLoader creates a new tag loader
func NewTagLoader(modelsDir string) *TagLoader {
	return &TagLoader{
		modelsDir: modelsDir,
	}
}

// LoadRegistryFromTags loads the classes declared in a models directory.
func LoadRegistryFromTags(modelsDir string) (*schema.Registry, error) {
	defs, err := NewTagLoader(modelsDir).Load()
	if err != nil {
		return nil, err
	}
	return Build(defs)
}

// parsedStruct is a struct declaration before association resolution.
type parsedStruct struct {
	def    ClassDef
	fields []parsedField
}

type parsedField struct {
	col    ColumnDef
	goType string
}

// Load parses all Go files of the models directory.
func (tl *TagLoader) Load() ([]ClassDef, error) {
	if _, err := os.Stat(tl.modelsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("models directory '%s' does not exist. Run 'relmap init --models' first", tl.modelsDir)
	}

	var structs []*parsedStruct
	err := filepath.Walk(tl.modelsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		fileStructs, err := tl.parseGoFile(path)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		structs = append(structs, fileStructs...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}

	known := map[string]bool{}
	for _, s := range structs {
		known[s.def.Name] = true
	}
	defs := make([]ClassDef, 0, len(structs))
	for _, s := range structs {
		for _, f := range s.fields {
			col := f.col
			if col.Class == "" && known[f.goType] {
				col.Class = f.goType
			}
			if col.Class == "" && col.Type == "" {
				col.Type = inferDataType(f.goType)
			}
			s.def.Columns = append(s.def.Columns, col)
		}
		defs = append(defs, s.def)
	}
	return defs, nil
}

// parseGoFile extracts the tagged structs of a single Go file.
func (tl *TagLoader) parseGoFile(filePath string) ([]*parsedStruct, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Go file: %w", err)
	}

	var structs []*parsedStruct
	var parseErr error
	ast.Inspect(node, func(n ast.Node) bool {
		x, ok := n.(*ast.TypeSpec)
		if !ok || parseErr != nil {
			return parseErr == nil
		}
		if structType, ok := x.Type.(*ast.StructType); ok {
			s, err := tl.parseStruct(x.Name.Name, structType)
			if err != nil {
				parseErr = err
				return false
			}
			if s != nil {
				structs = append(structs, s)
			}
		}
		return true
	})
	return structs, parseErr
}

// parseStruct returns nil for structs without any relmap tag.
func (tl *TagLoader) parseStruct(structName string, structType *ast.StructType) (*parsedStruct, error) {
	s := &parsedStruct{def: ClassDef{Name: structName}}
	tagged := false

	for _, field := range structType.Fields.List {
		value, ok := tagValue(field.Tag)
		if len(field.Names) == 0 {
			// embedded struct: base class
			if value == "-" {
				continue
			}
			if base := strings.TrimLeft(getFieldType(field.Type), "*"); base != "" && !strings.Contains(base, ".") {
				s.def.Bases = append(s.def.Bases, base)
				tagged = true
			}
			continue
		}
		if !ok || value == "-" {
			continue
		}
		tagged = true

		fieldName := field.Names[0].Name
		if fieldName == "_" {
			if err := parseClassTag(&s.def, value); err != nil {
				return nil, fmt.Errorf("struct %s: %w", structName, err)
			}
			continue
		}
		if !ast.IsExported(fieldName) {
			continue
		}
		col, err := parseColumnTag(AttrName(fieldName), value)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", structName, fieldName, err)
		}
		s.fields = append(s.fields, parsedField{col: col, goType: elemType(getFieldType(field.Type))})
	}
	if !tagged {
		return nil, nil
	}
	return s, nil
}

func tagValue(tag *ast.BasicLit) (string, bool) {
	if tag == nil {
		return "", false
	}
	return reflect.StructTag(strings.Trim(tag.Value, "`")).Lookup(TagName)
}

// splitTag splits "key:value;flag" style tags.
func splitTag(tag string, fn func(key, value string) error) error {
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, ":")
		if err := fn(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return err
		}
	}
	return nil
}

func parseClassTag(def *ClassDef, tag string) error {
	return splitTag(tag, func(key, value string) error {
		switch key {
		case "relation":
			def.Relation = value
		case "sequencer":
			def.Sequencer = value
		case "module":
			def.Module = value
		case "bases":
			def.Bases = append(def.Bases, strings.Split(value, ",")...)
		default:
			return fmt.Errorf("unknown class option %q", key)
		}
		return nil
	})
}

func parseColumnTag(attr, tag string) (ColumnDef, error) {
	col := ColumnDef{Attr: attr}
	err := splitTag(tag, func(key, value string) error {
		switch key {
		case "attr":
			col.Attr = value
		case "column":
			col.Col = value
		case "type":
			col.Type = value
		case "class":
			col.Class = value
		case "link":
			col.Link = value
		case "vcol":
			col.VCol = value
		case "vattr":
			col.VAttr = value
		case "no_update":
			col.NoUpdate = true
		default:
			return fmt.Errorf("unknown column option %q", key)
		}
		return nil
	})
	return col, err
}

// getFieldType extracts the Go type name from an ast.Expr
func getFieldType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + getFieldType(t.X)
	case *ast.ArrayType:
		return "[]" + getFieldType(t.Elt)
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok {
			return x.Name + "." + t.Sel.Name
		}
	}
	return ""
}

// elemType strips pointers and slices: []*OrderItem gives OrderItem.
func elemType(goType string) string {
	for {
		switch {
		case strings.HasPrefix(goType, "*"):
			goType = goType[1:]
		case strings.HasPrefix(goType, "[]") && goType != "[]byte":
			goType = goType[2:]
		default:
			return goType
		}
	}
}

// inferDataType infers PostgreSQL data type from Go type
func inferDataType(goType string) string {
	switch goType {
	case "int", "int32":
		return "integer"
	case "int64":
		return "bigint"
	case "string":
		return "text"
	case "bool":
		return "boolean"
	case "float32", "float64":
		return "numeric"
	case "time.Time":
		return "timestamp"
	case "[]byte":
		return "bytea"
	default:
		return "text"
	}
}

// AttrName is the attribute a field maps to unless its tag names one:
// OrderItem gives order_item.
func AttrName(fieldName string) string {
	return toSnakeCase(fieldName)
}

// toSnakeCase converts PascalCase to snake_case
func toSnakeCase(s string) string {
	var b strings.Builder
	var prev rune
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' && prev >= 'a' && prev <= 'z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
		prev = r
	}
	return strings.ToLower(b.String())
}
