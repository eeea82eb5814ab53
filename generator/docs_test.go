package generator

import (
	"path/filepath"
	"testing"

	"github.com/ridoystarlord/relmap/diff"
	"github.com/ridoystarlord/relmap/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appTarget(t *testing.T) *diff.Target {
	t.Helper()
	reg, err := loader.LoadRegistryFromYAML(filepath.Join("..", "loader", "testdata", "app.yaml"))
	require.NoError(t, err)
	target, err := diff.Layout(reg)
	require.NoError(t, err)
	return target
}

func TestGenerateDiagram(t *testing.T) {
	target := appTarget(t)

	mermaid, err := GenerateDiagram(target, Mermaid)
	require.NoError(t, err)
	assert.Contains(t, mermaid, "    order {\n        INTEGER __key__ PK\n")
	assert.Contains(t, mermaid, "        INTEGER order PK,FK\n")
	assert.Contains(t, mermaid, "    order ||--o{ order_item : order_fkey\n")

	uml, err := GenerateDiagram(target, PlantUML)
	require.NoError(t, err)
	assert.Contains(t, uml, "  __key__ : INTEGER <<PK>> <<NN>>\n")
	assert.Contains(t, uml, "\"boss\" ||--o{ \"department\" : \"boss_fkey\"\n")

	dot, err := GenerateDiagram(target, Graphviz)
	require.NoError(t, err)
	assert.Contains(t, dot, "  \"employee_orders\":\"employee\" -> \"employee\";\n")

	_, err = GenerateDiagram(target, "svg")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestMermaidName(t *testing.T) {
	assert.Equal(t, "order_item", mermaidName("order_item"))
	assert.Equal(t, `"order item"`, mermaidName("order item"))
}
