package template

import (
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Generate_RejectsWrongShape(t *testing.T) {
	r := &Registry{templates: map[string]*template.Template{
		"apex": template.Must(template.New("short").Parse("// {{ .FileName }}\n")),
	}}

	_, err := r.Generate("apex", "Foo", "Jane", "today")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadHeaderShape)
}
