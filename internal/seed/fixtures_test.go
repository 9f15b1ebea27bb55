package seed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCategories(t *testing.T) {
	fixtures, err := DefaultCategories()
	require.NoError(t, err)
	require.NotEmpty(t, fixtures)

	names := make([]string, 0, len(fixtures))
	for _, f := range fixtures {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "Comedy")
	assert.Equal(t, "General", fixtures[0].Name)
	assert.Equal(t, 0, fixtures[0].Order)
}

func TestLoadCategories(t *testing.T) {
	doc := `
categories:
  - name: " Puzzles "
    description: Brain teasers
    order: 4
`
	fixtures, err := LoadCategories(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, fixtures, 1)

	model := fixtures[0].Model()
	assert.Equal(t, "Puzzles", model.Name)
	assert.Equal(t, 4, model.Order)
	assert.Empty(t, model.RefID)
}

func TestLoadCategories_Rejections(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"duplicate ignoring case", "categories:\n  - name: Comedy\n  - name: comedy\n", "duplicate name"},
		{"blank name", "categories:\n  - name: \"  \"\n", "name is required"},
		{"unknown key", "categories:\n  - name: Comedy\n    colour: red\n", "parse categories"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCategories(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadCategories_Empty(t *testing.T) {
	fixtures, err := LoadCategories(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, fixtures)
}
