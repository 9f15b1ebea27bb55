package seed

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"overthinkistan/internal/models"
	"overthinkistan/internal/validation"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yml
var defaultCategories string

// CategoryFixture is one entry of a categories YAML file.
type CategoryFixture struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Order       int    `yaml:"order"`
	Icon        string `yaml:"icon"`
}

type categoryFile struct {
	Categories []CategoryFixture `yaml:"categories"`
}

// Model converts the fixture into an unsaved category.
func (f CategoryFixture) Model() *models.Category {
	return &models.Category{
		Name:        strings.TrimSpace(f.Name),
		Description: f.Description,
		Order:       f.Order,
		Icon:        f.Icon,
	}
}

// LoadCategories parses a categories file. Unknown keys, blank names and
// duplicate names are rejected.
func LoadCategories(r io.Reader) ([]CategoryFixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file categoryFile
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parse categories: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Categories))
	for i, c := range file.Categories {
		if err := validation.ValidateCategoryName(c.Name); err != nil {
			return nil, fmt.Errorf("category %d: %w", i, err)
		}
		key := strings.ToLower(strings.TrimSpace(c.Name))
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("category %d: duplicate name %q", i, c.Name)
		}
		seen[key] = struct{}{}
	}
	return file.Categories, nil
}

// DefaultCategories returns the categories bundled with the binary.
func DefaultCategories() ([]CategoryFixture, error) {
	return LoadCategories(strings.NewReader(defaultCategories))
}
