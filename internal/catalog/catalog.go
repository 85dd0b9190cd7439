// Package catalog загружает реестр площадок и таблицу правил перекрестных продаж.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iurnickita/ecosystem/internal/crosssell"
	"github.com/iurnickita/ecosystem/internal/model"
	"github.com/iurnickita/ecosystem/internal/property"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type document struct {
	Properties []propertyDoc         `yaml:"properties"`
	Rules      map[string][]ruleDoc `yaml:"rules"`
}

type propertyDoc struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Domain string `yaml:"domain"`
}

type ruleDoc struct {
	Key      string   `yaml:"key"`
	Property string   `yaml:"property"`
	Products []string `yaml:"products"`
	Message  string   `yaml:"message"`
}

// Catalog - реестр площадок и правила, загруженные один раз при старте.
type Catalog struct {
	Registry property.Registry
	Rules    crosssell.Rules
}

// Default возвращает встроенный каталог.
func Default() (Catalog, error) {
	return Parse(defaultCatalog)
}

// Load читает каталог из файла. Пустой путь - встроенный каталог.
func Load(path string) (Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("load catalog %q: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}

	properties := make([]property.Property, 0, len(doc.Properties))
	for _, p := range doc.Properties {
		properties = append(properties, property.Property{
			ID:     model.PropertyID(p.ID),
			Name:   p.Name,
			URL:    p.URL,
			Domain: p.Domain,
		})
	}
	registry, err := property.NewRegistry(properties)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog properties: %w", err)
	}

	table := make(map[model.PropertyID][]crosssell.Rule, len(doc.Rules))
	for source, rules := range doc.Rules {
		for _, r := range rules {
			table[model.PropertyID(source)] = append(table[model.PropertyID(source)], crosssell.Rule{
				Key:      r.Key,
				Target:   model.PropertyID(r.Property),
				Products: r.Products,
				Message:  r.Message,
			})
		}
	}
	rules, err := crosssell.NewRules(registry, table)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog rules: %w", err)
	}

	return Catalog{Registry: registry, Rules: rules}, nil
}
