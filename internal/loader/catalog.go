// Package loader builds catalog metadata from a YAML catalog file,
// maintained by hand or exported from an extraction run. Cached catalogs
// load through the snapshot store in internal/state instead.
package loader

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sayiza/orapgsync/pkg/catalog"
	"github.com/sayiza/orapgsync/pkg/types"
)

// catalogFile is the YAML document shape.
type catalogFile struct {
	DefaultSchema string        `yaml:"default_schema"`
	Tables        []tableEntry  `yaml:"tables"`
	Views         []viewEntry   `yaml:"views"`
	Synonyms      []synonymEntry `yaml:"synonyms"`
	Packages      []packageEntry `yaml:"packages"`
	Types         []typeEntry   `yaml:"types"`
}

type tableEntry struct {
	Schema  string        `yaml:"schema"`
	Name    string        `yaml:"name"`
	Columns []columnEntry `yaml:"columns"`
}

type columnEntry struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type viewEntry struct {
	Schema  string            `yaml:"schema"`
	Name    string            `yaml:"name"`
	Columns []viewColumnEntry `yaml:"columns"`
}

type viewColumnEntry struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	PostgresType string `yaml:"postgres_type"`
}

type synonymEntry struct {
	Schema string `yaml:"schema"`
	Name   string `yaml:"name"`
	Target string `yaml:"target"`
}

type packageEntry struct {
	Name      string          `yaml:"name"`
	Functions []functionEntry `yaml:"functions"`
	Variables []variableEntry `yaml:"variables"`
}

type functionEntry struct {
	Name    string `yaml:"name"`
	Returns string `yaml:"returns"`
}

type variableEntry struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Constant bool   `yaml:"constant"`
	Default  string `yaml:"default"`
}

type typeEntry struct {
	Name    string       `yaml:"name"`
	Kind    string       `yaml:"kind"`
	Element string       `yaml:"element"`
	IndexBy string       `yaml:"index_by"`
	Limit   int          `yaml:"limit"`
	Fields  []columnEntry `yaml:"fields"`
}

// LoadCatalogFile reads a YAML catalog from disk.
func LoadCatalogFile(path string) (*catalog.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	meta, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return meta, nil
}

// ParseCatalog builds catalog metadata from a YAML document.
func ParseCatalog(data []byte) (*catalog.Metadata, error) {
	var doc catalogFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.DefaultSchema == "" {
		return nil, fmt.Errorf("catalog: default_schema is required")
	}

	meta := catalog.Empty(doc.DefaultSchema)

	for _, t := range doc.Tables {
		cols := make([]catalog.Column, 0, len(t.Columns))
		for _, c := range t.Columns {
			cols = append(cols, catalog.Column{
				Name:       c.Name,
				OracleType: strings.ToLower(c.Type),
				Category:   types.CategoryOfOracleType(c.Type),
			})
		}
		meta.AddTable(&catalog.Table{Schema: t.Schema, Name: t.Name, Columns: cols})
	}

	for _, v := range doc.Views {
		cols := make([]catalog.ViewColumn, 0, len(v.Columns))
		for _, c := range v.Columns {
			cols = append(cols, catalog.ViewColumn{
				Name:         c.Name,
				PostgresType: strings.ToLower(c.PostgresType),
				Category:     types.CategoryOfOracleType(c.Type),
			})
		}
		meta.AddViewColumns(v.Schema, v.Name, cols)
	}

	for _, s := range doc.Synonyms {
		targetSchema, targetName := splitTarget(s.Target)
		if targetName == "" {
			return nil, fmt.Errorf("catalog: synonym %s has no target", s.Name)
		}
		meta.AddSynonym(s.Schema, s.Name, targetSchema, targetName)
	}

	for _, p := range doc.Packages {
		for _, f := range p.Functions {
			meta.AddPackageFunction(catalog.PackageFunction{
				Package:    p.Name,
				Name:       f.Name,
				ReturnType: strings.ToLower(f.Returns),
				Category:   types.CategoryOfOracleType(f.Returns),
			})
		}
		for _, v := range p.Variables {
			meta.AddPackageVariable(catalog.PackageVariable{
				Package:    p.Name,
				Name:       v.Name,
				OracleType: strings.ToLower(v.Type),
				Category:   types.CategoryOfOracleType(v.Type),
				Constant:   v.Constant,
				Default:    v.Default,
			})
		}
	}

	for _, t := range doc.Types {
		def, err := typeDefFromEntry(t)
		if err != nil {
			return nil, err
		}
		meta.AddTypeDefinition(def)
	}

	return meta, nil
}

func splitTarget(target string) (schema, name string) {
	if i := strings.IndexByte(target, '.'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return "", target
}

func typeDefFromEntry(t typeEntry) (*types.InlineTypeDefinition, error) {
	def := &types.InlineTypeDefinition{
		Name:  strings.ToLower(t.Name),
		Limit: t.Limit,
	}
	switch strings.ToLower(t.Kind) {
	case "table_of":
		def.Kind = types.KindTableOf
	case "varray":
		def.Kind = types.KindVarray
	case "index_by":
		def.Kind = types.KindIndexBy
		def.IndexType = strings.ToLower(t.IndexBy)
	case "record":
		def.Kind = types.KindRecord
	default:
		return nil, fmt.Errorf("catalog: type %s has unknown kind %q", t.Name, t.Kind)
	}

	if def.Kind == types.KindRecord {
		for _, f := range t.Fields {
			def.Fields = append(def.Fields, types.RecordField{
				Name:       strings.ToLower(f.Name),
				OracleType: strings.ToLower(f.Type),
				Category:   types.CategoryOfOracleType(f.Type),
			})
		}
	} else {
		def.ElementType = strings.ToLower(t.Element)
		def.ElementCategory = types.CategoryOfOracleType(t.Element)
	}
	return def, nil
}
