// Package exchange exports a session's palaces and associations to a
// portable document and imports such documents back, re-linking records by
// name.
package exchange

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeanpaul/loci/internal/schema"
)

// Document is the portable form of one session. Field names are part of the
// file format.
type Document struct {
	Palaces    []PalaceEntry   `json:"palaces" yaml:"palaces"`
	Categories []CategoryEntry `json:"categories" yaml:"categories"`
	// Associations is always written empty and ignored on import; older
	// exports carry it.
	Associations []AssociationEntry `json:"associations" yaml:"associations"`
}

type PalaceEntry struct {
	Name  string   `json:"name" yaml:"name"`
	Items []string `json:"items" yaml:"items"`
}

type CategoryEntry struct {
	Name         string             `json:"name" yaml:"name"`
	Associations []AssociationEntry `json:"associations" yaml:"associations"`
}

type AssociationEntry struct {
	Topic      string `json:"topic" yaml:"topic"`
	PalaceName string `json:"palace_name" yaml:"palace_name"`
	Content    string `json:"content" yaml:"content"`
}

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

//go:embed document.schema.json
var documentSchema []byte

var validator = schema.NewValidator()

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported file type %q (use .json, .yaml or .xlsx)", filepath.Ext(path))
}

// normalize replaces nil slices so they encode as empty lists.
func (d *Document) normalize() {
	if d.Palaces == nil {
		d.Palaces = []PalaceEntry{}
	}
	if d.Categories == nil {
		d.Categories = []CategoryEntry{}
	}
	d.Associations = []AssociationEntry{}
	for i := range d.Palaces {
		if d.Palaces[i].Items == nil {
			d.Palaces[i].Items = []string{}
		}
	}
	for i := range d.Categories {
		if d.Categories[i].Associations == nil {
			d.Categories[i].Associations = []AssociationEntry{}
		}
	}
}

// Encode renders doc in the given format.
func Encode(doc *Document, format Format) ([]byte, error) {
	doc.normalize()
	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(doc)
	}
	return nil, fmt.Errorf("cannot encode %s documents", format)
}

// Decode parses and validates a document.
func Decode(data []byte, format Format) (*Document, error) {
	switch format {
	case FormatJSON:
	case FormatYAML:
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		converted, err := json.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("convert yaml: %w", err)
		}
		data = converted
	default:
		return nil, fmt.Errorf("cannot decode %s documents", format)
	}

	if err := validator.Validate(documentSchema, data); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	doc.normalize()
	return &doc, nil
}
