package registry

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
	"gopkg.in/yaml.v3"

	"github.com/bft-labs/shipctl/internal/domain"
)

// Format is the encoding of a modules file.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

// FormatFromPath picks the format from the file extension. Anything that is
// not .yaml or .yml is read as TOML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Section is one module section of a modules file.
type Section struct {
	Name   string
	Values map[string]any
}

// Document is a decoded modules file, sections in declaration order.
type Document struct {
	Sections []Section
}

// LoadFile reads and decodes a modules file.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read modules file: %w", err)
	}
	return Parse(data, FormatFromPath(path))
}

// Parse decodes a modules file. Decoder errors wrap domain.ErrConfigParse.
func Parse(data []byte, format Format) (*Document, error) {
	switch format {
	case FormatYAML:
		return parseYAML(data)
	default:
		return parseTOML(data)
	}
}

func parseTOML(data []byte) (*Document, error) {
	var raw map[string]any
	dec := toml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigParse, err)
	}

	order, err := tomlTableOrder(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigParse, err)
	}

	doc := &Document{}
	for _, name := range order {
		values, ok := raw[name].(map[string]any)
		if !ok {
			continue
		}
		doc.Sections = append(doc.Sections, Section{Name: name, Values: values})
	}
	return doc, nil
}

// tomlTableOrder returns the top-level table names in declaration order.
// Decoding into a map loses that order, so the document is walked again
// with the expression parser.
func tomlTableOrder(data []byte) ([]string, error) {
	var p unstable.Parser
	p.Reset(data)

	seen := make(map[string]bool)
	var order []string
	for p.NextExpression() {
		expr := p.Expression()
		if expr.Kind != unstable.Table {
			continue
		}
		it := expr.Key()
		if !it.Next() {
			continue
		}
		name := string(it.Node().Data)
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	return order, p.Error()
}

func parseYAML(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigParse, err)
	}

	doc := &Document{}
	if len(root.Content) == 0 {
		return doc, nil
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping of modules", domain.ErrConfigParse)
	}

	for i := 0; i+1 < len(top.Content); i += 2 {
		keyNode, valNode := top.Content[i], top.Content[i+1]
		var values map[string]any
		if err := valNode.Decode(&values); err != nil {
			return nil, fmt.Errorf("%w: module %s: %v", domain.ErrConfigParse, keyNode.Value, err)
		}
		if values == nil {
			values = map[string]any{}
		}
		doc.Sections = append(doc.Sections, Section{Name: keyNode.Value, Values: values})
	}
	return doc, nil
}
