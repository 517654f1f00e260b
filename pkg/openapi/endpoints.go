package openapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sirosfoundation/go-xrd/pkg/fault"
)

// DocumentType is the serialization format of an OpenAPI description.
type DocumentType string

// Supported description formats.
const (
	TypeJSON DocumentType = "json"
	TypeYAML DocumentType = "yaml"
)

// httpVerbs are the path-item keys that describe operations. Other keys
// (parameters, servers, extensions) are skipped.
var httpVerbs = map[string]bool{
	"get":     true,
	"put":     true,
	"post":    true,
	"delete":  true,
	"options": true,
	"head":    true,
	"patch":   true,
	"trace":   true,
}

// Document is a loaded OpenAPI description. The document tree keeps the
// original key order, so endpoint listings reflect the authored order.
type Document struct {
	Type DocumentType
	root *yaml.Node
}

// Endpoint is one operation of an OpenAPI description.
type Endpoint struct {
	Method      string // uppercase HTTP verb
	Path        string
	Summary     string
	Description string
}

// Load parses an OpenAPI description blob. JSON is detected first since
// every JSON document is also valid YAML.
func Load(data []byte) (*Document, error) {
	docType := TypeYAML
	if json.Valid(data) {
		docType = TypeJSON
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: parsing OpenAPI description: %v", fault.ErrFormat, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: empty OpenAPI description", fault.ErrFormat)
	}

	return &Document{Type: docType, root: root.Content[0]}, nil
}

// Endpoints lists the document's operations in authored order: paths in
// declaration order, and within each path its verbs in declaration order.
func (d *Document) Endpoints() ([]Endpoint, error) {
	paths := mappingValue(d.root, "paths")
	if paths == nil {
		return nil, fmt.Errorf("%w: OpenAPI description has no paths object", fault.ErrFormat)
	}
	if paths.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: OpenAPI paths is not an object", fault.ErrFormat)
	}

	var endpoints []Endpoint
	for i := 0; i+1 < len(paths.Content); i += 2 {
		path := paths.Content[i].Value
		item := paths.Content[i+1]
		if item.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			verb := item.Content[j].Value
			if !httpVerbs[verb] {
				continue
			}
			operation := item.Content[j+1]
			endpoints = append(endpoints, Endpoint{
				Method:      strings.ToUpper(verb),
				Path:        path,
				Summary:     scalarValue(operation, "summary"),
				Description: scalarValue(operation, "description"),
			})
		}
	}
	return endpoints, nil
}

// Endpoints lists the operations of a description blob in one step.
func Endpoints(data []byte) ([]Endpoint, error) {
	doc, err := Load(data)
	if err != nil {
		return nil, err
	}
	return doc.Endpoints()
}

// mappingValue returns the value node of a mapping key, or nil.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// scalarValue returns a mapping's scalar value for key, or "".
func scalarValue(node *yaml.Node, key string) string {
	value := mappingValue(node, key)
	if value == nil || value.Kind != yaml.ScalarNode {
		return ""
	}
	return value.Value
}
