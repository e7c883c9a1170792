package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"google.golang.org/genai"
)

// contentFieldNames is the field order of the JSON object the model must return
var contentFieldNames = []string{"slug", "name", "title", "description", "keywords", "h1", "excerpt", "text", "faq"}

const contentSchemaJSON = `{
  "type": "object",
  "properties": {
    "slug":        {"type": "string", "description": "SEO-friendly URL slug"},
    "name":        {"type": "string", "description": "Service or brand name"},
    "title":       {"type": "string", "description": "Meta title"},
    "description": {"type": "string", "description": "Meta description"},
    "keywords":    {"type": "string", "description": "Comma separated high-frequency keywords"},
    "h1":          {"type": "string", "description": "Main landing header"},
    "excerpt":     {"type": "string", "description": "Marketing lead paragraph"},
    "text":        {"type": "string", "description": "Full article"},
    "faq":         {"type": "string", "description": "FAQ section, ### per question"}
  },
  "required": ["slug", "name", "title", "description", "keywords", "h1", "excerpt", "text", "faq"]
}`

var contentSchema = mustCompileContentSchema()

func mustCompileContentSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("content.json", strings.NewReader(contentSchemaJSON)); err != nil {
		panic(fmt.Sprintf("content schema: %v", err))
	}
	schema, err := compiler.Compile("content.json")
	if err != nil {
		panic(fmt.Sprintf("content schema: %v", err))
	}
	return schema
}

// schemaNode is the subset of JSON Schema the content schema uses
type schemaNode struct {
	Type        string                `json:"type"`
	Description string                `json:"description"`
	Required    []string              `json:"required"`
	Items       *schemaNode           `json:"items"`
	Properties  map[string]schemaNode `json:"properties"`
}

var genaiTypes = map[string]genai.Type{
	"object":  genai.TypeObject,
	"array":   genai.TypeArray,
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
}

// geminiContentSchema returns the response schema passed to Gemini for
// structured output. Properties keep the order of contentFieldNames.
func geminiContentSchema() (*genai.Schema, error) {
	var root schemaNode
	if err := json.Unmarshal([]byte(contentSchemaJSON), &root); err != nil {
		return nil, fmt.Errorf("failed to decode content schema: %w", err)
	}
	schema, err := root.toGenai("content")
	if err != nil {
		return nil, err
	}
	schema.PropertyOrdering = contentFieldNames
	return schema, nil
}

func (n schemaNode) toGenai(path string) (*genai.Schema, error) {
	t, ok := genaiTypes[strings.ToLower(n.Type)]
	if !ok {
		return nil, fmt.Errorf("%s: unsupported schema type %q", path, n.Type)
	}

	schema := &genai.Schema{
		Type:        t,
		Description: n.Description,
		Required:    n.Required,
	}
	if n.Items != nil {
		items, err := n.Items.toGenai(path + "[]")
		if err != nil {
			return nil, err
		}
		schema.Items = items
	}
	if len(n.Properties) > 0 {
		schema.Properties = make(map[string]*genai.Schema, len(n.Properties))
		for name, prop := range n.Properties {
			converted, err := prop.toGenai(path + "." + name)
			if err != nil {
				return nil, err
			}
			schema.Properties[name] = converted
		}
	}
	return schema, nil
}
