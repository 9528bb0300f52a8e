package tools

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// SchemaFor infers the parameter schema of a tool from its argument struct.
// Fields without omitempty are required; the jsonschema tag is the
// field description.
func SchemaFor[T any]() (map[string]any, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("inferring schema: %w", err)
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	// Unknown extra arguments are ignored rather than rejected.
	delete(m, "additionalProperties")
	if _, ok := m["properties"]; !ok {
		m["properties"] = map[string]any{}
	}
	return m, nil
}

func mustSchema[T any]() map[string]any {
	m, err := SchemaFor[T]()
	if err != nil {
		panic(err)
	}
	return m
}
