package types

import (
	"encoding/json"
	"fmt"
)

// SchemaType represents JSON Schema types.
type SchemaType string

const (
	SchemaTypeString  SchemaType = "string"
	SchemaTypeNumber  SchemaType = "number"
	SchemaTypeInteger SchemaType = "integer"
	SchemaTypeBoolean SchemaType = "boolean"
	SchemaTypeObject  SchemaType = "object"
	SchemaTypeArray   SchemaType = "array"
)

// JSONSchema is the subset of JSON Schema used to declare function
// parameters.
type JSONSchema struct {
	Type        SchemaType `json:"type,omitempty"`
	Description string     `json:"description,omitempty"`

	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`

	Items *JSONSchema `json:"items,omitempty"`
	Enum  []any       `json:"enum,omitempty"`
}

// NewObjectSchema creates an object schema that rejects unknown properties.
func NewObjectSchema() *JSONSchema {
	closed := false
	return &JSONSchema{
		Type:                 SchemaTypeObject,
		Properties:           map[string]*JSONSchema{},
		AdditionalProperties: &closed,
	}
}

// NewStringSchema creates a new string schema.
func NewStringSchema() *JSONSchema {
	return &JSONSchema{Type: SchemaTypeString}
}

// NewBooleanSchema creates a new boolean schema.
func NewBooleanSchema() *JSONSchema {
	return &JSONSchema{Type: SchemaTypeBoolean}
}

// AddProperty adds a property to an object schema.
func (s *JSONSchema) AddProperty(name string, prop *JSONSchema) *JSONSchema {
	if s.Properties == nil {
		s.Properties = make(map[string]*JSONSchema)
	}
	s.Properties[name] = prop
	return s
}

// AddRequired adds required field names.
func (s *JSONSchema) AddRequired(names ...string) *JSONSchema {
	s.Required = append(s.Required, names...)
	return s
}

// WithDescription sets the description.
func (s *JSONSchema) WithDescription(desc string) *JSONSchema {
	s.Description = desc
	return s
}

// Function declares a function whose parameters follow s.
func (s *JSONSchema) Function(name, description string) (FunctionSchema, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return FunctionSchema{}, fmt.Errorf("marshal parameters of %s: %w", name, err)
	}
	return FunctionSchema{Name: name, Description: description, Parameters: raw}, nil
}
