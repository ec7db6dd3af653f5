package contract

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"
)

type FieldType string

const (
	TypeString  FieldType = "string"
	TypeBoolean FieldType = "boolean"
	TypeNumber  FieldType = "number"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
	// TypeRecord is a free-form map with string keys.
	TypeRecord FieldType = "record"
)

// Field describes one typed member of a Shape. Items is the element description for
// arrays and Fields the members of an object.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
	NonEmpty    bool
	Enum        []string
	Min         *float64
	Max         *float64
	MinItems    int
	MaxItems    int
	Items       *Field
	Fields      []Field
}

// Rule checks a constraint spanning several fields of one record.
type Rule func(record map[string]any) *Violation

// Shape is the typed description of a contract's input or output record.
type Shape struct {
	Fields []Field
	Rules  []Rule
}

type Violation struct {
	Path   string
	Reason string
}

type Violations []Violation

func (v Violations) Error() string {
	parts := make([]string, 0, len(v))
	for _, item := range v {
		parts = append(parts, item.Path+" "+item.Reason)
	}
	return strings.Join(parts, "; ")
}

func Bound(v float64) *float64 {
	return &v
}

// Field looks up a top-level field by name.
func (s Shape) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Check type-checks record field by field. It never coerces: a value of the wrong
// type, a missing required field or an out-of-range number is a violation.
// The returned error is a Violations value or nil.
func (s Shape) Check(record map[string]any) error {
	var out Violations
	if record == nil {
		out = append(out, Violation{Path: "$", Reason: "record is missing"})
		return out
	}
	for _, f := range s.Fields {
		checkValue(f.Name, f, record[f.Name], &out)
	}
	if len(out) == 0 {
		for _, rule := range s.Rules {
			if v := rule(record); v != nil {
				out = append(out, *v)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func checkValue(path string, f Field, v any, out *Violations) {
	if v == nil {
		if f.Required {
			*out = append(*out, Violation{Path: path, Reason: "is required"})
		}
		return
	}

	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			*out = append(*out, Violation{Path: path, Reason: fmt.Sprintf("expected string, got %T", v)})
			return
		}
		if f.NonEmpty && strings.TrimSpace(s) == "" {
			*out = append(*out, Violation{Path: path, Reason: "must not be empty"})
			return
		}
		if len(f.Enum) > 0 && !slices.Contains(f.Enum, s) {
			*out = append(*out, Violation{Path: path, Reason: fmt.Sprintf("must be one of %v, got %q", f.Enum, s)})
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			*out = append(*out, Violation{Path: path, Reason: fmt.Sprintf("expected boolean, got %T", v)})
		}
	case TypeNumber:
		n, ok := toFloat(v)
		if !ok {
			*out = append(*out, Violation{Path: path, Reason: fmt.Sprintf("expected number, got %T", v)})
			return
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			*out = append(*out, Violation{Path: path, Reason: "must be finite"})
			return
		}
		if f.Min != nil && n < *f.Min {
			*out = append(*out, Violation{Path: path, Reason: fmt.Sprintf("must be >= %v, got %v", *f.Min, n)})
		}
		if f.Max != nil && n > *f.Max {
			*out = append(*out, Violation{Path: path, Reason: fmt.Sprintf("must be <= %v, got %v", *f.Max, n)})
		}
	case TypeArray:
		items, ok := toSlice(v)
		if !ok {
			*out = append(*out, Violation{Path: path, Reason: fmt.Sprintf("expected array, got %T", v)})
			return
		}
		if f.NonEmpty && len(items) == 0 {
			*out = append(*out, Violation{Path: path, Reason: "must not be empty"})
		}
		if len(items) < f.MinItems {
			*out = append(*out, Violation{Path: path, Reason: fmt.Sprintf("needs at least %d items, got %d", f.MinItems, len(items))})
		}
		if f.MaxItems > 0 && len(items) > f.MaxItems {
			*out = append(*out, Violation{Path: path, Reason: fmt.Sprintf("allows at most %d items, got %d", f.MaxItems, len(items))})
		}
		if f.Items == nil {
			return
		}
		elem := *f.Items
		elem.Required = true
		for i, item := range items {
			checkValue(fmt.Sprintf("%s[%d]", path, i), elem, item, out)
		}
	case TypeObject:
		m, ok := toMap(v)
		if !ok {
			*out = append(*out, Violation{Path: path, Reason: fmt.Sprintf("expected object, got %T", v)})
			return
		}
		for _, sub := range f.Fields {
			checkValue(path+"."+sub.Name, sub, m[sub.Name], out)
		}
	case TypeRecord:
		if _, ok := toMap(v); !ok {
			*out = append(*out, Violation{Path: path, Reason: fmt.Sprintf("expected record, got %T", v)})
		}
	default:
		*out = append(*out, Violation{Path: path, Reason: fmt.Sprintf("unsupported field type %q", f.Type)})
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toSlice(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func toMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}

// JSONSchema renders the shape as a JSON Schema object. In strict mode every property
// is listed as required, optional ones become nullable, and numeric/length keywords
// are left out because strict structured-output endpoints reject them; Check still
// enforces those bounds locally.
func (s Shape) JSONSchema(strict bool) map[string]any {
	return objectSchema(s.Fields, strict)
}

// SchemaText is the indented JSON rendering used inside prompts.
func (s Shape) SchemaText() string {
	raw, err := json.MarshalIndent(s.JSONSchema(false), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func objectSchema(fields []Field, strict bool) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		fs := fieldSchema(f, strict)
		if strict && !f.Required {
			if t, ok := fs["type"].(string); ok {
				fs["type"] = []any{t, "null"}
			}
			if enum, ok := fs["enum"].([]any); ok {
				fs["enum"] = append(enum, nil)
			}
		}
		props[f.Name] = fs
		if f.Required || strict {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func fieldSchema(f Field, strict bool) map[string]any {
	var out map[string]any
	switch f.Type {
	case TypeArray:
		out = map[string]any{"type": "array"}
		if f.Items != nil {
			out["items"] = fieldSchema(*f.Items, strict)
		}
		if !strict {
			if f.MinItems > 0 {
				out["minItems"] = f.MinItems
			}
			if f.MaxItems > 0 {
				out["maxItems"] = f.MaxItems
			}
		}
	case TypeObject:
		out = objectSchema(f.Fields, strict)
	case TypeRecord:
		out = map[string]any{"type": "object", "additionalProperties": true}
	default:
		out = map[string]any{"type": string(f.Type)}
		if len(f.Enum) > 0 {
			enum := make([]any, 0, len(f.Enum))
			for _, e := range f.Enum {
				enum = append(enum, e)
			}
			out["enum"] = enum
		}
		if !strict {
			if f.Min != nil {
				out["minimum"] = *f.Min
			}
			if f.Max != nil {
				out["maximum"] = *f.Max
			}
		}
	}
	if f.Description != "" {
		out["description"] = f.Description
	}
	return out
}
