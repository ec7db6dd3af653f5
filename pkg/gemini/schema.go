package gemini

import (
	"fmt"
	"sort"

	"google.golang.org/genai"
)

// SchemaFromJSON converts a JSON Schema document (the subset objects, arrays,
// scalars, enums and bounds use) into a genai response schema.
func SchemaFromJSON(doc map[string]any) (*genai.Schema, error) {
	return convert("$", doc)
}

func convert(path string, doc map[string]any) (*genai.Schema, error) {
	out := &genai.Schema{}

	typeName, nullable, err := schemaType(doc["type"])
	if err != nil {
		return nil, fmt.Errorf("gemini schema %s: %w", path, err)
	}
	if nullable {
		out.Nullable = genai.Ptr(true)
	}

	switch typeName {
	case "object":
		out.Type = genai.TypeObject
		props, _ := doc["properties"].(map[string]any)
		if len(props) > 0 {
			out.Properties = make(map[string]*genai.Schema, len(props))
			names := make([]string, 0, len(props))
			for name := range props {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				sub, ok := props[name].(map[string]any)
				if !ok {
					return nil, fmt.Errorf("gemini schema %s.%s: property is not an object", path, name)
				}
				s, err := convert(path+"."+name, sub)
				if err != nil {
					return nil, err
				}
				out.Properties[name] = s
			}
			out.PropertyOrdering = names
		}
		out.Required = toStrings(doc["required"])
	case "array":
		out.Type = genai.TypeArray
		if items, ok := doc["items"].(map[string]any); ok {
			s, err := convert(path+"[]", items)
			if err != nil {
				return nil, err
			}
			out.Items = s
		}
		if n, ok := toInt64(doc["minItems"]); ok {
			out.MinItems = genai.Ptr(n)
		}
		if n, ok := toInt64(doc["maxItems"]); ok {
			out.MaxItems = genai.Ptr(n)
		}
	case "string":
		out.Type = genai.TypeString
		out.Enum = toStrings(doc["enum"])
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		return nil, fmt.Errorf("gemini schema %s: unsupported type %q", path, typeName)
	}

	if d, ok := doc["description"].(string); ok {
		out.Description = d
	}
	if v, ok := toFloat(doc["minimum"]); ok {
		out.Minimum = genai.Ptr(v)
	}
	if v, ok := toFloat(doc["maximum"]); ok {
		out.Maximum = genai.Ptr(v)
	}
	return out, nil
}

func schemaType(v any) (string, bool, error) {
	switch t := v.(type) {
	case string:
		return t, false, nil
	case []any:
		var (
			name     string
			nullable bool
		)
		for _, item := range t {
			s, _ := item.(string)
			if s == "null" {
				nullable = true
				continue
			}
			name = s
		}
		return name, nullable, nil
	case []string:
		return schemaType(toAny(t))
	default:
		return "", false, fmt.Errorf("missing type")
	}
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
