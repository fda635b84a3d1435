package util

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// CreateSchema derives a JSON schema object from a Go struct using reflection.
//
// Supported struct tags:
//
//	json:"name,omitempty"   property name; omitempty or a pointer makes it optional
//	description:"..."       property description
//	enum:"a,b,c"            allowed string values
//	format:"date-time"      string format hint
func CreateSchema(structType any) map[string]any {
	t := reflect.TypeOf(structType)
	if t == nil {
		return emptyObject()
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return emptyObject()
	}

	properties := make(map[string]any)
	required := make([]any, 0)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		fieldName := field.Name
		if jsonTag != "" {
			if name := strings.Split(jsonTag, ",")[0]; name != "" {
				fieldName = name
			}
		}

		properties[fieldName] = fieldSchema(field)

		if !hasOmitEmpty(jsonTag) && field.Type.Kind() != reflect.Ptr {
			required = append(required, fieldName)
		}
	}

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func emptyObject() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func fieldSchema(field reflect.StructField) map[string]any {
	ft := field.Type
	if ft.Kind() == reflect.Ptr {
		ft = ft.Elem()
	}

	s := map[string]any{"type": getJSONType(ft)}
	if ft.Kind() == reflect.Slice || ft.Kind() == reflect.Array {
		s["items"] = map[string]any{"type": getJSONType(ft.Elem())}
	}
	if description := field.Tag.Get("description"); description != "" {
		s["description"] = description
	}
	if enum := field.Tag.Get("enum"); enum != "" {
		values := strings.Split(enum, ",")
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = strings.TrimSpace(v)
		}
		s["enum"] = out
	}
	if format := field.Tag.Get("format"); format != "" {
		s["format"] = format
	}
	return s
}

// Decode converts loosely typed model arguments into a typed struct.
func Decode(args map[string]any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

// getJSONType returns the JSON schema type for a given Go type.
func getJSONType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return getJSONType(t.Elem())
	default:
		return "string"
	}
}

// hasOmitEmpty checks if a JSON tag has the "omitempty" option.
func hasOmitEmpty(tag string) bool {
	parts := strings.Split(tag, ",")
	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "omitempty" {
			return true
		}
	}
	return false
}
