package fhir

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Every resource variant serializes through this tag-driven codec: typed
// fields are written under their json tag names, unknown keys from the wire
// are kept verbatim in the variant's Extra map, and resourceType is derived
// from the variant's kind. marshal(unmarshal(x)) preserves every key.

func marshalResource(r Resource) ([]byte, error) {
	rv := reflect.ValueOf(r).Elem()
	rt := rv.Type()

	out := make(map[string]json.RawMessage)
	if extra, ok := rv.FieldByName("Extra").Interface().(map[string]json.RawMessage); ok {
		for k, v := range extra {
			out[k] = v
		}
	}
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name, omitEmpty := jsonTag(field)
		if name == "" {
			continue
		}
		fv := rv.Field(i)
		if omitEmpty && isEmptyValue(fv) {
			continue
		}
		b, err := json.Marshal(fv.Interface())
		if err != nil {
			return nil, fmt.Errorf("encode %s.%s: %w", r.Kind(), field.Name, err)
		}
		out[name] = b
	}
	kindRaw, err := json.Marshal(string(r.Kind()))
	if err != nil {
		return nil, err
	}
	out["resourceType"] = kindRaw
	return json.Marshal(out)
}

func unmarshalResource(data []byte, r Resource) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "resourceType")

	rv := reflect.ValueOf(r).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name, _ := jsonTag(field)
		if name == "" {
			continue
		}
		b, ok := raw[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(b, rv.Field(i).Addr().Interface()); err != nil {
			return fmt.Errorf("decode %s.%s: %w", r.Kind(), field.Name, err)
		}
		delete(raw, name)
	}
	if len(raw) > 0 {
		rv.FieldByName("Extra").Set(reflect.ValueOf(raw))
	}
	return nil
}

// jsonTag returns the wire name for a struct field, or "" for fields the
// codec must skip (unexported, untagged, or tagged "-", which includes the
// Extra bucket itself).
func jsonTag(field reflect.StructField) (name string, omitEmpty bool) {
	if field.PkgPath != "" {
		return "", false
	}
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return "", false
	}
	parts := strings.Split(tag, ",")
	if parts[0] == "" {
		return "", false
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return parts[0], omitEmpty
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.String:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}
