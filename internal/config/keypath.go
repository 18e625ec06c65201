package config

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/davetashner/llmagg/internal/aggregate"
)

// GetValue returns the value at a dot-notation key path of cfg. Leaves come
// back as scalars, function blocks as maps.
func GetValue(cfg *Config, keyPath string) (any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	var node any = map[string]any{}
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}

	for _, part := range strings.Split(keyPath, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("key %q: %q has no sub-keys", keyPath, part)
		}
		if node, ok = m[part]; !ok {
			return nil, fmt.Errorf("key %q not found", keyPath)
		}
	}
	return node, nil
}

// SetValue stores rawValue at keyPath in a raw config map, parsed as the type
// of the Config field the path names. Missing function blocks are created.
func SetValue(data map[string]any, keyPath string, rawValue string) error {
	t, err := fieldType(keyPath)
	if err != nil {
		return err
	}
	value, err := parseAs(t, rawValue)
	if err != nil {
		return fmt.Errorf("key %q: %w", keyPath, err)
	}

	parts := strings.Split(keyPath, ".")
	parent := data
	for _, part := range parts[:len(parts)-1] {
		switch child := parent[part].(type) {
		case map[string]any:
			parent = child
		case nil:
			next := map[string]any{}
			parent[part] = next
			parent = next
		default:
			return fmt.Errorf("key %q is not a map", part)
		}
	}
	parent[parts[len(parts)-1]] = value
	return nil
}

// FlattenMap flattens nested maps into dot-notation keys.
func FlattenMap(m map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)
	var walk func(map[string]any, string)
	walk = func(m map[string]any, prefix string) {
		for k, v := range m {
			if prefix != "" {
				k = prefix + "." + k
			}
			if sub, ok := v.(map[string]any); ok {
				walk(sub, k)
				continue
			}
			flat[k] = v
		}
	}
	walk(m, prefix)
	return flat
}

// ValidateKeyPath reports whether keyPath names a settable config entry:
// a top-level setting, a registered function's block, or one of its fields.
func ValidateKeyPath(keyPath string) error {
	t, err := fieldType(keyPath)
	if err != nil {
		return err
	}
	if t.Kind() == reflect.Map {
		return fmt.Errorf("%s requires a function name (e.g. %s.reduce)", keyPath, keyPath)
	}
	return nil
}

// fieldType walks keyPath through the Config schema by yaml tag and returns
// the type found there. Map keys must be registered aggregate functions.
func fieldType(keyPath string) (reflect.Type, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("empty key path")
	}

	t := reflect.TypeOf(Config{})
	walked := ""
	for _, part := range strings.Split(keyPath, ".") {
		switch t.Kind() {
		case reflect.Struct:
			fields := yamlFields(t)
			f, ok := fields[part]
			if !ok {
				what := "key"
				if walked != "" {
					what = walked + " field"
				}
				return nil, fmt.Errorf("unknown %s %q; valid: %s", what, part,
					strings.Join(slices.Sorted(maps.Keys(fields)), ", "))
			}
			t = f
		case reflect.Map:
			if aggregate.Get(part) == nil {
				return nil, fmt.Errorf("unknown function %q; registered functions: %s",
					part, strings.Join(aggregate.List(), ", "))
			}
			t = t.Elem()
		default:
			return nil, fmt.Errorf("key %q is a scalar; cannot use sub-keys", walked)
		}
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if walked == "" {
			walked = part
		} else {
			walked += "." + part
		}
	}
	return t, nil
}

// yamlFields maps a struct's yaml tag names to the field types.
func yamlFields(t reflect.Type) map[string]reflect.Type {
	fields := make(map[string]reflect.Type, t.NumField())
	for _, f := range reflect.VisibleFields(t) {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields[name] = f.Type
	}
	return fields
}

func parseAs(t reflect.Type, raw string) (any, error) {
	switch t.Kind() {
	case reflect.String:
		return raw, nil
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", raw)
		}
		return n, nil
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return f, nil
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", raw)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("a %s block cannot be set from a single value", t.Kind())
	}
}
