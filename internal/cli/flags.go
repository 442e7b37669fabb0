package cli

import (
	"encoding/json"
	"fmt"
	"strings"
)

// KeyValueFlag collects repeated key=value flags. It implements flag.Value.
type KeyValueFlag []string

func (f *KeyValueFlag) String() string {
	return strings.Join(*f, ",")
}

// Set appends one key=value pair.
func (f *KeyValueFlag) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	*f = append(*f, v)
	return nil
}

// ParseFilters turns key=value pairs into metadata filters:
//
//	source=DGFT          string equality
//	country=IN,US        membership in a list of strings
//	year:=2024           JSON value (number, bool, list)
//
// A repeated key keeps the last value.
func ParseFilters(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		if raw, isJSON := strings.CutSuffix(key, ":"); isJSON {
			key = strings.TrimSpace(raw)
			if key == "" {
				return nil, fmt.Errorf("empty key in %q", pair)
			}
			var v interface{}
			if err := json.Unmarshal([]byte(value), &v); err != nil {
				return nil, fmt.Errorf("invalid JSON value for %q: %w", key, err)
			}
			out[key] = v
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("empty key in %q", pair)
		}
		if strings.Contains(value, ",") {
			items := strings.Split(value, ",")
			list := make([]string, 0, len(items))
			for _, item := range items {
				if item = strings.TrimSpace(item); item != "" {
					list = append(list, item)
				}
			}
			out[key] = list
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

// ParseMetadata turns key=value pairs into document metadata. Values are
// stored as strings, except key:=<json> pairs which keep their JSON type.
func ParseMetadata(pairs []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		if raw, isJSON := strings.CutSuffix(key, ":"); isJSON {
			var v interface{}
			if err := json.Unmarshal([]byte(value), &v); err != nil {
				return nil, fmt.Errorf("invalid JSON value for %q: %w", raw, err)
			}
			out[strings.TrimSpace(raw)] = v
			continue
		}
		if key = strings.TrimSpace(key); key == "" {
			return nil, fmt.Errorf("empty key in %q", pair)
		}
		out[key] = value
	}
	return out, nil
}
