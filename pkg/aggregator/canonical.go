package aggregator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// CanonicalJSON renders a value deterministically: object keys sorted at
// every level, no whitespace, numbers in their shortest round-trippable
// form, and minimal string escaping. Used for cache keys, where two
// semantically equal argument objects must produce the same bytes.
func CanonicalJSON(v any) (string, error) {
	normalized, err := normalize(v)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	if err := writeCanonical(&builder, normalized); err != nil {
		return "", err
	}

	return builder.String(), nil
}

// normalize round-trips through encoding/json so that structs, maps and
// typed slices all collapse into the same generic shape.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not representable as JSON: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var out any
	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}

	return out, nil
}

func writeCanonical(builder *strings.Builder, v any) error {
	switch value := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		builder.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				builder.WriteByte(',')
			}
			if err := writeString(builder, key); err != nil {
				return err
			}
			builder.WriteByte(':')
			if err := writeCanonical(builder, value[key]); err != nil {
				return err
			}
		}
		builder.WriteByte('}')

	case []any:
		builder.WriteByte('[')
		for i, element := range value {
			if i > 0 {
				builder.WriteByte(',')
			}
			if err := writeCanonical(builder, element); err != nil {
				return err
			}
		}
		builder.WriteByte(']')

	case json.Number:
		builder.WriteString(value.String())

	case string:
		return writeString(builder, value)

	case bool:
		if value {
			builder.WriteString("true")
		} else {
			builder.WriteString("false")
		}

	case nil:
		builder.WriteString("null")

	default:
		return fmt.Errorf("unexpected canonical JSON type %T", v)
	}

	return nil
}

// writeString emits a JSON string without the HTML escaping encoding/json
// applies by default.
func writeString(builder *strings.Builder, s string) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(s); err != nil {
		return err
	}

	builder.WriteString(strings.TrimSuffix(buf.String(), "\n"))
	return nil
}
