package similarity

import (
	"encoding/json"
	"reflect"
)

// Schema compares two JSON Schema objects structurally rather than
// textually. Deep-equal schemas score 1, a missing schema on either side
// scores 0, and everything else is a weighted blend of property overlap
// (70%) and required-field overlap (30%).
func Schema(a, b map[string]any) float64 {
	if a == nil || b == nil {
		return 0
	}

	if reflect.DeepEqual(normalize(a), normalize(b)) {
		return 1
	}

	propSim := propertySimilarity(a, b)
	reqSim := requiredSimilarity(a, b)

	return 0.7*propSim + 0.3*reqSim
}

// propertySimilarity is the Dice coefficient over (name, type) pairs drawn
// from the schemas' properties objects. Properties without a type count as
// "unknown" so that untyped fields can still match each other.
func propertySimilarity(a, b map[string]any) float64 {
	propsA := propertyPairs(a)
	propsB := propertyPairs(b)

	if len(propsA) == 0 && len(propsB) == 0 {
		return 1
	}

	common := 0
	for pair := range propsA {
		if propsB[pair] {
			common++
		}
	}

	return 2.0 * float64(common) / float64(len(propsA)+len(propsB))
}

func requiredSimilarity(a, b map[string]any) float64 {
	reqA := requiredSet(a)
	reqB := requiredSet(b)

	if len(reqA) == 0 && len(reqB) == 0 {
		return 1
	}

	common := 0
	for name := range reqA {
		if reqB[name] {
			common++
		}
	}

	return 2.0 * float64(common) / float64(len(reqA)+len(reqB))
}

type propertyPair struct {
	name string
	typ  string
}

func propertyPairs(schema map[string]any) map[propertyPair]bool {
	pairs := make(map[propertyPair]bool)

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return pairs
	}

	for name, raw := range props {
		typ := "unknown"
		if prop, ok := raw.(map[string]any); ok {
			if t, ok := prop["type"].(string); ok {
				typ = t
			}
		}
		pairs[propertyPair{name: name, typ: typ}] = true
	}

	return pairs
}

func requiredSet(schema map[string]any) map[string]bool {
	set := make(map[string]bool)

	required, ok := schema["required"].([]any)
	if !ok {
		// A required list that arrived as []string rather than []any.
		if names, ok := schema["required"].([]string); ok {
			for _, name := range names {
				set[name] = true
			}
		}
		return set
	}

	for _, raw := range required {
		if name, ok := raw.(string); ok {
			set[name] = true
		}
	}

	return set
}

// normalize round-trips a value through JSON so that numbers, slices and
// nested maps compare consistently regardless of how the schema was built.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}

	return out
}
