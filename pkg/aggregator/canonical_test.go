package aggregator

import (
	"testing"

	"github.com/tj/assert"
)

func TestCanonicalJSONSortsKeys(t *testing.T) {
	out, err := CanonicalJSON(map[string]any{
		"zebra": 1,
		"alpha": map[string]any{"y": 2, "x": 1},
		"mike":  []any{"a", "b"},
	})

	assert.NoError(t, err)
	assert.Equal(t, `{"alpha":{"x":1,"y":2},"mike":["a","b"],"zebra":1}`, out)
}

func TestCanonicalJSONDeterministic(t *testing.T) {
	value := map[string]any{
		"path":  "/tmp/x",
		"depth": 3,
		"opts":  map[string]any{"follow": true, "all": false},
	}

	first, err := CanonicalJSON(value)
	assert.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := CanonicalJSON(value)
		assert.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCanonicalJSONNumbers(t *testing.T) {
	out, err := CanonicalJSON(map[string]any{
		"int":   float64(42),
		"float": 1.5,
		"zero":  float64(0),
	})

	assert.NoError(t, err)
	assert.Equal(t, `{"float":1.5,"int":42,"zero":0}`, out)
}

func TestCanonicalJSONNoHTMLEscaping(t *testing.T) {
	out, err := CanonicalJSON(map[string]any{"q": "a<b>&c"})

	assert.NoError(t, err)
	assert.Equal(t, `{"q":"a<b>&c"}`, out)
}

func TestCanonicalJSONScalars(t *testing.T) {
	cases := map[any]string{
		nil:  "null",
		true: "true",
		"s":  `"s"`,
	}

	for value, expected := range cases {
		out, err := CanonicalJSON(value)
		assert.NoError(t, err)
		assert.Equal(t, expected, out)
	}

	out, err := CanonicalJSON(map[string]any{})
	assert.NoError(t, err)
	assert.Equal(t, "{}", out)
}
