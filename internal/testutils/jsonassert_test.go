package testutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONAsserterDefaults(t *testing.T) {
	opts := NewJSONAsserter(t).Options()

	assert.True(t, opts.IgnoreExtraKeys)
	assert.True(t, opts.AllowPresencePlaceholder)
	assert.False(t, opts.IgnoreArrayOrder)
	assert.Empty(t, opts.IgnoredFields)
}

func TestJSONAsserterDiff(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		actual   string
		expected string
		match    bool
	}{
		{name: "equal", actual: `{"a":1}`, expected: `{"a":1}`, match: true},
		{name: "value differs", actual: `{"a":1}`, expected: `{"a":2}`, match: false},
		{name: "extra keys ignored", actual: `{"a":1,"b":2}`, expected: `{"a":1}`, match: true},
		{name: "extra keys reported", opts: []Option{WithIgnoreExtraKeys(false)}, actual: `{"a":1,"b":2}`, expected: `{"a":1}`, match: false},
		{name: "presence placeholder", actual: `{"ts":12345}`, expected: `{"ts":"<<PRESENCE>>"}`, match: true},
		{name: "presence placeholder needs the key", actual: `{"a":1}`, expected: `{"a":1,"ts":"<<PRESENCE>>"}`, match: false},
		{name: "ignored field", opts: []Option{WithIgnoredFields("ts")}, actual: `{"a":1,"ts":1}`, expected: `{"a":1,"ts":2}`, match: true},
		{name: "array order matters", actual: `[1,2]`, expected: `[2,1]`, match: false},
		{name: "array order ignored", opts: []Option{WithIgnoreArrayOrder(true)}, actual: `[1,2]`, expected: `[2,1]`, match: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := NewJSONAsserter(t, tt.opts...).Diff(tt.actual, tt.expected)
			if tt.match {
				assert.Empty(t, diff)
			} else {
				assert.NotEmpty(t, diff)
			}
		})
	}
}

func TestJSONAsserterInvalidInput(t *testing.T) {
	ja := NewJSONAsserter(t)
	assert.Contains(t, ja.Diff(`{`, `{}`), "invalid actual JSON")
	assert.Contains(t, ja.Diff(`{}`, `{`), "invalid expected JSON")
}
