package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestString(t *testing.T) {
	lookup := fixedLookup(map[string]string{"FOO": "bar"})
	assert.Equal(t, "bar", String(lookup, "FOO", "default"))
	assert.Equal(t, "default", String(lookup, "MISSING", "default"))
}

func TestInt(t *testing.T) {
	lookup := fixedLookup(map[string]string{"N": "5", "BAD": "nope"})
	assert.Equal(t, 5, Int(lookup, "N", 1))
	assert.Equal(t, 1, Int(lookup, "BAD", 1))
	assert.Equal(t, 1, Int(lookup, "MISSING", 1))
}

func TestBool(t *testing.T) {
	lookup := fixedLookup(map[string]string{"B": "true", "BAD": "nope"})
	assert.True(t, Bool(lookup, "B", false))
	assert.False(t, Bool(lookup, "BAD", false))
}

func TestDuration(t *testing.T) {
	lookup := fixedLookup(map[string]string{"D": "5s", "BAD": "nope"})
	assert.Equal(t, 5*time.Second, Duration(lookup, "D", time.Second))
	assert.Equal(t, time.Second, Duration(lookup, "BAD", time.Second))
}
