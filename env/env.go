// Package env provides small helpers for reading typed configuration out of
// the process environment, with explicit defaults.
package env

import (
	"strconv"
	"time"
)

// LookupFunc defines a function to look up a key from the environment.
// Config loading takes this as a parameter rather than calling os.LookupEnv
// directly so tests can substitute a fixed map.
type LookupFunc func(key string) (string, bool)

// String returns the environment value for key, or def if unset.
func String(lookup LookupFunc, key, def string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return def
}

// Int returns the environment value for key parsed as an int, or def if
// unset or unparsable.
func Int(lookup LookupFunc, key string, def int) int {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Bool returns the environment value for key parsed as a bool, or def if
// unset or unparsable.
func Bool(lookup LookupFunc, key string, def bool) bool {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Duration returns the environment value for key parsed as a duration, or
// def if unset or unparsable.
func Duration(lookup LookupFunc, key string, def time.Duration) time.Duration {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
