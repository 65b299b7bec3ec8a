package engine

import (
	"github.com/spf13/cast"
)

// ApplyString runs ApplyFilters and coerces the result to a string. On a
// dispatch error the original value is returned with the error.
func (t *Table) ApplyString(name, value string, args ...any) (string, error) {
	out, err := t.ApplyFilters(name, value, args...)
	if err != nil {
		return value, err
	}
	return cast.ToStringE(out)
}

// ApplyInt runs ApplyFilters and coerces the result to an int. Results from
// scripting callbacks often arrive as float64 or int64; both are accepted.
func (t *Table) ApplyInt(name string, value int, args ...any) (int, error) {
	out, err := t.ApplyFilters(name, value, args...)
	if err != nil {
		return value, err
	}
	return cast.ToIntE(out)
}

// ApplyBool runs ApplyFilters and coerces the result to a bool.
func (t *Table) ApplyBool(name string, value bool, args ...any) (bool, error) {
	out, err := t.ApplyFilters(name, value, args...)
	if err != nil {
		return value, err
	}
	return cast.ToBoolE(out)
}
