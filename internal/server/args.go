package server

import (
	"math"
	"strconv"

	"taskmcp/internal/registry"
)

// arguments is the argument mapping of a tools/call request. Names the tool
// does not declare are ignored.
type arguments map[string]any

func (a arguments) present(name string) bool {
	v, ok := a[name]
	return ok && v != nil
}

// checkRequired reports the first required argument missing from a call.
func (a arguments) checkRequired(tool string) error {
	for _, name := range registry.Required(tool) {
		if !a.present(name) {
			return errMissingArgument(name)
		}
	}
	return nil
}

// str returns the named argument as a string; absent or null yields nil.
func (a arguments) str(name string) (*string, error) {
	if !a.present(name) {
		return nil, nil
	}
	s, ok := a[name].(string)
	if !ok {
		return nil, newRPCError(CodeInvalidParams, "Argument %s must be a string", name)
	}
	return &s, nil
}

func (a arguments) strOr(name, fallback string) (string, error) {
	v, err := a.str(name)
	if err != nil || v == nil {
		return fallback, err
	}
	return *v, nil
}

// id reads a task identifier. Integral JSON numbers are accepted and rendered
// the way the store renders ids.
func (a arguments) id(name string) (string, error) {
	if !a.present(name) {
		return "", errMissingArgument(name)
	}
	switch v := a[name].(type) {
	case string:
		return v, nil
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
	}
	return "", newRPCError(CodeInvalidParams, "Argument %s must be a string", name)
}
