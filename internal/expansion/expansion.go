// Package expansion expands ${prefix:key} references in decoded configuration values.
package expansion

import (
	"os"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// Resolver resolves a "prefix:key" property.
type Resolver interface {
	Resolve(property string) (string, error)
}

// ExpandVariables walks toExpand, which must be a pointer, and expands every string it reaches
// through structs, pointers, slices and maps. Strings are trimmed before expansion.
// The first resolution error aborts the walk.
func ExpandVariables(resolver Resolver, toExpand any) error {
	if toExpand == nil {
		return nil
	}

	v := reflect.ValueOf(toExpand)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		return expandValue(resolver, v.Elem())
	}
	return expandValue(resolver, v)
}

// Expand expands the references of a single string.
func Expand(resolver Resolver, s string) (string, error) {
	var expandErr error
	expanded := os.Expand(strings.TrimSpace(s), func(property string) string {
		if expandErr != nil {
			return ""
		}
		value, err := resolver.Resolve(property)
		if err != nil {
			expandErr = errors.Wrap(err, "error resolving property")
			return ""
		}
		return value
	})
	if expandErr != nil {
		return "", expandErr
	}
	return expanded, nil
}

func expandValue(resolver Resolver, val reflect.Value) error {
	switch val.Kind() {
	case reflect.String:
		if val.CanSet() {
			expanded, err := Expand(resolver, val.String())
			if err != nil {
				return err
			}
			val.SetString(expanded)
		}

	case reflect.Struct:
		for i := 0; i < val.NumField(); i++ {
			if err := expandValue(resolver, val.Field(i)); err != nil {
				return err
			}
		}

	case reflect.Ptr:
		if !val.IsNil() {
			if err := expandValue(resolver, val.Elem()); err != nil {
				return err
			}
		}

	case reflect.Interface:
		// interface contents are not addressable
		if !val.IsNil() && val.CanSet() {
			inner := reflect.New(val.Elem().Type()).Elem()
			inner.Set(val.Elem())
			if err := expandValue(resolver, inner); err != nil {
				return err
			}
			val.Set(inner)
		}

	case reflect.Slice:
		for j := 0; j < val.Len(); j++ {
			if err := expandValue(resolver, val.Index(j)); err != nil {
				return err
			}
		}

	case reflect.Map:
		for _, key := range val.MapKeys() {
			mapVal := val.MapIndex(key)
			newVal := reflect.New(mapVal.Type()).Elem()
			newVal.Set(mapVal)
			if err := expandValue(resolver, newVal); err != nil {
				return err
			}
			val.SetMapIndex(key, newVal)
		}
	default:
	}

	return nil
}
