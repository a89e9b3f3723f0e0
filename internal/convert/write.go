package convert

import (
	"fmt"
	"reflect"
	"strconv"
)

// WriteAtPath replaces the value at the given inner path inside a
// container and returns the value it replaced. The path must address an
// existing position; writes never create new keys or extend collections.
//
// Mutation happens in place, so the addressed container must be a
// reference type (map, slice, or a struct reached through a pointer).
func WriteAtPath(value any, path []string, newValue any) (any, error) {
	if len(path) == 0 {
		return nil, &NotFoundInPathError{Segment: "", Shape: "empty path"}
	}

	parent, err := containerAt(value, path[:len(path)-1])
	if err != nil {
		return nil, err
	}
	return setLeaf(parent, path[len(path)-1], newValue)
}

// containerAt walks the intermediate path segments and returns the value
// holding the leaf, preserving addressability through pointers.
func containerAt(value any, path []string) (reflect.Value, error) {
	rv := reflect.ValueOf(value)
	for _, seg := range path {
		rv = unwrap(rv)
		if !rv.IsValid() {
			return rv, &NotFoundInPathError{Segment: seg, Shape: "nil"}
		}

		switch rv.Kind() {
		case reflect.Map:
			child := rv.MapIndex(reflect.ValueOf(seg))
			if !child.IsValid() {
				return rv, &NotFoundInPathError{Segment: seg, Shape: "map"}
			}
			rv = child

		case reflect.Slice, reflect.Array:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= rv.Len() {
				return rv, &NotFoundInPathError{Segment: seg, Shape: fmt.Sprintf("collection of %d elements", rv.Len())}
			}
			rv = rv.Index(idx)

		case reflect.Struct:
			found := false
			for _, f := range structFields(rv.Type()) {
				if f.name == seg {
					rv = rv.FieldByIndex(f.index)
					found = true
					break
				}
			}
			if !found {
				return rv, &NotFoundInPathError{Segment: seg, Shape: "composite " + rv.Type().String()}
			}

		default:
			return rv, &NotFoundInPathError{Segment: seg, Shape: "scalar"}
		}
	}
	return rv, nil
}

func setLeaf(parent reflect.Value, seg string, newValue any) (any, error) {
	parent = unwrap(parent)
	if !parent.IsValid() {
		return nil, &NotFoundInPathError{Segment: seg, Shape: "nil"}
	}

	switch parent.Kind() {
	case reflect.Map:
		key := reflect.ValueOf(seg)
		existing := parent.MapIndex(key)
		if !existing.IsValid() {
			return nil, &NotFoundInPathError{Segment: seg, Shape: "map"}
		}
		nv, err := coerceTo(newValue, parent.Type().Elem())
		if err != nil {
			return nil, err
		}
		parent.SetMapIndex(key, nv)
		return existing.Interface(), nil

	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= parent.Len() {
			return nil, &NotFoundInPathError{Segment: seg, Shape: fmt.Sprintf("collection of %d elements", parent.Len())}
		}
		slot := parent.Index(idx)
		if !slot.CanSet() {
			return nil, &UnsupportedTypeError{Type: parent.Type().String()}
		}
		nv, err := coerceTo(newValue, slot.Type())
		if err != nil {
			return nil, err
		}
		previous := slot.Interface()
		slot.Set(nv)
		return previous, nil

	case reflect.Struct:
		for _, f := range structFields(parent.Type()) {
			if f.name != seg {
				continue
			}
			slot := parent.FieldByIndex(f.index)
			if !slot.CanSet() {
				return nil, &UnsupportedTypeError{Type: parent.Type().String()}
			}
			nv, err := coerceTo(newValue, slot.Type())
			if err != nil {
				return nil, err
			}
			previous := slot.Interface()
			slot.Set(nv)
			return previous, nil
		}
		return nil, &NotFoundInPathError{Segment: seg, Shape: "composite " + parent.Type().String()}

	default:
		return nil, &NotFoundInPathError{Segment: seg, Shape: "scalar"}
	}
}

func unwrap(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

// coerceTo adapts a new value to the slot's static type, converting
// between numeric kinds where possible.
func coerceTo(newValue any, target reflect.Type) (reflect.Value, error) {
	if newValue == nil {
		switch target.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
			return reflect.Zero(target), nil
		}
		return reflect.Value{}, &UnsupportedTypeError{Type: "nil for " + target.String()}
	}
	nv := reflect.ValueOf(newValue)
	if nv.Type().AssignableTo(target) {
		return nv, nil
	}
	if nv.Type().ConvertibleTo(target) {
		return nv.Convert(target), nil
	}
	return reflect.Value{}, &UnsupportedTypeError{Type: fmt.Sprintf("%T for %s slot", newValue, target)}
}
