// Package convert turns raw attribute and operation-result values into
// bounded, cycle-safe structured representations.
//
// Conversion is a depth-first walk limited by the request's Limits. Limit
// and cycle conditions are never errors: they surface as in-band marker
// values. Only structurally invalid navigation (not-found-in-path) and
// unsupported value shapes raise errors.
package convert

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/obarth/ogate/internal/object"
	"github.com/obarth/ogate/internal/protocol"
	"github.com/obarth/ogate/internal/registry"
)

// NotFoundInPathError indicates an inner path segment that does not exist
// in the value being navigated.
type NotFoundInPathError struct {
	Segment string
	Shape   string
}

func (e *NotFoundInPathError) Error() string {
	return fmt.Sprintf("path segment %q not found in %s value", e.Segment, e.Shape)
}

// UnsupportedTypeError indicates a value shape the converter cannot
// serialize.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("cannot convert value of unsupported type %s", e.Type)
}

// RefResolver resolves an object reference into the raw values of all its
// attributes. The gateway wires this to a dispatcher read.
type RefResolver func(ctx context.Context, name object.Name) (map[string]any, error)

// Converter converts values within per-call bounds. It is stateless and
// safe for concurrent use; all mutable traversal state lives in the
// per-call Traversal.
type Converter struct {
	resolver RefResolver
	handlers []Handler
}

// NewConverter creates a converter with the given reference resolver and
// extraction handlers. A nil resolver turns object references into their
// name strings instead of nested reads.
func NewConverter(resolver RefResolver, handlers ...Handler) *Converter {
	return &Converter{resolver: resolver, handlers: handlers}
}

// Convert serializes a value, optionally narrowed by an inner path, within
// the given bounds.
func (c *Converter) Convert(ctx context.Context, value any, path []string, limits protocol.Limits) (any, error) {
	t := &Traversal{
		converter: c,
		limits:    limits,
		visited:   map[identity]struct{}{},
	}
	return t.Convert(ctx, value, path, 0)
}

// identity keys the visited set. Membership is by pointer identity, never
// value equality; values without a stable address cannot cycle.
type identity struct {
	ptr uintptr
	typ reflect.Type
}

// Traversal is the state of one conversion call: bounds, the running
// object counter, and the set of identities on the active recursion path.
// It is never shared across calls.
type Traversal struct {
	converter *Converter
	limits    protocol.Limits
	visited   map[identity]struct{}
	objects   int
}

// Convert processes one value at the given depth. Extraction handlers
// recurse through this method so their sub-values share the same bounds.
func (t *Traversal) Convert(ctx context.Context, value any, path []string, depth int) (any, error) {
	// Step 1: navigation. Consuming a path segment descends without using
	// a depth unit; the navigated-to value is then processed as a root.
	// Handler-claimed values navigate inside their handler instead.
	for len(path) > 0 && t.handlerFor(value) == nil {
		child, rest, err := t.navigate(ctx, value, path)
		if err != nil {
			return nil, err
		}
		value, path = child, rest
	}

	// Step 2: cycle detection by identity.
	if id, ok := identityOf(value); ok {
		if _, seen := t.visited[id]; seen {
			return CycleMarker(describeValue(value)), nil
		}
	}

	// Step 3: depth bound. Zero disables the bound.
	if t.limits.MaxDepth > 0 && depth >= t.limits.MaxDepth {
		return DepthMarker(), nil
	}

	// Step 4: type-specific extraction.
	if h := t.handlerFor(value); h != nil {
		return h.Extract(ctx, t, value, path, depth)
	}

	return t.Structural(ctx, value, path, depth)
}

// Structural applies the shape-based default conversion, bypassing
// extraction handlers. Handlers use it as their fallback.
func (t *Traversal) Structural(ctx context.Context, value any, path []string, depth int) (any, error) {
	if value == nil {
		return nil, nil
	}

	if ref, ok := value.(registry.Ref); ok {
		return t.convertRef(ctx, ref, path, depth)
	}
	if ts, ok := value.(time.Time); ok {
		return ts.Format(time.RFC3339), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		// Scalars are emitted as-is and consume no bound.
		return value, nil

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return t.descend(ctx, value, rv.Elem().Interface(), path, depth, func() (any, error) {
			return t.Convert(ctx, rv.Elem().Interface(), path, depth)
		})

	case reflect.Slice, reflect.Array:
		return t.descend(ctx, value, nil, path, depth, func() (any, error) {
			return t.convertCollection(ctx, rv, depth)
		})

	case reflect.Map:
		return t.descend(ctx, value, nil, path, depth, func() (any, error) {
			return t.convertMap(ctx, rv, depth)
		})

	case reflect.Struct:
		return t.descend(ctx, value, nil, path, depth, func() (any, error) {
			return t.convertStruct(ctx, rv, depth)
		})

	default:
		return nil, &UnsupportedTypeError{Type: fmt.Sprintf("%T", value)}
	}
}

// descend runs fn with the value's identity held in the visited set.
// Pointers and interfaces delegate without consuming the object budget;
// everything else is a non-scalar and is counted first.
func (t *Traversal) descend(ctx context.Context, value, unwrapped any, path []string, depth int, fn func() (any, error)) (any, error) {
	id, hasID := identityOf(value)
	if hasID {
		t.visited[id] = struct{}{}
		defer delete(t.visited, id)
	}
	if unwrapped != nil {
		// Pointer/interface unwrap is transparent: no budget, no depth.
		return fn()
	}
	if marker, ok := t.takeObjectBudget(); !ok {
		return marker, nil
	}
	return fn()
}

// takeObjectBudget enforces Limits.MaxObjects before a non-scalar value is
// processed. Zero disables the bound.
func (t *Traversal) takeObjectBudget() (any, bool) {
	if t.limits.MaxObjects > 0 && t.objects >= t.limits.MaxObjects {
		return ObjectLimitMarker(t.limits.MaxObjects), false
	}
	t.objects++
	return nil, true
}

func (t *Traversal) convertCollection(ctx context.Context, rv reflect.Value, depth int) (any, error) {
	n := rv.Len()
	limit := n
	truncated := false
	if max := t.limits.MaxCollectionSize; max > 0 && n > max {
		limit = max
		truncated = true
	}

	out := make([]any, 0, limit+1)
	for i := 0; i < limit; i++ {
		converted, err := t.Convert(ctx, rv.Index(i).Interface(), nil, depth+1)
		if err != nil {
			if t.limits.IgnoreErrors {
				out = append(out, errorPlaceholder(err))
				continue
			}
			return nil, err
		}
		out = append(out, converted)
	}
	if truncated {
		out = append(out, CollectionLimitMarker(n-limit))
	}
	return out, nil
}

func (t *Traversal) convertMap(ctx context.Context, rv reflect.Value, depth int) (any, error) {
	keys := make([]string, 0, rv.Len())
	byKey := make(map[string]reflect.Value, rv.Len())
	for _, k := range rv.MapKeys() {
		key := fmt.Sprintf("%v", k.Interface())
		keys = append(keys, key)
		byKey[key] = rv.MapIndex(k)
	}
	sort.Strings(keys)

	limit := len(keys)
	truncated := false
	if max := t.limits.MaxCollectionSize; max > 0 && limit > max {
		limit = max
		truncated = true
	}

	out := make(map[string]any, limit+1)
	for _, key := range keys[:limit] {
		converted, err := t.Convert(ctx, byKey[key].Interface(), nil, depth+1)
		if err != nil {
			if t.limits.IgnoreErrors {
				out[key] = errorPlaceholder(err)
				continue
			}
			return nil, err
		}
		out[key] = converted
	}
	if truncated {
		out[truncationKey] = CollectionLimitMarker(len(keys) - limit)
	}
	return out, nil
}

func (t *Traversal) convertStruct(ctx context.Context, rv reflect.Value, depth int) (any, error) {
	fields := structFields(rv.Type())

	limit := len(fields)
	truncated := false
	if max := t.limits.MaxCollectionSize; max > 0 && limit > max {
		limit = max
		truncated = true
	}

	out := make(map[string]any, limit+1)
	for _, f := range fields[:limit] {
		converted, err := t.Convert(ctx, rv.FieldByIndex(f.index).Interface(), nil, depth+1)
		if err != nil {
			if t.limits.IgnoreErrors {
				out[f.name] = errorPlaceholder(err)
				continue
			}
			return nil, err
		}
		out[f.name] = converted
	}
	if truncated {
		out[truncationKey] = CollectionLimitMarker(len(fields) - limit)
	}
	return out, nil
}

// convertRef serializes a reference to another management object as a
// nested read of all its attributes, within the same bounds.
func (t *Traversal) convertRef(ctx context.Context, ref registry.Ref, path []string, depth int) (any, error) {
	if t.converter.resolver == nil {
		return ref.Name.String(), nil
	}
	if marker, ok := t.takeObjectBudget(); !ok {
		return marker, nil
	}
	attrs, err := t.converter.resolver(ctx, ref.Name)
	if err != nil {
		return nil, fmt.Errorf("resolving reference to %s: %w", ref.Name, err)
	}
	return t.Convert(ctx, attrs, path, depth+1)
}

func (t *Traversal) handlerFor(value any) Handler {
	for _, h := range t.converter.handlers {
		if h.Claims(value) {
			return h
		}
	}
	return nil
}

// truncationKey carries the collection-size marker inside truncated
// composites, where there is no element position to put it in.
const truncationKey = "..."

func errorPlaceholder(err error) string {
	return "[error: " + err.Error() + "]"
}

func describeValue(value any) string {
	return fmt.Sprintf("%T", value)
}

func identityOf(value any) (identity, bool) {
	if value == nil {
		return identity{}, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.UnsafePointer:
		if rv.IsNil() {
			return identity{}, false
		}
		return identity{ptr: rv.Pointer(), typ: rv.Type()}, true
	default:
		return identity{}, false
	}
}

// structField is one serializable struct field.
type structField struct {
	name  string
	index []int
}

// structFields lists exported fields, honoring json tag names and
// flattening embedded structs the way encoding/json does.
func structFields(t reflect.Type) []structField {
	var fields []structField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("json") == "" {
			for _, nested := range structFields(f.Type) {
				fields = append(fields, structField{
					name:  nested.name,
					index: append([]int{i}, nested.index...),
				})
			}
			continue
		}
		name := f.Name
		if tag := f.Tag.Get("json"); tag != "" && tag != "-" {
			if comma := strings.Index(tag, ","); comma >= 0 {
				tag = tag[:comma]
			}
			if tag != "" {
				name = tag
			}
		}
		fields = append(fields, structField{name: name, index: []int{i}})
	}
	return fields
}

// navigate consumes one (or, for references, zero) path segments by
// descending into the keyed or indexed child of the value.
func (t *Traversal) navigate(ctx context.Context, value any, path []string) (any, []string, error) {
	seg := path[0]

	if ref, ok := value.(registry.Ref); ok {
		if t.converter.resolver == nil {
			return nil, nil, &NotFoundInPathError{Segment: seg, Shape: "unresolvable reference"}
		}
		attrs, err := t.converter.resolver(ctx, ref.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving reference to %s: %w", ref.Name, err)
		}
		return attrs, path, nil
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil, &NotFoundInPathError{Segment: seg, Shape: "nil"}
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		child := rv.MapIndex(reflect.ValueOf(seg))
		if !child.IsValid() {
			return nil, nil, &NotFoundInPathError{Segment: seg, Shape: "map"}
		}
		return child.Interface(), path[1:], nil

	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, nil, &NotFoundInPathError{Segment: seg, Shape: fmt.Sprintf("collection of %d elements", rv.Len())}
		}
		return rv.Index(idx).Interface(), path[1:], nil

	case reflect.Struct:
		for _, f := range structFields(rv.Type()) {
			if f.name == seg {
				return rv.FieldByIndex(f.index).Interface(), path[1:], nil
			}
		}
		return nil, nil, &NotFoundInPathError{Segment: seg, Shape: "composite " + rv.Type().String()}

	default:
		return nil, nil, &NotFoundInPathError{Segment: seg, Shape: "scalar"}
	}
}
