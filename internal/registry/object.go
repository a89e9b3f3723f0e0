package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/obarth/ogate/internal/object"
)

// Attribute is one typed, optionally writable attribute of a management
// object.
type Attribute struct {
	Value       any
	Type        string
	Writable    bool
	Description string
}

// Getter computes an attribute value on every read. Attributes holding a
// Getter as their Value are dynamic and never writable.
type Getter func() any

// OperationFunc is the body of an invokable operation.
type OperationFunc func(ctx context.Context, args []any) (any, error)

// Operation is one invokable operation of a management object.
type Operation struct {
	Do          OperationFunc
	Arguments   []string
	ReturnType  string
	Description string
}

// Object is an in-process management object: a bag of attributes and
// operations guarded by its own lock.
type Object struct {
	mu          sync.RWMutex
	name        object.Name
	named       bool
	description string
	attributes  map[string]*Attribute
	operations  map[string]*Operation
}

// NewObject creates an empty management object.
func NewObject(description string) *Object {
	return &Object{
		description: description,
		attributes:  map[string]*Attribute{},
		operations:  map[string]*Operation{},
	}
}

// WithName presets the object's own name, used when Register is called
// without a preferred name.
func (o *Object) WithName(name object.Name) *Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.name, o.named = name, true
	return o
}

// WithAttribute adds an attribute. Chainable during construction.
func (o *Object) WithAttribute(name string, attr Attribute) *Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	a := attr
	o.attributes[name] = &a
	return o
}

// WithOperation adds an operation. Chainable during construction.
func (o *Object) WithOperation(name string, op Operation) *Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	cp := op
	o.operations[name] = &cp
	return o
}

// Name returns the object's own name and whether one was set.
func (o *Object) Name() (object.Name, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.name, o.named
}

// Get reads one attribute value.
func (o *Object) Get(name object.Name, attribute string) (any, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	attr, ok := o.attributes[attribute]
	if !ok {
		return nil, &AttributeNotFoundError{Name: name, Attribute: attribute}
	}
	if get, ok := attr.Value.(Getter); ok {
		return get(), nil
	}
	return attr.Value, nil
}

// Set replaces one attribute value, returning the previous one.
func (o *Object) Set(name object.Name, attribute string, value any) (any, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	attr, ok := o.attributes[attribute]
	if !ok {
		return nil, &AttributeNotFoundError{Name: name, Attribute: attribute}
	}
	if !attr.Writable {
		return nil, &NotWritableError{Name: name, Attribute: attribute}
	}
	previous := attr.Value
	attr.Value = value
	return previous, nil
}

// Invoke calls one operation.
func (o *Object) Invoke(ctx context.Context, name object.Name, operation string, args []any) (any, error) {
	o.mu.RLock()
	op, ok := o.operations[operation]
	o.mu.RUnlock()
	if !ok {
		return nil, &OperationNotFoundError{Name: name, Operation: operation}
	}
	if op.Do == nil {
		return nil, fmt.Errorf("operation %q of %s has no body", operation, name)
	}
	result, err := op.Do(ctx, args)
	if err != nil {
		return nil, &InvocationError{Name: name, Operation: operation, Cause: err}
	}
	return result, nil
}

// Descriptor builds the introspection metadata for this object under the
// given name. Attribute and operation lists are sorted for stable output.
func (o *Object) Descriptor(name object.Name) Descriptor {
	o.mu.RLock()
	defer o.mu.RUnlock()

	d := Descriptor{Name: name, Description: o.description}
	for attrName, attr := range o.attributes {
		d.Attributes = append(d.Attributes, AttributeInfo{
			Name:        attrName,
			Type:        attr.Type,
			Writable:    attr.Writable,
			Description: attr.Description,
		})
	}
	sort.Slice(d.Attributes, func(i, j int) bool { return d.Attributes[i].Name < d.Attributes[j].Name })

	for opName, op := range o.operations {
		d.Operations = append(d.Operations, OperationInfo{
			Name:        opName,
			Arguments:   op.Arguments,
			ReturnType:  op.ReturnType,
			Description: op.Description,
		})
	}
	sort.Slice(d.Operations, func(i, j int) bool { return d.Operations[i].Name < d.Operations[j].Name })

	return d
}

// AttributeNames returns the object's attribute names, sorted.
func (o *Object) AttributeNames() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.attributes))
	for name := range o.attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
