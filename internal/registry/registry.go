// Package registry defines the backend registry capability consumed by the
// gateway: named management objects with typed attributes and invokable
// operations, resolvable by object name.
package registry

import (
	"context"

	"github.com/obarth/ogate/internal/object"
)

// AttributeInfo describes one exposed attribute.
type AttributeInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Writable    bool   `json:"writable"`
	Description string `json:"description,omitempty"`
}

// OperationInfo describes one invokable operation.
type OperationInfo struct {
	Name        string   `json:"name"`
	Arguments   []string `json:"arguments,omitempty"`
	ReturnType  string   `json:"return_type,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Descriptor is the introspectable metadata of a management object.
type Descriptor struct {
	Name        object.Name
	Description string
	Attributes  []AttributeInfo
	Operations  []OperationInfo
}

// Registry is a backend holding management objects. Implementations are
// responsible for their own synchronization; the gateway never locks around
// registry calls.
type Registry interface {
	// Description identifies the registry in version payloads and logs.
	Description() string

	// Describe returns the metadata of a single object, or an
	// ObjectNotFoundError. It doubles as the no-op introspection call used
	// by the platform priming workaround.
	Describe(ctx context.Context, name object.Name) (Descriptor, error)

	// GetAttribute reads one attribute value.
	GetAttribute(ctx context.Context, name object.Name, attribute string) (any, error)

	// SetAttribute replaces one attribute value and returns the previous one.
	SetAttribute(ctx context.Context, name object.Name, attribute string, value any) (any, error)

	// Invoke calls one operation with positional arguments.
	Invoke(ctx context.Context, name object.Name, operation string, args []any) (any, error)

	// List returns descriptors for every object held by this registry.
	List(ctx context.Context) ([]Descriptor, error)

	// Search returns the names of all objects matching the pattern.
	Search(ctx context.Context, pattern object.Name) ([]object.Name, error)

	// Register exposes a new object, under the preferred name when given,
	// otherwise under the object's own name. It returns the name actually
	// assigned.
	Register(ctx context.Context, obj *Object, preferred *object.Name) (object.Name, error)

	// Unregister removes a previously registered object.
	Unregister(ctx context.Context, name object.Name) error
}

// Ref is an attribute value referencing another management object. The
// converter resolves it into a nested read of the referenced object's
// attributes, subject to the same bounds.
type Ref struct {
	Name object.Name
}
