package registry

import (
	"fmt"

	"github.com/obarth/ogate/internal/object"
)

// ObjectNotFoundError indicates that a registry does not hold the named
// object. During multi-registry dispatch this is expected noise: only one
// registry owns any given name.
type ObjectNotFoundError struct {
	Name object.Name
}

func (e *ObjectNotFoundError) Error() string {
	return fmt.Sprintf("object %s not found", e.Name)
}

// AttributeNotFoundError indicates that the object exists but does not
// expose the requested attribute. Strictly more informative than
// ObjectNotFoundError: the registry that raised it did hold the object.
type AttributeNotFoundError struct {
	Name      object.Name
	Attribute string
}

func (e *AttributeNotFoundError) Error() string {
	return fmt.Sprintf("object %s has no attribute %q", e.Name, e.Attribute)
}

// OperationNotFoundError indicates that the object exists but does not
// expose the requested operation.
type OperationNotFoundError struct {
	Name      object.Name
	Operation string
}

func (e *OperationNotFoundError) Error() string {
	return fmt.Sprintf("object %s has no operation %q", e.Name, e.Operation)
}

// InvocationError wraps a failure raised by an operation body. The cause
// is preserved for errors.Is/As.
type InvocationError struct {
	Name      object.Name
	Operation string
	Cause     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("operation %q of %s failed: %v", e.Operation, e.Name, e.Cause)
}

func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// NotWritableError indicates a write to a read-only attribute.
type NotWritableError struct {
	Name      object.Name
	Attribute string
}

func (e *NotWritableError) Error() string {
	return fmt.Sprintf("attribute %q of %s is not writable", e.Attribute, e.Name)
}

// InvalidRegistrationError indicates a registration attempt that no
// registry could ever accept (no name, or a pattern name).
type InvalidRegistrationError struct {
	Reason string
}

func (e *InvalidRegistrationError) Error() string {
	return "invalid registration: " + e.Reason
}

// AlreadyRegisteredError indicates a registration under a name that is
// already taken in this registry.
type AlreadyRegisteredError struct {
	Name object.Name
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("object %s is already registered", e.Name)
}
