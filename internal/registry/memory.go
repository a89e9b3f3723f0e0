package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/obarth/ogate/internal/log"
	"github.com/obarth/ogate/internal/object"
)

// Memory is an in-process Registry implementation keyed by canonical
// object name.
type Memory struct {
	mu          sync.RWMutex
	description string
	objects     map[string]*entry
}

type entry struct {
	name object.Name
	obj  *Object
}

// NewMemory creates an empty in-memory registry.
func NewMemory(description string) *Memory {
	return &Memory{
		description: description,
		objects:     map[string]*entry{},
	}
}

var _ Registry = (*Memory)(nil)

// Description identifies this registry.
func (m *Memory) Description() string {
	return m.description
}

func (m *Memory) lookup(name object.Name) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.objects[name.String()]
	if !ok {
		return nil, &ObjectNotFoundError{Name: name}
	}
	return e, nil
}

// Describe returns the metadata of one object.
func (m *Memory) Describe(_ context.Context, name object.Name) (Descriptor, error) {
	e, err := m.lookup(name)
	if err != nil {
		return Descriptor{}, err
	}
	return e.obj.Descriptor(e.name), nil
}

// GetAttribute reads one attribute value.
func (m *Memory) GetAttribute(_ context.Context, name object.Name, attribute string) (any, error) {
	e, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.obj.Get(e.name, attribute)
}

// SetAttribute replaces one attribute value and returns the previous one.
func (m *Memory) SetAttribute(_ context.Context, name object.Name, attribute string, value any) (any, error) {
	e, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.obj.Set(e.name, attribute, value)
}

// Invoke calls one operation.
func (m *Memory) Invoke(ctx context.Context, name object.Name, operation string, args []any) (any, error) {
	e, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.obj.Invoke(ctx, e.name, operation, args)
}

// List returns descriptors for all held objects, sorted by name.
func (m *Memory) List(_ context.Context) ([]Descriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(m.objects))
	for _, e := range m.objects {
		descriptors = append(descriptors, e.obj.Descriptor(e.name))
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name.String() < descriptors[j].Name.String()
	})
	return descriptors, nil
}

// Search returns the names of all objects matching the pattern.
func (m *Memory) Search(_ context.Context, pattern object.Name) ([]object.Name, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []object.Name
	for _, e := range m.objects {
		if pattern.Matches(e.name) {
			matches = append(matches, e.name)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].String() < matches[j].String() })
	return matches, nil
}

// Register exposes a new object under the preferred name, or the object's
// own name when no preference is given.
func (m *Memory) Register(_ context.Context, obj *Object, preferred *object.Name) (object.Name, error) {
	var name object.Name
	if preferred != nil {
		name = *preferred
	} else {
		own, ok := obj.Name()
		if !ok {
			return object.Name{}, &InvalidRegistrationError{Reason: "object has no name and none was given"}
		}
		name = own
	}
	if name.IsPattern() {
		return object.Name{}, &InvalidRegistrationError{Reason: "cannot register under a pattern name: " + name.String()}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := name.String()
	if _, taken := m.objects[key]; taken {
		return object.Name{}, &AlreadyRegisteredError{Name: name}
	}
	m.objects[key] = &entry{name: name, obj: obj}
	log.Debug(log.CatRegistry, "registered object", "registry", m.description, "name", key)
	return name, nil
}

// Unregister removes a previously registered object.
func (m *Memory) Unregister(_ context.Context, name object.Name) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := name.String()
	if _, ok := m.objects[key]; !ok {
		return &ObjectNotFoundError{Name: name}
	}
	delete(m.objects, key)
	log.Debug(log.CatRegistry, "unregistered object", "registry", m.description, "name", key)
	return nil
}

// Len returns the number of registered objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
