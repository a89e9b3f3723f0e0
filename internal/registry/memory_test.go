package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obarth/ogate/internal/object"
)

func cacheObject() *Object {
	return NewObject("test cache").
		WithAttribute("Size", Attribute{Value: int64(42), Type: "int", Writable: true}).
		WithAttribute("Name", Attribute{Value: "users", Type: "string"}).
		WithOperation("clear", Operation{
			Do: func(_ context.Context, _ []any) (any, error) { return nil, nil },
		})
}

func newTestRegistry(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory("test")
	name := object.MustParseName("my:type=Cache")
	_, err := m.Register(context.Background(), cacheObject(), &name)
	require.NoError(t, err)
	return m
}

func TestMemory_GetAttribute(t *testing.T) {
	m := newTestRegistry(t)
	ctx := context.Background()
	name := object.MustParseName("my:type=Cache")

	value, err := m.GetAttribute(ctx, name, "Size")
	require.NoError(t, err)
	assert.Equal(t, int64(42), value)
}

func TestMemory_GetAttribute_ObjectNotFound(t *testing.T) {
	m := newTestRegistry(t)

	_, err := m.GetAttribute(context.Background(), object.MustParseName("other:type=Cache"), "Size")
	var notFound *ObjectNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "other:type=Cache", notFound.Name.String())
}

func TestMemory_GetAttribute_AttributeNotFound(t *testing.T) {
	m := newTestRegistry(t)

	_, err := m.GetAttribute(context.Background(), object.MustParseName("my:type=Cache"), "Missing")
	var notFound *AttributeNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Missing", notFound.Attribute)
}

func TestMemory_SetAttribute_ReturnsPrevious(t *testing.T) {
	m := newTestRegistry(t)
	ctx := context.Background()
	name := object.MustParseName("my:type=Cache")

	previous, err := m.SetAttribute(ctx, name, "Size", int64(100))
	require.NoError(t, err)
	assert.Equal(t, int64(42), previous)

	value, err := m.GetAttribute(ctx, name, "Size")
	require.NoError(t, err)
	assert.Equal(t, int64(100), value)
}

func TestMemory_SetAttribute_ReadOnly(t *testing.T) {
	m := newTestRegistry(t)

	_, err := m.SetAttribute(context.Background(), object.MustParseName("my:type=Cache"), "Name", "x")
	var notWritable *NotWritableError
	assert.ErrorAs(t, err, &notWritable)
}

func TestMemory_Invoke(t *testing.T) {
	m := NewMemory("test")
	ctx := context.Background()
	name := object.MustParseName("my:type=Adder")

	obj := NewObject("adder").WithOperation("add", Operation{
		Do: func(_ context.Context, args []any) (any, error) {
			return args[0].(int64) + args[1].(int64), nil
		},
		Arguments: []string{"a", "b"},
	})
	_, err := m.Register(ctx, obj, &name)
	require.NoError(t, err)

	result, err := m.Invoke(ctx, name, "add", []any{int64(2), int64(3)})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result)

	_, err = m.Invoke(ctx, name, "subtract", nil)
	var notFound *OperationNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestMemory_Invoke_WrapsOperationFailure(t *testing.T) {
	m := NewMemory("test")
	ctx := context.Background()
	name := object.MustParseName("my:type=Flaky")

	cause := errors.New("backend unavailable")
	obj := NewObject("flaky").WithOperation("poke", Operation{
		Do: func(context.Context, []any) (any, error) { return nil, cause },
	})
	_, err := m.Register(ctx, obj, &name)
	require.NoError(t, err)

	_, err = m.Invoke(ctx, name, "poke", nil)
	var invocation *InvocationError
	require.ErrorAs(t, err, &invocation)
	assert.Equal(t, "poke", invocation.Operation)
	assert.ErrorIs(t, err, cause)
}

func TestMemory_Search(t *testing.T) {
	m := NewMemory("test")
	ctx := context.Background()
	for _, raw := range []string{"java.lang:type=Memory", "java.lang:type=Threading", "app:type=Memory"} {
		name := object.MustParseName(raw)
		_, err := m.Register(ctx, NewObject("").WithAttribute("X", Attribute{Value: 1}), &name)
		require.NoError(t, err)
	}

	matches, err := m.Search(ctx, object.MustParseName("*:type=Memory"))
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "app:type=Memory", matches[0].String())
	assert.Equal(t, "java.lang:type=Memory", matches[1].String())
}

func TestMemory_Register_Conflicts(t *testing.T) {
	m := newTestRegistry(t)
	ctx := context.Background()
	name := object.MustParseName("my:type=Cache")

	_, err := m.Register(ctx, cacheObject(), &name)
	var already *AlreadyRegisteredError
	assert.ErrorAs(t, err, &already)

	_, err = m.Register(ctx, NewObject(""), nil)
	var invalid *InvalidRegistrationError
	assert.ErrorAs(t, err, &invalid)

	pattern := object.MustParseName("my:type=*")
	_, err = m.Register(ctx, NewObject(""), &pattern)
	assert.ErrorAs(t, err, &invalid)
}

func TestMemory_Unregister(t *testing.T) {
	m := newTestRegistry(t)
	ctx := context.Background()
	name := object.MustParseName("my:type=Cache")

	require.NoError(t, m.Unregister(ctx, name))
	assert.Equal(t, 0, m.Len())

	err := m.Unregister(ctx, name)
	var notFound *ObjectNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestMemory_ListAndDescribe(t *testing.T) {
	m := newTestRegistry(t)
	ctx := context.Background()

	descriptors, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	assert.Equal(t, "my:type=Cache", d.Name.String())
	require.Len(t, d.Attributes, 2)
	assert.Equal(t, "Name", d.Attributes[0].Name)
	assert.Equal(t, "Size", d.Attributes[1].Name)
	assert.True(t, d.Attributes[1].Writable)
	require.Len(t, d.Operations, 1)
	assert.Equal(t, "clear", d.Operations[0].Name)

	described, err := m.Describe(ctx, object.MustParseName("my:type=Cache"))
	require.NoError(t, err)
	assert.Equal(t, d, described)
}
