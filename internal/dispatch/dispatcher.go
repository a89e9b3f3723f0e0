// Package dispatch routes gateway operations across an ordered set of
// registries.
//
// Single-object operations walk the registries in order and stop at the
// first one that owns the object. Collective operations (list, search)
// consult every registry and merge. Error precedence follows what the
// caller can act on: an object that was found but lacked the attribute or
// operation is reported over an object that was simply absent.
package dispatch

import (
	"context"
	"errors"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/obarth/ogate/internal/log"
	"github.com/obarth/ogate/internal/object"
	"github.com/obarth/ogate/internal/registry"
)

// Dispatcher fans gateway operations out over registries in a fixed
// order. The order is set at construction and never changes afterwards.
type Dispatcher struct {
	registries  []registry.Registry
	tracer      trace.Tracer
	primeDomain string
}

// NewDispatcher creates a dispatcher over the given registries. Earlier
// registries win for single-object operations and registration.
func NewDispatcher(registries []registry.Registry, tracer trace.Tracer) *Dispatcher {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	return &Dispatcher{registries: registries, tracer: tracer}
}

// EnablePriming turns on the introspection workaround for objects in the
// given domain: before the first attempt of an attribute read, write, or
// invocation on a matching name, every registry is asked to describe the
// object once. Hosts that materialize platform objects lazily need this
// nudge; not-found answers during it are expected noise, since at most
// one registry owns any name.
func (d *Dispatcher) EnablePriming(domain string) {
	d.primeDomain = domain
}

func (d *Dispatcher) primeFor(ctx context.Context, name object.Name) {
	if d.primeDomain == "" || name.Domain() != d.primeDomain {
		return
	}
	for _, r := range d.registries {
		_, _ = r.Describe(ctx, name)
	}
}

// Registries returns the dispatch order.
func (d *Dispatcher) Registries() []registry.Registry {
	return d.registries
}

// Descriptions lists the registries' self-descriptions in dispatch order.
func (d *Dispatcher) Descriptions() []string {
	out := make([]string, 0, len(d.registries))
	for _, r := range d.registries {
		out = append(out, r.Description())
	}
	return out
}

// GetAttribute reads an attribute from the first registry that owns the
// object.
func (d *Dispatcher) GetAttribute(ctx context.Context, name object.Name, attr string) (any, error) {
	ctx, span := d.startSpan(ctx, "dispatch.get_attribute", name)
	defer span.End()
	span.SetAttributes(attribute.String("object.attribute", attr))
	d.primeFor(ctx, name)

	value, err := firstOwning(ctx, d.registries, name, func(ctx context.Context, r registry.Registry) (any, error) {
		return r.GetAttribute(ctx, name, attr)
	})
	return value, d.finish(span, err)
}

// SetAttribute writes an attribute on the first registry that owns the
// object and returns the previous value.
func (d *Dispatcher) SetAttribute(ctx context.Context, name object.Name, attr string, value any) (any, error) {
	ctx, span := d.startSpan(ctx, "dispatch.set_attribute", name)
	defer span.End()
	span.SetAttributes(attribute.String("object.attribute", attr))
	d.primeFor(ctx, name)

	previous, err := firstOwning(ctx, d.registries, name, func(ctx context.Context, r registry.Registry) (any, error) {
		return r.SetAttribute(ctx, name, attr, value)
	})
	return previous, d.finish(span, err)
}

// Invoke calls an operation on the first registry that owns the object.
func (d *Dispatcher) Invoke(ctx context.Context, name object.Name, operation string, args []any) (any, error) {
	ctx, span := d.startSpan(ctx, "dispatch.invoke", name)
	defer span.End()
	span.SetAttributes(attribute.String("object.operation", operation))
	d.primeFor(ctx, name)

	result, err := firstOwning(ctx, d.registries, name, func(ctx context.Context, r registry.Registry) (any, error) {
		return r.Invoke(ctx, name, operation, args)
	})
	return result, d.finish(span, err)
}

// Describe returns the descriptor from the first registry that owns the
// object.
func (d *Dispatcher) Describe(ctx context.Context, name object.Name) (registry.Descriptor, error) {
	ctx, span := d.startSpan(ctx, "dispatch.describe", name)
	defer span.End()

	descriptor, err := firstOwning(ctx, d.registries, name, func(ctx context.Context, r registry.Registry) (registry.Descriptor, error) {
		return r.Describe(ctx, name)
	})
	return descriptor, d.finish(span, err)
}

// List merges the descriptors of every registry. When two registries
// expose the same name, the earlier registry's descriptor wins.
func (d *Dispatcher) List(ctx context.Context) ([]registry.Descriptor, error) {
	ctx, span := d.tracer.Start(ctx, "dispatch.list")
	defer span.End()

	seen := map[string]struct{}{}
	var out []registry.Descriptor
	for _, r := range d.registries {
		descriptors, err := r.List(ctx)
		if err != nil {
			return nil, d.finish(span, err)
		}
		for _, descriptor := range descriptors {
			key := descriptor.Name.String()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, descriptor)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name.String() < out[j].Name.String() })
	return out, nil
}

// Search unions the pattern matches of every registry, without
// duplicates, sorted by canonical name.
func (d *Dispatcher) Search(ctx context.Context, pattern object.Name) ([]object.Name, error) {
	ctx, span := d.startSpan(ctx, "dispatch.search", pattern)
	defer span.End()

	seen := map[string]struct{}{}
	var out []object.Name
	for _, r := range d.registries {
		matches, err := r.Search(ctx, pattern)
		if err != nil {
			return nil, d.finish(span, err)
		}
		for _, match := range matches {
			key := match.String()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, match)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// Register offers the object to each registry in order; the first one
// that accepts wins. If every registry rejects, the last rejection is
// returned.
func (d *Dispatcher) Register(ctx context.Context, obj *registry.Object, preferred *object.Name) (object.Name, error) {
	ctx, span := d.tracer.Start(ctx, "dispatch.register")
	defer span.End()

	var lastErr error
	for _, r := range d.registries {
		name, err := r.Register(ctx, obj, preferred)
		if err == nil {
			log.Debug(log.CatDispatch, "object registered", "name", name.String(), "registry", r.Description())
			return name, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &registry.InvalidRegistrationError{Reason: "no registry available"}
	}
	return object.Name{}, d.finish(span, lastErr)
}

// Unregister removes the object from the first registry that owns it.
func (d *Dispatcher) Unregister(ctx context.Context, name object.Name) error {
	ctx, span := d.startSpan(ctx, "dispatch.unregister", name)
	defer span.End()

	var notFound error
	for _, r := range d.registries {
		err := r.Unregister(ctx, name)
		if err == nil {
			return nil
		}
		var onf *registry.ObjectNotFoundError
		if errors.As(err, &onf) {
			notFound = err
			continue
		}
		return d.finish(span, err)
	}
	if notFound == nil {
		notFound = &registry.ObjectNotFoundError{Name: name}
	}
	return d.finish(span, notFound)
}

// Prime warms every registry by describing each object in the given
// domain, ignoring objects that vanish between search and describe. Some
// hosts only materialize their platform objects on first introspection.
func (d *Dispatcher) Prime(ctx context.Context, domain string) {
	pattern, err := object.ParseName(domain + ":*")
	if err != nil {
		log.Warn(log.CatDispatch, "invalid priming domain", "domain", domain, "error", err.Error())
		return
	}

	primed := 0
	for _, r := range d.registries {
		names, err := r.Search(ctx, pattern)
		if err != nil {
			continue
		}
		for _, name := range names {
			if _, err := r.Describe(ctx, name); err == nil {
				primed++
			}
		}
	}
	log.Info(log.CatDispatch, "primed platform domain", "domain", domain, "objects", primed)
}

func (d *Dispatcher) startSpan(ctx context.Context, name string, objName object.Name) (context.Context, trace.Span) {
	ctx, span := d.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(attribute.String("object.name", objName.String()))
	return ctx, span
}

func (d *Dispatcher) finish(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

// firstOwning walks the registries in order applying op. Object-not-found
// moves on to the next registry; a not-found attribute or operation is
// remembered and preferred over plain object-not-found when nothing
// succeeds. Any other failure stops the walk.
func firstOwning[T any](ctx context.Context, registries []registry.Registry, name object.Name, op func(context.Context, registry.Registry) (T, error)) (T, error) {
	var zero T
	var memberErr, objectErr error

	for _, r := range registries {
		result, err := op(ctx, r)
		if err == nil {
			return result, nil
		}

		// The most recent occurrence of each kind is remembered, so a
		// later registry's answer replaces an earlier one.
		var onf *registry.ObjectNotFoundError
		if errors.As(err, &onf) {
			objectErr = err
			continue
		}

		var anf *registry.AttributeNotFoundError
		var opnf *registry.OperationNotFoundError
		if errors.As(err, &anf) || errors.As(err, &opnf) {
			memberErr = err
			continue
		}

		return zero, err
	}

	if memberErr != nil {
		return zero, memberErr
	}
	if objectErr != nil {
		return zero, objectErr
	}
	return zero, &registry.ObjectNotFoundError{Name: name}
}
