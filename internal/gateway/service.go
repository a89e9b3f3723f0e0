// Package gateway executes decoded requests against the dispatcher and
// shapes their results.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/obarth/ogate/internal/convert"
	"github.com/obarth/ogate/internal/dispatch"
	"github.com/obarth/ogate/internal/history"
	"github.com/obarth/ogate/internal/log"
	"github.com/obarth/ogate/internal/object"
	"github.com/obarth/ogate/internal/protocol"
	"github.com/obarth/ogate/internal/pubsub"
)

// ProtocolVersion is the wire protocol revision served by this gateway.
const ProtocolVersion = "1.0"

// RequestEvent is the payload published after each executed request.
type RequestEvent struct {
	Type      string
	Object    string
	Attribute string
	Duration  time.Duration
	Err       string
}

// Options configures a Service.
type Options struct {
	Dispatcher *dispatch.Dispatcher
	History    history.Store                  // nil disables history
	Events     pubsub.Publisher[RequestEvent] // nil disables events
	Defaults   protocol.Limits
	Bulk       protocol.Limits
	HistoryMax int
	Version    string
}

// Service executes requests. It owns the converter so nested object
// references resolve through the same dispatcher that serves reads.
type Service struct {
	dispatcher *dispatch.Dispatcher
	converter  *convert.Converter
	history    history.Store
	events     pubsub.Publisher[RequestEvent]
	historyMax int
	version    string

	mu       sync.RWMutex
	defaults protocol.Limits
	bulk     protocol.Limits
}

// NewService creates a request executor.
func NewService(opts Options) *Service {
	s := &Service{
		dispatcher: opts.Dispatcher,
		history:    opts.History,
		events:     opts.Events,
		defaults:   opts.Defaults,
		bulk:       opts.Bulk,
		historyMax: opts.HistoryMax,
		version:    opts.Version,
	}
	if s.defaults == (protocol.Limits{}) {
		s.defaults = protocol.DefaultLimits()
	}
	if s.bulk == (protocol.Limits{}) {
		s.bulk = protocol.BulkLimits()
	}
	s.converter = convert.NewConverter(s.readAllAttributes, convert.DefaultHandlers()...)
	return s
}

// Profiles returns the current limit profiles.
func (s *Service) Profiles() (defaults, bulk protocol.Limits) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults, s.bulk
}

// SetProfiles swaps the limit profiles. Safe to call while requests are
// in flight; only requests started afterwards see the new bounds.
func (s *Service) SetProfiles(defaults, bulk protocol.Limits) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults = defaults
	s.bulk = bulk
}

// Execute runs one request under the single-request limit profile.
func (s *Service) Execute(ctx context.Context, req *protocol.Request) (any, error) {
	defaults, _ := s.Profiles()
	return s.execute(ctx, req, defaults)
}

// BulkResult pairs one batched request with its outcome.
type BulkResult struct {
	Request *protocol.Request
	Value   any
	Err     error
}

// ExecuteBulk runs batched requests under the bulk limit profile. Each
// request gets its own result; one failure never aborts the batch.
func (s *Service) ExecuteBulk(ctx context.Context, reqs []*protocol.Request) []BulkResult {
	_, bulk := s.Profiles()
	out := make([]BulkResult, 0, len(reqs))
	for _, req := range reqs {
		value, err := s.execute(ctx, req, bulk)
		out = append(out, BulkResult{Request: req, Value: value, Err: err})
	}
	return out
}

func (s *Service) execute(ctx context.Context, req *protocol.Request, profile protocol.Limits) (any, error) {
	started := time.Now()
	limits := req.Limits.ApplyDefaults(profile)

	var value any
	var err error
	switch req.Type {
	case protocol.TypeRead:
		value, err = s.read(ctx, req, limits)
	case protocol.TypeWrite:
		value, err = s.write(ctx, req, limits)
	case protocol.TypeExec:
		value, err = s.exec(ctx, req, limits)
	case protocol.TypeList:
		value, err = s.list(ctx, req, limits)
	case protocol.TypeSearch:
		value, err = s.search(ctx, req, limits)
	case protocol.TypeVersion:
		value, err = s.versionInfo(ctx, limits)
	default:
		err = &protocol.InvalidRequestError{Reason: "unknown request type " + string(req.Type)}
	}

	s.publish(req, time.Since(started), err)
	return value, err
}

func (s *Service) read(ctx context.Context, req *protocol.Request, limits protocol.Limits) (any, error) {
	if req.Attribute == "" {
		// No attribute targets the whole object: every readable attribute.
		all, err := s.readAllAttributes(ctx, *req.Name)
		if err != nil {
			return nil, err
		}
		return s.converter.Convert(ctx, all, req.Path, limits)
	}

	raw, err := s.dispatcher.GetAttribute(ctx, *req.Name, req.Attribute)
	if err != nil {
		return nil, err
	}
	s.record("read", *req.Name, req.Attribute, raw)
	if s.events != nil {
		s.events.Publish(pubsub.AttributeReadEvent, RequestEvent{
			Type: string(req.Type), Object: req.Name.String(), Attribute: req.Attribute,
		})
	}
	return s.converter.Convert(ctx, raw, req.Path, limits)
}

func (s *Service) write(ctx context.Context, req *protocol.Request, limits protocol.Limits) (any, error) {
	newValue := protocol.CoerceValue(req.Value)

	var previous any
	if len(req.Path) == 0 {
		prev, err := s.dispatcher.SetAttribute(ctx, *req.Name, req.Attribute, newValue)
		if err != nil {
			return nil, err
		}
		previous = prev
		s.record("write", *req.Name, req.Attribute, newValue)
	} else {
		// An inner path replaces one fragment of the attribute value: read
		// the whole value, mutate the addressed slot, store it back.
		current, err := s.dispatcher.GetAttribute(ctx, *req.Name, req.Attribute)
		if err != nil {
			return nil, err
		}
		prev, err := convert.WriteAtPath(current, req.Path, newValue)
		if err != nil {
			return nil, err
		}
		if _, err := s.dispatcher.SetAttribute(ctx, *req.Name, req.Attribute, current); err != nil {
			return nil, err
		}
		previous = prev
		s.record("write", *req.Name, req.Attribute, newValue)
	}

	if s.events != nil {
		s.events.Publish(pubsub.AttributeWrittenEvent, RequestEvent{
			Type: string(req.Type), Object: req.Name.String(), Attribute: req.Attribute,
		})
	}
	return s.converter.Convert(ctx, previous, nil, limits)
}

func (s *Service) exec(ctx context.Context, req *protocol.Request, limits protocol.Limits) (any, error) {
	args := make([]any, len(req.Arguments))
	for i, raw := range req.Arguments {
		args[i] = protocol.CoerceValue(raw)
	}

	result, err := s.dispatcher.Invoke(ctx, *req.Name, req.Operation, args)
	if err != nil {
		return nil, err
	}
	return s.converter.Convert(ctx, result, nil, limits)
}

// list builds the full introspection tree: domain, then the name's
// property part, then the attribute and operation metadata. The request's
// inner path narrows the tree.
func (s *Service) list(ctx context.Context, req *protocol.Request, limits protocol.Limits) (any, error) {
	descriptors, err := s.dispatcher.List(ctx)
	if err != nil {
		return nil, err
	}

	tree := map[string]any{}
	for _, descriptor := range descriptors {
		domain, found := tree[descriptor.Name.Domain()].(map[string]any)
		if !found {
			domain = map[string]any{}
			tree[descriptor.Name.Domain()] = domain
		}

		attrs := map[string]any{}
		for _, attr := range descriptor.Attributes {
			attrs[attr.Name] = map[string]any{
				"type": attr.Type,
				"rw":   attr.Writable,
				"desc": attr.Description,
			}
		}
		ops := map[string]any{}
		for _, op := range descriptor.Operations {
			ops[op.Name] = map[string]any{
				"args": op.Arguments,
				"ret":  op.ReturnType,
				"desc": op.Description,
			}
		}

		domain[propertyPart(descriptor.Name)] = map[string]any{
			"desc": descriptor.Description,
			"attr": attrs,
			"op":   ops,
		}
	}

	return s.converter.Convert(ctx, tree, req.Path, limits)
}

func (s *Service) search(ctx context.Context, req *protocol.Request, limits protocol.Limits) (any, error) {
	matches, err := s.dispatcher.Search(ctx, *req.Pattern)
	if err != nil {
		return nil, err
	}

	names := make([]any, 0, len(matches))
	for _, match := range matches {
		names = append(names, match.String())
	}
	return s.converter.Convert(ctx, names, nil, limits)
}

func (s *Service) versionInfo(ctx context.Context, limits protocol.Limits) (any, error) {
	info := map[string]any{
		"agent":    s.version,
		"protocol": ProtocolVersion,
		"info": map[string]any{
			"registries": s.dispatcher.Descriptions(),
		},
	}
	return s.converter.Convert(ctx, info, nil, limits)
}

// History returns the recorded series for one attribute, oldest first.
func (s *Service) History(kind string, name object.Name, attribute string) []history.Entry {
	if s.history == nil {
		return nil
	}
	return s.history.Get(history.Key{Kind: kind, Name: name, Attribute: attribute})
}

func (s *Service) record(kind string, name object.Name, attribute string, value any) {
	if s.history == nil {
		return
	}
	key := history.Key{Kind: kind, Name: name, Attribute: attribute}
	s.history.Track(key, s.historyMax)
	s.history.Record(key, value, time.Now())
}

func (s *Service) publish(req *protocol.Request, elapsed time.Duration, err error) {
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	objName := ""
	if req.Name != nil {
		objName = req.Name.String()
	}
	log.Debug(log.CatDispatch, "request served",
		"type", string(req.Type), "object", objName, "elapsed", elapsed.String(), "error", errText)
	if s.events != nil {
		s.events.Publish(pubsub.RequestServedEvent, RequestEvent{
			Type: string(req.Type), Object: objName, Attribute: req.Attribute,
			Duration: elapsed, Err: errText,
		})
	}
}

// readAllAttributes reads every introspectable attribute of an object,
// skipping attributes whose read fails. It backs both whole-object READ
// and nested reference resolution in the converter.
func (s *Service) readAllAttributes(ctx context.Context, name object.Name) (map[string]any, error) {
	descriptor, err := s.dispatcher.Describe(ctx, name)
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	for _, attr := range descriptor.Attributes {
		value, err := s.dispatcher.GetAttribute(ctx, name, attr.Name)
		if err != nil {
			log.Debug(log.CatDispatch, "skipping unreadable attribute",
				"object", name.String(), "attribute", attr.Name, "error", err.Error())
			continue
		}
		out[attr.Name] = value
	}
	return out, nil
}

func propertyPart(name object.Name) string {
	canonical := name.String()
	for i := 0; i < len(canonical); i++ {
		if canonical[i] == ':' {
			return canonical[i+1:]
		}
	}
	return canonical
}
