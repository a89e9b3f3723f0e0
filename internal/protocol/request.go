package protocol

import (
	"fmt"
	"strconv"

	"github.com/obarth/ogate/internal/object"
)

// Type is the operational mode of a request.
type Type string

const (
	TypeRead    Type = "read"
	TypeWrite   Type = "write"
	TypeExec    Type = "exec"
	TypeList    Type = "list"
	TypeSearch  Type = "search"
	TypeVersion Type = "version"
)

// InvalidRequestError indicates a request that cannot be constructed from
// its raw form: malformed path, unknown type, or a missing required field.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

// Limits bounds one conversion call. Zero values mean "use the configured
// default"; they are resolved by ApplyDefaults before the conversion runs.
type Limits struct {
	// MaxDepth bounds recursion depth into nested values.
	MaxDepth int
	// MaxCollectionSize bounds the number of elements serialized per
	// collection or fields per composite.
	MaxCollectionSize int
	// MaxObjects bounds the total number of non-scalar values serialized
	// in one conversion call. 0 after defaulting disables the bound.
	MaxObjects int
	// IgnoreErrors continues a bulk conversion past per-value failures.
	IgnoreErrors bool

	set [3]bool // which of the three bounds were given explicitly
}

// DefaultLimits is the single-read profile.
func DefaultLimits() Limits {
	return Limits{MaxDepth: 5, MaxCollectionSize: 150, MaxObjects: 1000}
}

// BulkLimits is the attribute-dump profile, with raised bounds.
func BulkLimits() Limits {
	return Limits{MaxDepth: 15, MaxCollectionSize: 1000, MaxObjects: 0}
}

// ApplyDefaults fills any bound not explicitly set from the given profile.
func (l Limits) ApplyDefaults(profile Limits) Limits {
	if !l.set[0] {
		l.MaxDepth = profile.MaxDepth
	}
	if !l.set[1] {
		l.MaxCollectionSize = profile.MaxCollectionSize
	}
	if !l.set[2] {
		l.MaxObjects = profile.MaxObjects
	}
	return l
}

// Request is one decoded gateway request.
//
// READ and WRITE target an attribute, EXEC an operation; their trailing
// parameters form the inner path (EXEC: the argument list). LIST and
// VERSION carry no object name; SEARCH carries a name pattern instead.
type Request struct {
	Type      Type
	Name      *object.Name // nil for LIST, SEARCH and VERSION
	Attribute string       // READ, WRITE
	Value     string       // WRITE: raw new value
	Operation string       // EXEC
	Arguments []string     // EXEC: raw argument values
	Pattern   *object.Name // SEARCH
	Path      []string     // inner path into the result value
	Limits    Limits

	// WithHistory asks for the recorded value series of the addressed
	// attribute to be attached to the response.
	WithHistory bool
}

// BuildRequest assembles a typed Request from a decoded parameter sequence
// and auxiliary query parameters. The first parameter is the type token;
// the per-type required parameters follow in fixed order.
func BuildRequest(params []string, query map[string]string) (*Request, error) {
	if len(params) == 0 {
		return nil, &InvalidRequestError{Reason: "no request type given"}
	}
	c := paramCursor{params: params[1:]}
	req := &Request{Type: Type(params[0])}

	switch req.Type {
	case TypeRead:
		name, err := c.objectName(req.Type)
		if err != nil {
			return nil, err
		}
		attr, err := c.next(req.Type, "attribute name")
		if err != nil {
			return nil, err
		}
		req.Name, req.Attribute = name, attr
		req.Path = c.rest()
	case TypeWrite:
		name, err := c.objectName(req.Type)
		if err != nil {
			return nil, err
		}
		attr, err := c.next(req.Type, "attribute name")
		if err != nil {
			return nil, err
		}
		value, err := c.next(req.Type, "value")
		if err != nil {
			return nil, err
		}
		req.Name, req.Attribute, req.Value = name, attr, value
		req.Path = c.rest()
	case TypeExec:
		name, err := c.objectName(req.Type)
		if err != nil {
			return nil, err
		}
		op, err := c.next(req.Type, "operation name")
		if err != nil {
			return nil, err
		}
		req.Name, req.Operation = name, op
		req.Arguments = c.rest()
	case TypeSearch:
		raw, err := c.next(req.Type, "name pattern")
		if err != nil {
			return nil, err
		}
		pattern, err := object.ParseName(raw)
		if err != nil {
			return nil, err
		}
		req.Pattern = &pattern
	case TypeList:
		// An optional single trailing parameter narrows the listing.
		req.Path = c.rest()
	case TypeVersion:
		// No parameters.
	default:
		return nil, &InvalidRequestError{Reason: fmt.Sprintf("unknown request type %q", params[0])}
	}

	limits, err := parseLimits(query)
	if err != nil {
		return nil, err
	}
	req.Limits = limits
	if raw, ok := query[ParamHistory]; ok {
		req.WithHistory = raw == "true" || raw == "1"
	}
	return req, nil
}

// paramCursor consumes positional parameters front to back.
type paramCursor struct {
	params []string
	pos    int
}

func (c *paramCursor) next(t Type, what string) (string, error) {
	if c.pos >= len(c.params) {
		return "", &InvalidRequestError{
			Reason: fmt.Sprintf("%s request is missing parameter %d (%s)", t, c.pos+1, what),
		}
	}
	p := c.params[c.pos]
	c.pos++
	return p, nil
}

func (c *paramCursor) objectName(t Type) (*object.Name, error) {
	raw, err := c.next(t, "object name")
	if err != nil {
		return nil, err
	}
	name, err := object.ParseName(raw)
	if err != nil {
		return nil, err
	}
	return &name, nil
}

func (c *paramCursor) rest() []string {
	rest := c.params[c.pos:]
	c.pos = len(c.params)
	if len(rest) == 0 {
		return nil
	}
	return rest
}

// Auxiliary query parameter names.
const (
	ParamMaxDepth          = "maxDepth"
	ParamMaxCollectionSize = "maxCollectionSize"
	ParamMaxObjects        = "maxObjects"
	ParamIgnoreErrors      = "ignoreErrors"
	ParamHistory           = "history"
)

func parseLimits(query map[string]string) (Limits, error) {
	var l Limits
	bounds := []struct {
		param string
		dst   *int
		set   *bool
	}{
		{ParamMaxDepth, &l.MaxDepth, &l.set[0]},
		{ParamMaxCollectionSize, &l.MaxCollectionSize, &l.set[1]},
		{ParamMaxObjects, &l.MaxObjects, &l.set[2]},
	}
	for _, b := range bounds {
		raw, ok := query[b.param]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Limits{}, &InvalidRequestError{
				Reason: fmt.Sprintf("parameter %s must be a non-negative integer, got %q", b.param, raw),
			}
		}
		*b.dst = n
		*b.set = true
	}
	if raw, ok := query[ParamIgnoreErrors]; ok {
		l.IgnoreErrors = raw == "true" || raw == "1"
	}
	return l, nil
}

// CoerceValue converts a raw string parameter (WRITE value, EXEC argument)
// into a typed value: null, boolean, integer, float, or the string itself.
func CoerceValue(raw string) any {
	switch raw {
	case "null", "[null]":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
