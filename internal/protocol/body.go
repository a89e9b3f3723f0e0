package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/obarth/ogate/internal/object"
)

// wireRequest is the structured-body form of a request. It mirrors the
// path protocol: a type field plus the type-specific fields.
type wireRequest struct {
	Type      string          `json:"type"`
	Name      string          `json:"name,omitempty"`
	Attribute string          `json:"attribute,omitempty"`
	Value     any             `json:"value,omitempty"`
	Operation string          `json:"operation,omitempty"`
	Arguments []any           `json:"arguments,omitempty"`
	Pattern   string          `json:"pattern,omitempty"`
	Path      json.RawMessage `json:"path,omitempty"`

	MaxDepth          *int `json:"maxDepth,omitempty"`
	MaxCollectionSize *int `json:"maxCollectionSize,omitempty"`
	MaxObjects        *int `json:"maxObjects,omitempty"`
	IgnoreErrors      bool `json:"ignoreErrors,omitempty"`
	History           bool `json:"history,omitempty"`
}

// DecodeBody decodes a structured request body: either a single request
// record or an array of them. Each record maps to one Request with the
// same field semantics as the path protocol. The second return value
// reports whether the body was a batch; an array of one is still a batch
// and must be answered as one.
func DecodeBody(r io.Reader) ([]*Request, bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("reading request body: %w", err)
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, false, &InvalidRequestError{Reason: "empty request body"}
	}

	var wires []wireRequest
	batch := trimmed[0] == '['
	if batch {
		if err := json.Unmarshal(trimmed, &wires); err != nil {
			return nil, batch, &InvalidRequestError{Reason: "malformed request list: " + err.Error()}
		}
	} else {
		var w wireRequest
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return nil, batch, &InvalidRequestError{Reason: "malformed request: " + err.Error()}
		}
		wires = append(wires, w)
	}

	if len(wires) == 0 {
		return nil, batch, &InvalidRequestError{Reason: "request list is empty"}
	}

	requests := make([]*Request, 0, len(wires))
	for i, w := range wires {
		req, err := w.toRequest()
		if err != nil {
			return nil, batch, fmt.Errorf("request %d: %w", i, err)
		}
		requests = append(requests, req)
	}
	return requests, batch, nil
}

func (w wireRequest) toRequest() (*Request, error) {
	req := &Request{Type: Type(w.Type)}

	path, err := w.innerPath()
	if err != nil {
		return nil, err
	}

	switch req.Type {
	case TypeRead:
		name, err := w.objectName()
		if err != nil {
			return nil, err
		}
		// No attribute reads the whole object: every readable attribute
		// as one map.
		req.Name, req.Attribute, req.Path = name, w.Attribute, path
	case TypeWrite:
		name, err := w.objectName()
		if err != nil {
			return nil, err
		}
		if w.Attribute == "" {
			return nil, &InvalidRequestError{Reason: "write request requires an attribute"}
		}
		req.Name, req.Attribute, req.Path = name, w.Attribute, path
		req.Value = stringifyArg(w.Value)
	case TypeExec:
		name, err := w.objectName()
		if err != nil {
			return nil, err
		}
		if w.Operation == "" {
			return nil, &InvalidRequestError{Reason: "exec request requires an operation"}
		}
		req.Name, req.Operation = name, w.Operation
		for _, arg := range w.Arguments {
			req.Arguments = append(req.Arguments, stringifyArg(arg))
		}
	case TypeSearch:
		raw := w.Pattern
		if raw == "" {
			raw = w.Name
		}
		if raw == "" {
			return nil, &InvalidRequestError{Reason: "search request requires a pattern"}
		}
		pattern, err := object.ParseName(raw)
		if err != nil {
			return nil, err
		}
		req.Pattern = &pattern
	case TypeList:
		req.Path = path
	case TypeVersion:
		// No fields.
	default:
		return nil, &InvalidRequestError{Reason: fmt.Sprintf("unknown request type %q", w.Type)}
	}

	req.Limits = w.limits()
	req.WithHistory = w.History
	return req, nil
}

func (w wireRequest) objectName() (*object.Name, error) {
	if w.Name == "" {
		return nil, &InvalidRequestError{Reason: fmt.Sprintf("%s request requires an object name", w.Type)}
	}
	name, err := object.ParseName(w.Name)
	if err != nil {
		return nil, err
	}
	return &name, nil
}

// innerPath accepts either a slash-separated string or an array of segments.
func (w wireRequest) innerPath() ([]string, error) {
	if len(w.Path) == 0 {
		return nil, nil
	}
	var asString string
	if err := json.Unmarshal(w.Path, &asString); err == nil {
		var path []string
		for _, seg := range strings.Split(asString, "/") {
			if seg != "" {
				path = append(path, seg)
			}
		}
		return path, nil
	}
	var asList []string
	if err := json.Unmarshal(w.Path, &asList); err == nil {
		return asList, nil
	}
	return nil, &InvalidRequestError{Reason: "path must be a string or an array of strings"}
}

func (w wireRequest) limits() Limits {
	var l Limits
	if w.MaxDepth != nil {
		l.MaxDepth, l.set[0] = *w.MaxDepth, true
	}
	if w.MaxCollectionSize != nil {
		l.MaxCollectionSize, l.set[1] = *w.MaxCollectionSize, true
	}
	if w.MaxObjects != nil {
		l.MaxObjects, l.set[2] = *w.MaxObjects, true
	}
	l.IgnoreErrors = w.IgnoreErrors
	return l
}

func stringifyArg(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; keep integers integral.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
