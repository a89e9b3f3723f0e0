// Package api exposes the gateway over HTTP: GET requests encode the
// operation in the URL path, POST requests carry one or more operations
// as a JSON body.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/obarth/ogate/internal/convert"
	"github.com/obarth/ogate/internal/gateway"
	"github.com/obarth/ogate/internal/log"
	"github.com/obarth/ogate/internal/object"
	"github.com/obarth/ogate/internal/protocol"
	"github.com/obarth/ogate/internal/registry"
)

// Handler provides the HTTP endpoints.
type Handler struct {
	svc     *gateway.Service
	version string
}

// NewHandler creates an API handler over the given service.
func NewHandler(svc *gateway.Service, version string) *Handler {
	return &Handler{svc: svc, version: version}
}

// Routes returns an http.Handler with all routes registered.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ogate/{path...}", h.GetRequest)
	mux.HandleFunc("POST /ogate", h.PostRequest)
	mux.HandleFunc("GET /history/{kind}/{name}/{attribute}", h.GetHistory)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /version", h.Version)

	return withRequestID(mux)
}

// Response is the success envelope for one executed request.
type Response struct {
	Request   map[string]any `json:"request"`
	Value     any            `json:"value"`
	Status    int            `json:"status"`
	Timestamp int64          `json:"timestamp"`
	History   []any          `json:"history,omitempty"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Request   map[string]any `json:"request,omitempty"`
	Error     string         `json:"error"`
	ErrorType string         `json:"error_type"`
	Status    int            `json:"status"`
}

// HistoryResponse lists the recorded series of one attribute.
type HistoryResponse struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Attribute string `json:"attribute"`
	Entries   []any  `json:"entries"`
}

// GetRequest serves path-encoded operations.
// GET /ogate/read/java.lang:type=Memory/HeapMemoryUsage/used
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("path")

	params, err := protocol.DecodePath("/" + raw)
	if err != nil {
		h.writeFailure(w, nil, err)
		return
	}

	query := map[string]string{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			query[key] = values[0]
		}
	}

	req, err := protocol.BuildRequest(params, query)
	if err != nil {
		h.writeFailure(w, nil, err)
		return
	}

	value, err := h.svc.Execute(r.Context(), req)
	if err != nil {
		h.writeFailure(w, req, err)
		return
	}
	h.writeValue(w, req, value)
}

// PostRequest serves body-encoded operations. A JSON object is one
// request, a JSON array is a batch. Batches always answer 200 with
// per-entry statuses.
func (h *Handler) PostRequest(w http.ResponseWriter, r *http.Request) {
	reqs, batch, err := protocol.DecodeBody(r.Body)
	if err != nil {
		h.writeFailure(w, nil, err)
		return
	}

	if !batch {
		value, err := h.svc.Execute(r.Context(), reqs[0])
		if err != nil {
			h.writeFailure(w, reqs[0], err)
			return
		}
		h.writeValue(w, reqs[0], value)
		return
	}

	results := h.svc.ExecuteBulk(r.Context(), reqs)
	envelopes := make([]any, 0, len(results))
	for _, result := range results {
		if result.Err != nil {
			status, errType := classify(result.Err)
			envelopes = append(envelopes, ErrorResponse{
				Request:   requestDescriptor(result.Request),
				Error:     result.Err.Error(),
				ErrorType: errType,
				Status:    status,
			})
			continue
		}
		envelopes = append(envelopes, Response{
			Request:   requestDescriptor(result.Request),
			Value:     result.Value,
			Status:    http.StatusOK,
			Timestamp: time.Now().Unix(),
			History:   h.historyFor(result.Request),
		})
	}
	writeJSON(w, http.StatusOK, envelopes)
}

// GetHistory returns the recorded value series for one attribute.
// GET /history/read/my:type=Cache/Size
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if kind != "read" && kind != "write" {
		h.writeFailure(w, nil, &protocol.InvalidRequestError{Reason: "history kind must be read or write"})
		return
	}
	name, err := object.ParseName(r.PathValue("name"))
	if err != nil {
		h.writeFailure(w, nil, err)
		return
	}

	entries := h.svc.History(kind, name, r.PathValue("attribute"))
	out := make([]any, 0, len(entries))
	for _, entry := range entries {
		out = append(out, map[string]any{
			"value":     entry.Value,
			"timestamp": entry.Timestamp.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		Kind:      kind,
		Name:      name.String(),
		Attribute: r.PathValue("attribute"),
		Entries:   out,
	})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Version reports build and protocol versions without going through the
// request pipeline.
func (h *Handler) Version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"agent":    h.version,
		"protocol": gateway.ProtocolVersion,
	})
}

func (h *Handler) writeValue(w http.ResponseWriter, req *protocol.Request, value any) {
	writeJSON(w, http.StatusOK, Response{
		Request:   requestDescriptor(req),
		Value:     value,
		Status:    http.StatusOK,
		Timestamp: time.Now().Unix(),
		History:   h.historyFor(req),
	})
}

// historyFor returns the recorded series for the addressed attribute when
// the request asked for it. The series includes the value just recorded.
func (h *Handler) historyFor(req *protocol.Request) []any {
	if req == nil || !req.WithHistory || req.Name == nil || req.Attribute == "" {
		return nil
	}
	if req.Type != protocol.TypeRead && req.Type != protocol.TypeWrite {
		return nil
	}
	entries := h.svc.History(string(req.Type), *req.Name, req.Attribute)
	out := make([]any, 0, len(entries))
	for _, entry := range entries {
		out = append(out, map[string]any{
			"value":     entry.Value,
			"timestamp": entry.Timestamp.Unix(),
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (h *Handler) writeFailure(w http.ResponseWriter, req *protocol.Request, err error) {
	status, errType := classify(err)
	writeJSON(w, status, ErrorResponse{
		Request:   requestDescriptor(req),
		Error:     err.Error(),
		ErrorType: errType,
		Status:    status,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error(log.CatAPI, "failed to encode JSON response", "error", err.Error())
	}
}

// classify maps the error taxonomy onto HTTP statuses and stable
// error_type tokens.
func classify(err error) (int, string) {
	var invalidReq *protocol.InvalidRequestError
	var invalidName *object.InvalidNameError
	var objNotFound *registry.ObjectNotFoundError
	var attrNotFound *registry.AttributeNotFoundError
	var opNotFound *registry.OperationNotFoundError
	var pathNotFound *convert.NotFoundInPathError
	var notWritable *registry.NotWritableError
	var alreadyRegistered *registry.AlreadyRegisteredError
	var invalidRegistration *registry.InvalidRegistrationError
	var invocation *registry.InvocationError

	switch {
	case errors.As(err, &invalidReq):
		return http.StatusBadRequest, "invalid_request"
	case errors.As(err, &invalidName):
		return http.StatusBadRequest, "invalid_object_name"
	case errors.As(err, &invalidRegistration):
		return http.StatusBadRequest, "invalid_registration"
	case errors.As(err, &objNotFound):
		return http.StatusNotFound, "object_not_found"
	case errors.As(err, &attrNotFound):
		return http.StatusNotFound, "attribute_not_found"
	case errors.As(err, &opNotFound):
		return http.StatusNotFound, "operation_not_found"
	case errors.As(err, &pathNotFound):
		return http.StatusNotFound, "path_not_found"
	case errors.As(err, &notWritable):
		return http.StatusForbidden, "not_writable"
	case errors.As(err, &alreadyRegistered):
		return http.StatusConflict, "already_registered"
	case errors.As(err, &invocation):
		return http.StatusInternalServerError, "invocation_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// requestDescriptor echoes the executed request back in the envelope.
func requestDescriptor(req *protocol.Request) map[string]any {
	if req == nil {
		return nil
	}
	out := map[string]any{"type": string(req.Type)}
	if req.Name != nil {
		out["name"] = req.Name.String()
	}
	if req.Attribute != "" {
		out["attribute"] = req.Attribute
	}
	if req.Operation != "" {
		out["operation"] = req.Operation
	}
	if len(req.Arguments) > 0 {
		out["arguments"] = req.Arguments
	}
	if req.Pattern != nil {
		out["pattern"] = req.Pattern.String()
	}
	if len(req.Path) > 0 {
		out["path"] = strings.Join(req.Path, "/")
	}
	return out
}

// withRequestID tags every request with an ID for log correlation.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		started := time.Now()
		next.ServeHTTP(w, r)
		log.Debug(log.CatAPI, "request handled",
			"id", id, "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(started).String())
	})
}
