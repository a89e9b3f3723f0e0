package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obarth/ogate/internal/dispatch"
	"github.com/obarth/ogate/internal/gateway"
	"github.com/obarth/ogate/internal/history"
	"github.com/obarth/ogate/internal/object"
	"github.com/obarth/ogate/internal/registry"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	m := registry.NewMemory("test backend")
	ctx := context.Background()

	name := object.MustParseName("my:type=Cache")
	obj := registry.NewObject("cache").
		WithAttribute("Size", registry.Attribute{Value: int64(42), Type: "long", Writable: true}).
		WithAttribute("Keys", registry.Attribute{Value: []any{"a", "b", "c", "d"}, Type: "list"}).
		WithOperation("clear", registry.Operation{
			Do: func(context.Context, []any) (any, error) { return "cleared", nil },
		})
	_, err := m.Register(ctx, obj, &name)
	require.NoError(t, err)

	svc := gateway.NewService(gateway.Options{
		Dispatcher: dispatch.NewDispatcher([]registry.Registry{m}, nil),
		History:    history.NewMemoryStore(time.Minute),
		HistoryMax: 5,
		Version:    "1.2.3",
	})
	return NewHandler(svc, "1.2.3")
}

func doRequest(t *testing.T, h *Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestHandler_GetRead(t *testing.T) {
	h := newTestHandler(t)

	rec, body := doRequest(t, h, http.MethodGet, "/ogate/read/my:type=Cache/Size", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, float64(42), body["value"])
	assert.Equal(t, float64(200), body["status"])
	request := body["request"].(map[string]any)
	assert.Equal(t, "read", request["type"])
	assert.Equal(t, "my:type=Cache", request["name"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHandler_GetRead_LimitsFromQuery(t *testing.T) {
	h := newTestHandler(t)

	rec, body := doRequest(t, h, http.MethodGet, "/ogate/read/my:type=Cache/Keys?maxCollectionSize=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	value := body["value"].([]any)
	require.Len(t, value, 3)
	assert.Equal(t, "a", value[0])
	assert.Contains(t, value[2], "collection size limit")
}

func TestHandler_GetRead_NotFound(t *testing.T) {
	h := newTestHandler(t)

	rec, body := doRequest(t, h, http.MethodGet, "/ogate/read/absent:type=X/Attr", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "object_not_found", body["error_type"])
	assert.NotEmpty(t, body["error"])
}

func TestHandler_GetRead_BadRequest(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name   string
		target string
	}{
		{"unknown type", "/ogate/dump/my:type=Cache"},
		{"missing parameters", "/ogate/read"},
		{"bad limit", "/ogate/read/my:type=Cache/Size?maxDepth=lots"},
		{"bad name", "/ogate/read/nodomain/Size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := doRequest(t, h, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, body["error_type"])
		})
	}
}

func TestHandler_GetExec(t *testing.T) {
	h := newTestHandler(t)

	rec, body := doRequest(t, h, http.MethodGet, "/ogate/exec/my:type=Cache/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cleared", body["value"])
}

func TestHandler_PostSingle(t *testing.T) {
	h := newTestHandler(t)

	rec, body := doRequest(t, h, http.MethodPost, "/ogate",
		`{"type":"read","name":"my:type=Cache","attribute":"Size"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(42), body["value"])
}

func TestHandler_PostReadWholeObject(t *testing.T) {
	h := newTestHandler(t)

	rec, body := doRequest(t, h, http.MethodPost, "/ogate",
		`{"type":"read","name":"my:type=Cache"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	value := body["value"].(map[string]any)
	assert.Equal(t, float64(42), value["Size"])
	assert.Contains(t, value, "Keys")
}

func TestHandler_PostBatch(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/ogate", strings.NewReader(`[
		{"type":"read","name":"my:type=Cache","attribute":"Size"},
		{"type":"read","name":"my:type=Cache","attribute":"Missing"}
	]`))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	// Batches answer 200; failures live inside the envelope list.
	require.Equal(t, http.StatusOK, rec.Code)

	var envelopes []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelopes))
	require.Len(t, envelopes, 2)
	assert.Equal(t, float64(200), envelopes[0]["status"])
	assert.Equal(t, float64(404), envelopes[1]["status"])
	assert.Equal(t, "attribute_not_found", envelopes[1]["error_type"])
}

func TestHandler_History(t *testing.T) {
	h := newTestHandler(t)

	for i := 0; i < 3; i++ {
		rec, _ := doRequest(t, h, http.MethodGet, "/ogate/read/my:type=Cache/Size", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, body := doRequest(t, h, http.MethodGet, "/history/read/my:type=Cache/Size", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "read", body["kind"])
	assert.Len(t, body["entries"], 3)

	rec, _ = doRequest(t, h, http.MethodGet, "/history/delete/my:type=Cache/Size", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_HistoryInResponse(t *testing.T) {
	h := newTestHandler(t)

	rec, _ := doRequest(t, h, http.MethodGet, "/ogate/read/my:type=Cache/Size", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := doRequest(t, h, http.MethodGet, "/ogate/read/my:type=Cache/Size?history=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Both readings, the series including the one just served.
	series := body["history"].([]any)
	require.Len(t, series, 2)
	first := series[0].(map[string]any)
	assert.Equal(t, float64(42), first["value"])
	assert.NotZero(t, first["timestamp"])

	// Without the parameter the field stays absent.
	rec, body = doRequest(t, h, http.MethodGet, "/ogate/read/my:type=Cache/Size", "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, present := body["history"]
	assert.False(t, present)
}

func TestHandler_HealthAndVersion(t *testing.T) {
	h := newTestHandler(t)

	rec, body := doRequest(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = doRequest(t, h, http.MethodGet, "/version", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.2.3", body["agent"])
	assert.Equal(t, gateway.ProtocolVersion, body["protocol"])
}

func TestHandler_RequestIDPassthrough(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}
