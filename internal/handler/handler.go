// Package handler adapts HTTP requests to CRUD operations.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"YcrudAPI/internal/apperr"
	"YcrudAPI/internal/auth"
	"YcrudAPI/internal/crud"
	"YcrudAPI/internal/logger"
	"YcrudAPI/internal/model"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	registry    *model.Registry
	svc         *crud.Service
	tenantClaim string
}

func New(registry *model.Registry, svc *crud.Service, tenantClaim string) *Handler {
	return &Handler{registry: registry, svc: svc, tenantClaim: tenantClaim}
}

// Handle returns the endpoint for op. internal is fixed by the route prefix.
func (h *Handler) Handle(op crud.Op, internal bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version, ok := ParseVersion(r.PathValue("version"))
		if !ok {
			writeError(w, apperr.NotFoundError{})
			return
		}
		e, err := h.registry.ByResource(r.PathValue("resource"))
		if err != nil {
			writeError(w, apperr.NotFoundError{Err: err})
			return
		}

		call := crud.Call{
			Entity:   e.Name,
			Version:  version,
			Internal: internal,
			Tenant:   auth.TenantFromContext(r.Context(), h.tenantClaim),
			ID:       r.PathValue("id"),
			Params:   r.URL.Query(),
		}

		if op == crud.OpCreate || op == crud.OpUpdate {
			body, err := readBody(r)
			if err != nil {
				logger.Warn("invalid_json", map[string]any{
					"path":  r.URL.Path,
					"error": err.Error(),
				})
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"status":  "error",
					"message": "Invalid JSON body: " + err.Error(),
				})
				return
			}
			call.Body = body
		}

		resp := h.svc.Do(r.Context(), op, call)
		writeJSON(w, resp.Status, resp.Body)
	}
}

// ParseVersion accepts "v<N>"; a bare "v" is version 1.
func ParseVersion(seg string) (int, bool) {
	if !strings.HasPrefix(seg, "v") {
		return 0, false
	}
	rest := seg[1:]
	if rest == "" {
		return 1, true
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// readBody decodes a JSON object, keeping integers as int64.
func readBody(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	return normalizeNumbers(body).(map[string]any), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = normalizeNumbers(item)
		}
		return t
	}
	return v
}

func writeError(w http.ResponseWriter, err error) {
	status, body := crud.ErrorBody(err)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("write_response_failed", map[string]any{
			"error": err.Error(),
		})
	}
}

// WriteJSON is used by middleware that answers before a handler runs.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	writeJSON(w, status, body)
}
