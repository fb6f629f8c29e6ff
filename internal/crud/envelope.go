package crud

import (
	"errors"
	"net/http"

	"YcrudAPI/internal/apperr"
)

// Response is the rendered outcome of an operation.
type Response struct {
	Status int
	Body   any
	Err    error
	Stage  Stage
}

func single(singular string, item map[string]any) any {
	return map[string]any{singular: item}
}

func collection(rc RequestContext, items []map[string]any) any {
	if items == nil {
		items = []map[string]any{}
	}
	if rc.Internal {
		return map[string]any{rc.Entity.PluralName(): items}
	}
	return items
}

func deleted(item map[string]any) any {
	return map[string]any{
		"status":  "success",
		"message": "Resource deleted",
		"data":    item,
	}
}

// ErrorBody maps an error to its envelope and HTTP status.
func ErrorBody(err error) (int, any) {
	status := apperr.Status(err)

	var verr apperr.ValidationError
	if errors.As(err, &verr) {
		msgs := verr.Messages()
		if msgs == nil {
			msgs = []string{}
		}
		return status, map[string]any{"status": "error", "message": msgs}
	}

	var nf apperr.NotFoundError
	if errors.As(err, &nf) {
		return http.StatusNotFound, map[string]any{"status": "failed", "message": nf.Error()}
	}

	var fe apperr.InvalidFilterError
	if errors.As(err, &fe) {
		return status, map[string]any{"status": "error", "message": fe.Error()}
	}

	// generic failure carries the innermost typed message when there is one
	var pe apperr.PersistenceError
	if errors.As(err, &pe) {
		return status, map[string]any{"status": "error", "message": pe.Error()}
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return status, map[string]any{"status": "error", "message": oe.Err.Error()}
	}
	return status, map[string]any{"status": "error", "message": err.Error()}
}
