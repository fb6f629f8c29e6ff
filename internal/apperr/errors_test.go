package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{InvalidFilterError{Param: "age_gt", Reason: "empty"}, http.StatusBadRequest},
		{NewValidationError("name is required"), http.StatusBadRequest},
		{fmt.Errorf("get: %w", NotFoundError{Resource: "Person"}), http.StatusNotFound},
		{PersistenceError{Op: "create", Err: errors.New("duplicate key")}, http.StatusInternalServerError},
		{UnknownEntityTypeError{Type: "Ghost"}, http.StatusInternalServerError},
		{ArtifactConstructionError{Ref: "Requests.v1.X"}, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := Status(c.err); got != c.want {
			t.Fatalf("Status(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestValidationError_Messages(t *testing.T) {
	var verr ValidationError
	if !verr.Empty() || verr.Messages() != nil || verr.Error() != "validation failed" {
		t.Fatalf("zero value must be empty")
	}
	verr = verr.Append("email must be a valid email address").Append("name is required")
	want := []string{"email must be a valid email address", "name is required"}
	if diff := cmp.Diff(want, verr.Messages()); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if !IsValidation(fmt.Errorf("wrapped: %w", verr)) {
		t.Fatalf("wrapped validation error must be detected")
	}
}

func TestMessages(t *testing.T) {
	if got := (NotFoundError{}).Error(); got != "Resource not found" {
		t.Fatalf("got %q", got)
	}
	if got := (NotFoundError{Resource: "Person"}).Error(); got != "Person not found" {
		t.Fatalf("got %q", got)
	}
	cause := errors.New("connection reset")
	pe := PersistenceError{Op: "update", Err: cause}
	if pe.Error() != "connection reset" || !errors.Is(pe, cause) {
		t.Fatalf("persistence error must surface its cause: %v", pe)
	}
	if (PersistenceError{Op: "delete"}).Error() != "delete: persistence failure" {
		t.Fatalf("unexpected message without cause")
	}
}
