// Package crud orchestrates list, get, create, update, delete, search and count
// for any registered entity: it resolves the artifact binding, compiles the
// query plan, drives the store and shapes the response envelope.
package crud

import (
	"fmt"
	"net/url"

	"YcrudAPI/internal/artifact"
	"YcrudAPI/internal/model"
	"YcrudAPI/internal/resolver"
)

type Op string

const (
	OpList   Op = "list"
	OpGet    Op = "get"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpSearch Op = "search"
	OpCount  Op = "count"
)

// Stage is the lifecycle position of one operation.
type Stage int

const (
	StageReceived Stage = iota
	StageValidated
	StageExecuted
	StageSerialized
	StageResponded
	StageErrored
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageValidated:
		return "validated"
	case StageExecuted:
		return "executed"
	case StageSerialized:
		return "serialized"
	case StageResponded:
		return "responded"
	case StageErrored:
		return "errored"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Call is the transport-neutral description of an inbound operation.
type Call struct {
	Entity   string // entity type name
	Version  int
	Internal bool
	Tenant   string
	ID       string // public id for get, update, delete
	Params   url.Values
	Body     map[string]any // create/update input, flat or wrapped under the singular name
}

// RequestContext is built once per operation and passed by value to every stage.
type RequestContext struct {
	Op       Op
	Entity   *model.Entity
	Version  int
	Internal bool
	Tenant   string
	ID       string
	Params   url.Values
	Input    map[string]any
	Binding  resolver.Binding
}

func (rc RequestContext) CallContext() artifact.CallContext {
	return artifact.CallContext{Version: rc.Version, Internal: rc.Internal}
}

// OpError is an operation failure tagged with the stage it happened in.
type OpError struct {
	Op     Op
	Stage  Stage
	Entity string
	Err    error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s failed at %s: %v", e.Op, e.Entity, e.Stage, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
