package crud

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"YcrudAPI/internal/apperr"
	"YcrudAPI/internal/artifact"
	"YcrudAPI/internal/logger"
	"YcrudAPI/internal/model"
	"YcrudAPI/internal/query"
	"YcrudAPI/internal/resolver"
	"YcrudAPI/internal/store"
)

// Search keyword keys, in priority order.
var searchKeys = []string{"query", "q"}

// Store is the persistence capability the orchestrator drives.
type Store interface {
	List(ctx context.Context, e *model.Entity, q store.Query) ([]model.Record, error)
	Count(ctx context.Context, e *model.Entity, q store.Query) (int64, error)
	Find(ctx context.Context, e *model.Entity, publicID string, q store.Query) (model.Record, error)
	Create(ctx context.Context, e *model.Entity, tenant string, attrs map[string]any) (model.Record, error)
	Update(ctx context.Context, e *model.Entity, tenant, publicID string, attrs map[string]any) (model.Record, error)
	Delete(ctx context.Context, e *model.Entity, tenant, publicID string) (model.Record, error)
}

type Service struct {
	registry *model.Registry
	resolver *resolver.Resolver
	compiler *query.Compiler
	store    Store
}

func NewService(registry *model.Registry, res *resolver.Resolver, compiler *query.Compiler, st Store) *Service {
	return &Service{
		registry: registry,
		resolver: res,
		compiler: compiler,
		store:    st,
	}
}

// Do dispatches op.
func (s *Service) Do(ctx context.Context, op Op, call Call) Response {
	switch op {
	case OpList:
		return s.List(ctx, call)
	case OpSearch:
		return s.Search(ctx, call)
	case OpCount:
		return s.Count(ctx, call)
	case OpGet:
		return s.Get(ctx, call)
	case OpCreate:
		return s.Create(ctx, call)
	case OpUpdate:
		return s.Update(ctx, call)
	case OpDelete:
		return s.Delete(ctx, call)
	}
	return s.fail(RequestContext{Op: op}, StageReceived, fmt.Errorf("unsupported operation %q", op))
}

func (s *Service) List(ctx context.Context, call Call) Response {
	return s.collect(ctx, OpList, call)
}

func (s *Service) Search(ctx context.Context, call Call) Response {
	return s.collect(ctx, OpSearch, call)
}

func (s *Service) collect(ctx context.Context, op Op, call Call) Response {
	rc, err := s.newContext(op, call)
	if err != nil {
		return s.fail(rc, StageReceived, err)
	}
	q, err := s.readQuery(rc)
	if err != nil {
		return s.fail(rc, StageReceived, err)
	}
	records, err := s.store.List(ctx, rc.Entity, q)
	if err != nil {
		return s.fail(rc, StageReceived, err)
	}
	items := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		item, err := s.serialize(rc, rc.Entity, rc.Binding.Serializer, rec)
		if err != nil {
			return s.fail(rc, StageExecuted, err)
		}
		items = append(items, item)
	}
	return s.respond(rc, http.StatusOK, collection(rc, items))
}

func (s *Service) Count(ctx context.Context, call Call) Response {
	rc, err := s.newContext(OpCount, call)
	if err != nil {
		return s.fail(rc, StageReceived, err)
	}
	q, err := s.readQuery(rc)
	if err != nil {
		return s.fail(rc, StageReceived, err)
	}
	// count ignores ordering, paging and relation directives
	q.Plan.Sort = nil
	q.Plan.Pagination = query.Pagination{}
	q.Plan.Relations = query.RelationDirective{}

	n, err := s.store.Count(ctx, rc.Entity, q)
	if err != nil {
		return s.fail(rc, StageReceived, err)
	}
	return s.respond(rc, http.StatusOK, map[string]any{"count": n})
}

func (s *Service) Get(ctx context.Context, call Call) Response {
	rc, err := s.newContext(OpGet, call)
	if err != nil {
		return s.fail(rc, StageReceived, err)
	}
	q := store.Query{
		Plan:   query.Plan{Relations: s.compiler.Relations(rc.Entity, rc.Params)},
		Tenant: rc.Tenant,
	}
	rec, err := s.store.Find(ctx, rc.Entity, rc.ID, q)
	if err != nil {
		return s.fail(rc, StageReceived, err)
	}
	item, err := s.serialize(rc, rc.Entity, rc.Binding.Serializer, rec)
	if err != nil {
		return s.fail(rc, StageExecuted, err)
	}
	return s.respond(rc, http.StatusOK, single(rc.Entity.SingularName(), item))
}

func (s *Service) Create(ctx context.Context, call Call) Response {
	rc, err := s.newContext(OpCreate, call)
	if err != nil {
		return s.fail(rc, StageReceived, err)
	}
	if err := rc.Binding.Validator.Validate(artifact.ActionCreate, rc.Input); err != nil {
		return s.fail(rc, StageReceived, err)
	}
	rec, err := s.store.Create(ctx, rc.Entity, rc.Tenant, rc.Input)
	if err != nil {
		return s.fail(rc, StageValidated, err)
	}
	item, err := s.serialize(rc, rc.Entity, rc.Binding.Serializer, rec)
	if err != nil {
		return s.fail(rc, StageExecuted, err)
	}
	return s.respond(rc, http.StatusCreated, single(rc.Entity.SingularName(), item))
}

func (s *Service) Update(ctx context.Context, call Call) Response {
	rc, err := s.newContext(OpUpdate, call)
	if err != nil {
		return s.fail(rc, StageReceived, err)
	}
	if err := rc.Binding.Validator.Validate(artifact.ActionUpdate, rc.Input); err != nil {
		return s.fail(rc, StageReceived, err)
	}
	rec, err := s.store.Update(ctx, rc.Entity, rc.Tenant, rc.ID, rc.Input)
	if err != nil {
		return s.fail(rc, StageValidated, err)
	}
	item, err := s.serialize(rc, rc.Entity, rc.Binding.Serializer, rec)
	if err != nil {
		return s.fail(rc, StageExecuted, err)
	}
	return s.respond(rc, http.StatusOK, single(rc.Entity.SingularName(), item))
}

func (s *Service) Delete(ctx context.Context, call Call) Response {
	rc, err := s.newContext(OpDelete, call)
	if err != nil {
		return s.fail(rc, StageReceived, err)
	}
	snapshot, err := s.store.Delete(ctx, rc.Entity, rc.Tenant, rc.ID)
	if err != nil {
		return s.fail(rc, StageReceived, err)
	}
	item, err := s.serialize(rc, rc.Entity, rc.Binding.Serializer, snapshot)
	if err != nil {
		return s.fail(rc, StageExecuted, err)
	}
	return s.respond(rc, http.StatusOK, deleted(item))
}

// newContext describes the entity and resolves its binding. Nothing is
// mutated before both succeed.
func (s *Service) newContext(op Op, call Call) (RequestContext, error) {
	rc := RequestContext{
		Op:       op,
		Version:  call.Version,
		Internal: call.Internal,
		Tenant:   call.Tenant,
		ID:       call.ID,
		Params:   call.Params,
	}
	if rc.Version < 1 {
		rc.Version = 1
	}
	if rc.Params == nil {
		rc.Params = url.Values{}
	}

	e, err := s.registry.Describe(call.Entity)
	if err != nil {
		return rc, err
	}
	rc.Entity = e

	b, err := s.resolver.Resolve(resolver.Request{Entity: e.Name, Version: rc.Version, Internal: rc.Internal})
	if err != nil {
		return rc, err
	}
	rc.Binding = b
	rc.Input = unwrapInput(e, call.Body)
	return rc, nil
}

// readQuery compiles the plan and collects filter-artifact predicates.
func (s *Service) readQuery(rc RequestContext) (store.Query, error) {
	var opts []query.Option
	if rc.Op == OpSearch {
		opts = append(opts, query.WithReserved(searchKeys...))
	}
	if rc.Binding.Filter != nil {
		opts = append(opts, query.WithReserved(rc.Binding.Filter.Params()...))
	}

	plan, err := s.compiler.Compile(rc.Entity, rc.Params, opts...)
	if err != nil {
		return store.Query{}, err
	}
	q := store.Query{Plan: plan, Tenant: rc.Tenant}

	if rc.Binding.Filter != nil {
		preds, err := rc.Binding.Filter.Predicates(rc.CallContext(), rc.Params)
		if err != nil {
			if apperr.IsInvalidFilter(err) {
				return store.Query{}, err
			}
			return store.Query{}, apperr.InvalidFilterError{Param: rc.Binding.FilterRef, Reason: err.Error()}
		}
		q.Predicates = preds
	}

	if rc.Op == OpSearch {
		kw := keyword(rc.Params)
		if kw != "" && len(rc.Entity.Searchable) == 0 {
			return store.Query{}, apperr.InvalidFilterError{Param: searchKeys[0], Reason: "resource has no searchable fields"}
		}
		q.Keyword = kw
	}
	return q, nil
}

func keyword(params url.Values) string {
	for _, k := range searchKeys {
		if v := strings.TrimSpace(params.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

// unwrapInput accepts {"<singular>": {...}} or a flat object.
func unwrapInput(e *model.Entity, body map[string]any) map[string]any {
	src := body
	if inner, ok := body[e.SingularName()].(map[string]any); ok && len(body) == 1 {
		src = inner
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func (s *Service) respond(rc RequestContext, status int, body any) Response {
	entity := ""
	if rc.Entity != nil {
		entity = rc.Entity.Name
	}
	logger.Debug("crud_operation_done", map[string]any{
		"op":       string(rc.Op),
		"entity":   entity,
		"version":  rc.Version,
		"internal": rc.Internal,
		"status":   status,
	})
	return Response{Status: status, Body: body, Stage: StageResponded}
}

// fail builds the error response and logs the failure once.
func (s *Service) fail(rc RequestContext, stage Stage, err error) Response {
	entity := ""
	if rc.Entity != nil {
		entity = rc.Entity.Name
	}
	opErr := &OpError{Op: rc.Op, Stage: stage, Entity: entity, Err: err}
	status, body := ErrorBody(err)

	fields := map[string]any{
		"op":     string(rc.Op),
		"stage":  stage.String(),
		"entity": entity,
		"status": status,
		"error":  err.Error(),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("crud_operation_failed", fields)
	} else {
		logger.Warn("crud_operation_failed", fields)
	}
	return Response{Status: status, Body: body, Err: opErr, Stage: StageErrored}
}
