package artifact

import (
	"fmt"
	"net/url"

	"YcrudAPI/internal/model"

	"github.com/Masterminds/squirrel"
)

// CallContext is the caller scope an artifact runs for.
type CallContext struct {
	Version  int
	Internal bool
}

// Serializer turns a stored record into its output representation.
type Serializer interface {
	Serialize(cc CallContext, rec model.Record) (map[string]any, error)
}

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Validator checks create/update input. Failures are apperr.ValidationError.
type Validator interface {
	Validate(action Action, input map[string]any) error
}

// Filter contributes entity-specific predicates from request parameters.
// Params lists the keys it consumes so the query compiler does not treat them as fields.
type Filter interface {
	Params() []string
	Predicates(cc CallContext, params url.Values) ([]squirrel.Sqlizer, error)
}

type (
	SerializerFactory func(e *model.Entity) (Serializer, error)
	ValidatorFactory  func(e *model.Entity) (Validator, error)
	FilterFactory     func(e *model.Entity) (Filter, error)
)

// Catalog maps artifact references to typed factories. It is populated at boot
// and only read afterwards.
type Catalog struct {
	serializers map[string]SerializerFactory
	validators  map[string]ValidatorFactory
	filters     map[string]FilterFactory
}

// NewCatalog returns a catalog holding the generic default artifacts.
func NewCatalog() *Catalog {
	c := &Catalog{
		serializers: make(map[string]SerializerFactory),
		validators:  make(map[string]ValidatorFactory),
		filters:     make(map[string]FilterFactory),
	}
	c.serializers[DefaultSerializerRef] = func(e *model.Entity) (Serializer, error) {
		return NewBaseResource(e), nil
	}
	c.validators[DefaultValidatorRef] = func(e *model.Entity) (Validator, error) {
		return BaseRequest{}, nil
	}
	return c
}

func (c *Catalog) RegisterSerializer(ref string, f SerializerFactory) error {
	if _, exists := c.serializers[ref]; exists {
		return fmt.Errorf("serializer %s already registered", ref)
	}
	c.serializers[ref] = f
	return nil
}

func (c *Catalog) RegisterValidator(ref string, f ValidatorFactory) error {
	if _, exists := c.validators[ref]; exists {
		return fmt.Errorf("validator %s already registered", ref)
	}
	c.validators[ref] = f
	return nil
}

func (c *Catalog) RegisterFilter(ref string, f FilterFactory) error {
	if _, exists := c.filters[ref]; exists {
		return fmt.Errorf("filter %s already registered", ref)
	}
	c.filters[ref] = f
	return nil
}

// Has reports whether a factory of the kind is registered under ref.
func (c *Catalog) Has(kind Kind, ref string) bool {
	var ok bool
	switch kind {
	case KindSerializer:
		_, ok = c.serializers[ref]
	case KindValidator:
		_, ok = c.validators[ref]
	case KindFilter:
		_, ok = c.filters[ref]
	}
	return ok
}

// Build runs the factory registered under ref for entity e.
func (c *Catalog) Build(kind Kind, ref string, e *model.Entity) (any, error) {
	switch kind {
	case KindSerializer:
		if f, ok := c.serializers[ref]; ok {
			return nonNil(f(e))
		}
	case KindValidator:
		if f, ok := c.validators[ref]; ok {
			return nonNil(f(e))
		}
	case KindFilter:
		if f, ok := c.filters[ref]; ok {
			return nonNil(f(e))
		}
	}
	return nil, fmt.Errorf("no %s registered under %s", kind, ref)
}

func nonNil[T any](v T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if any(v) == nil {
		return nil, fmt.Errorf("factory returned nil")
	}
	return v, nil
}
