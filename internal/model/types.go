package model

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entity is the descriptor of one registered data entity kind.
// It is immutable once the registry is frozen.
type Entity struct {
	Name           string               `yaml:"-"` // logical type name, taken from the file name
	Table          string               `yaml:"table"`
	Singular       string               `yaml:"singular"`         // envelope key for single records
	Plural         string               `yaml:"plural"`           // envelope key and URL segment for collections
	PrimaryKey     string               `yaml:"primary_key"`      // default "id"
	PublicID       string               `yaml:"public_id"`        // column holding the public identifier, default "public_id"
	PublicIDPrefix string               `yaml:"public_id_prefix"` // default Singular
	UUIDColumn     string               `yaml:"uuid"`             // optional, generated on create
	Timestamp      string               `yaml:"timestamp"`        // canonical timestamp for latest/oldest, default "created_at"
	Timestamps     bool                 `yaml:"timestamps"`       // maintain created_at/updated_at
	SoftDelete     bool                 `yaml:"soft_delete"`      // delete stamps deleted_at
	TenantColumn   string               `yaml:"tenant_column"`
	Fillable       []string             `yaml:"fillable"`
	Filterable     []string             `yaml:"filterable"`
	Searchable     []string             `yaml:"searchable"`
	Hidden         []string             `yaml:"hidden"`
	Relations      map[string]*Relation `yaml:"relations"`

	// explicit artifact overrides, win over the naming convention
	Serializer string `yaml:"serializer"`
	Validator  string `yaml:"validator"`
	Filter     string `yaml:"filter"`

	// declarative artifacts, keyed by scope ("v1", "internal.v2")
	Resources map[string]*ResourceDecl `yaml:"resources"`
	Requests  map[string]*RequestDecl  `yaml:"requests"`
	Filters   map[string]*FilterDecl   `yaml:"filters"`

	// для runtime (не сериализуется)
	_filterable map[string]struct{} `yaml:"-"`
	_hidden     map[string]struct{} `yaml:"-"`
}

// Relation describes an association of the entity.
type Relation struct {
	Type  string `yaml:"type"`  // has_one, has_many, belongs_to
	Model string `yaml:"model"` // logical related entity, optional when table is set
	Table string `yaml:"table"` // related table
	FK    string `yaml:"fk"`    // has_*: column on the related table; belongs_to: column on this table
	PK    string `yaml:"pk"`    // has_*: key on this table; belongs_to: key on the related table
	Order string `yaml:"order"` // default ordering of contained rows

	_ModelRef *Entity `yaml:"-"`
}

// ResourceDecl declares a field-list serializer.
type ResourceDecl struct {
	Fields []ResourceField `yaml:"fields"`
}

type ResourceField struct {
	Source string `yaml:"source"`
	Alias  string `yaml:"alias"`
}

// UnmarshalYAML accepts both `- name` and `- {source: name, alias: title}`.
func (f *ResourceField) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.Source = node.Value
		return nil
	}
	type plain ResourceField
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*f = ResourceField(p)
	return nil
}

// Key is the output key of the field.
func (f ResourceField) Key() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Source
}

// RequestDecl declares a rule-based validator: field -> rules.
type RequestDecl struct {
	Rules map[string][]string `yaml:"rules"`
}

// FilterDecl declares a parameter-driven filter: param -> SQL predicate with ? placeholders.
type FilterDecl struct {
	Params map[string]string `yaml:"params"`
}

// Scope is a parsed declaration key such as "internal.v2".
type Scope struct {
	Internal bool
	Version  int
}

// ParseScope parses "v1" and "internal.v1" declaration keys.
func ParseScope(key string) (Scope, error) {
	var s Scope
	rest := strings.TrimSpace(key)
	if strings.HasPrefix(strings.ToLower(rest), "internal.") {
		s.Internal = true
		rest = rest[len("internal."):]
	}
	if !strings.HasPrefix(rest, "v") {
		return s, fmt.Errorf("invalid scope %q: expected v<N> or internal.v<N>", key)
	}
	n, err := strconv.Atoi(rest[1:])
	if err != nil || n < 1 {
		return s, fmt.Errorf("invalid scope %q: bad version", key)
	}
	s.Version = n
	return s, nil
}

func (e *Entity) KeyColumn() string {
	if e.PrimaryKey != "" {
		return e.PrimaryKey
	}
	return "id"
}

func (e *Entity) PublicIDColumn() string {
	if e.PublicID != "" {
		return e.PublicID
	}
	return "public_id"
}

func (e *Entity) TimestampColumn() string {
	if e.Timestamp != "" {
		return e.Timestamp
	}
	return "created_at"
}

func (e *Entity) SingularName() string {
	if e.Singular != "" {
		return e.Singular
	}
	return singularize(e.Table)
}

func (e *Entity) PluralName() string {
	if e.Plural != "" {
		return e.Plural
	}
	return e.Table
}

func (e *Entity) IDPrefix() string {
	if e.PublicIDPrefix != "" {
		return e.PublicIDPrefix
	}
	return e.SingularName()
}

// IsFilterable reports whether field is in the caller-visible filter whitelist.
func (e *Entity) IsFilterable(field string) bool {
	if e._filterable == nil {
		e.indexFields()
	}
	_, ok := e._filterable[field]
	return ok
}

// IsSortable accepts whitelisted fields and the canonical timestamp.
func (e *Entity) IsSortable(field string) bool {
	return field == e.TimestampColumn() || e.IsFilterable(field)
}

func (e *Entity) IsHidden(field string) bool {
	if e._hidden == nil {
		e.indexFields()
	}
	_, ok := e._hidden[field]
	return ok
}

func (e *Entity) IsFillable(field string) bool {
	for _, f := range e.Fillable {
		if f == field {
			return true
		}
	}
	return false
}

func (e *Entity) GetRelation(name string) *Relation {
	if e == nil || e.Relations == nil {
		return nil
	}
	return e.Relations[name]
}

// indexFields builds the lookup sets. Without an explicit filterable list the
// whitelist falls back to fillable columns plus public id and timestamps.
func (e *Entity) indexFields() {
	filterable := make(map[string]struct{})
	if len(e.Filterable) > 0 {
		for _, f := range e.Filterable {
			filterable[f] = struct{}{}
		}
	} else {
		for _, f := range e.Fillable {
			filterable[f] = struct{}{}
		}
		filterable[e.PublicIDColumn()] = struct{}{}
		filterable[e.TimestampColumn()] = struct{}{}
		if e.Timestamps {
			filterable["created_at"] = struct{}{}
			filterable["updated_at"] = struct{}{}
		}
	}
	hidden := make(map[string]struct{}, len(e.Hidden))
	for _, f := range e.Hidden {
		hidden[f] = struct{}{}
	}
	e._filterable = filterable
	e._hidden = hidden
}

// GetModelRef returns the related entity when the relation targets a registered one.
func (r *Relation) GetModelRef() *Entity {
	return r._ModelRef
}

func (r *Relation) SetModelRef(e *Entity) {
	r._ModelRef = e
}

func (r *Relation) IsBelongsTo() bool {
	return r.Type == "belongs_to"
}

func singularize(s string) string {
	switch {
	case strings.HasSuffix(s, "ies"):
		return strings.TrimSuffix(s, "ies") + "y"
	case strings.HasSuffix(s, "sses"), strings.HasSuffix(s, "xes"), strings.HasSuffix(s, "ches"), strings.HasSuffix(s, "shes"):
		return s[:len(s)-2]
	case strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss"):
		return strings.TrimSuffix(s, "s")
	}
	return s
}
