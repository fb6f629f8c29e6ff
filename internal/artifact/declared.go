package artifact

import (
	"fmt"

	"YcrudAPI/internal/model"
)

// RegisterDeclared registers the resources, requests and filters declared in
// entity descriptors under their conventional references.
func RegisterDeclared(c *Catalog, reg *model.Registry) error {
	for _, e := range reg.Entities() {
		for key, decl := range e.Resources {
			scope, err := model.ParseScope(key)
			if err != nil {
				return fmt.Errorf("entity %s: %w", e.Name, err)
			}
			fields := decl.Fields
			ref := Ref(KindSerializer, scope.Internal, scope.Version, e.Name)
			err = c.RegisterSerializer(ref, func(*model.Entity) (Serializer, error) {
				if len(fields) == 0 {
					return nil, fmt.Errorf("resource declares no fields")
				}
				return NewFieldResource(fields), nil
			})
			if err != nil {
				return err
			}
		}
		for key, decl := range e.Requests {
			scope, err := model.ParseScope(key)
			if err != nil {
				return fmt.Errorf("entity %s: %w", e.Name, err)
			}
			rules := decl.Rules
			ref := Ref(KindValidator, scope.Internal, scope.Version, e.Name)
			err = c.RegisterValidator(ref, func(*model.Entity) (Validator, error) {
				return NewRuleValidator(rules)
			})
			if err != nil {
				return err
			}
		}
		for key, decl := range e.Filters {
			scope, err := model.ParseScope(key)
			if err != nil {
				return fmt.Errorf("entity %s: %w", e.Name, err)
			}
			params := decl.Params
			ref := Ref(KindFilter, scope.Internal, scope.Version, e.Name)
			err = c.RegisterFilter(ref, func(*model.Entity) (Filter, error) {
				return NewParamFilter(params)
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
