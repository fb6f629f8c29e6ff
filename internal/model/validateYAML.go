package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

var allowedEntityKeys = map[string]bool{
	"table":            true,
	"singular":         true,
	"plural":           true,
	"primary_key":      true,
	"public_id":        true,
	"public_id_prefix": true,
	"uuid":             true,
	"timestamp":        true,
	"timestamps":       true,
	"soft_delete":      true,
	"tenant_column":    true,
	"fillable":         true,
	"filterable":       true,
	"searchable":       true,
	"hidden":           true,
	"relations":        true,
	"serializer":       true,
	"validator":        true,
	"filter":           true,
	"resources":        true,
	"requests":         true,
	"filters":          true,
}

var allowedRelationKeys = map[string]bool{
	"type":  true,
	"model": true,
	"table": true,
	"fk":    true,
	"pk":    true,
	"order": true,
}

var allowedRelationTypeValues = map[string]bool{
	"has_one":    true,
	"has_many":   true,
	"belongs_to": true,
}

var allowedResourceKeys = map[string]bool{
	"fields": true,
}

var allowedResourceFieldKeys = map[string]bool{
	"source": true,
	"alias":  true,
}

var allowedRequestKeys = map[string]bool{
	"rules": true,
}

var allowedFilterKeys = map[string]bool{
	"params": true,
}

// contexts whose mapping keys are user-defined names
var openMappingContexts = map[string]bool{
	"relations-map": true,
	"resources-map": true,
	"requests-map":  true,
	"filters-map":   true,
	"rules-map":     true,
	"params-map":    true,
}

func validateYAMLNode(node *yaml.Node, context string) error {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := validateYAMLNode(child, "entity"); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		var allowedKeys map[string]bool
		switch context {
		case "entity":
			allowedKeys = allowedEntityKeys
		case "relation":
			allowedKeys = allowedRelationKeys
		case "resource":
			allowedKeys = allowedResourceKeys
		case "resource-field":
			allowedKeys = allowedResourceFieldKeys
		case "request":
			allowedKeys = allowedRequestKeys
		case "filter":
			allowedKeys = allowedFilterKeys
		default:
			if !openMappingContexts[context] {
				return fmt.Errorf("unexpected mapping in %s", context)
			}
		}

		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			key := keyNode.Value

			if allowedKeys != nil && !allowedKeys[key] {
				return fmt.Errorf("unknown key '%s' in %s", key, context)
			}
			if context == "relation" && key == "type" && !allowedRelationTypeValues[valNode.Value] {
				return fmt.Errorf("unknown relation type '%s'", valNode.Value)
			}

			nextContext := ""
			switch {
			case context == "entity" && key == "relations":
				nextContext = "relations-map"
			case context == "relations-map":
				nextContext = "relation"
			case context == "entity" && key == "resources":
				nextContext = "resources-map"
			case context == "resources-map":
				nextContext = "resource"
			case context == "resource" && key == "fields":
				nextContext = "fields-seq"
			case context == "entity" && key == "requests":
				nextContext = "requests-map"
			case context == "requests-map":
				nextContext = "request"
			case context == "request" && key == "rules":
				nextContext = "rules-map"
			case context == "rules-map":
				nextContext = "rule-list"
			case context == "entity" && key == "filters":
				nextContext = "filters-map"
			case context == "filters-map":
				nextContext = "filter"
			case context == "filter" && key == "params":
				nextContext = "params-map"
			case context == "params-map":
				nextContext = "param-value"
			default:
				nextContext = "scalar-" + key
			}

			if err := validateYAMLNode(valNode, nextContext); err != nil {
				return err
			}
		}

	case yaml.SequenceNode:
		itemContext := context
		if context == "fields-seq" {
			itemContext = "resource-field"
		}
		for _, item := range node.Content {
			if err := validateYAMLNode(item, itemContext); err != nil {
				return err
			}
		}

	case yaml.ScalarNode:
		// scalars are checked by the decoder
	}

	return nil
}
