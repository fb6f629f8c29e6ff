// Package artifact defines the serializer, validator and filter artifacts an
// entity is handled with, and the catalog of typed factories that produces them.
package artifact

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindSerializer Kind = iota
	KindValidator
	KindFilter
)

const (
	// DefaultSerializerRef and DefaultValidatorRef are the generic fallbacks.
	// Filters have no default: "no filter" is a valid outcome.
	DefaultSerializerRef = "Resources.BaseResource"
	DefaultValidatorRef  = "Requests.BaseRequest"

	internalSegment = "Internal"
)

func (k Kind) String() string {
	switch k {
	case KindSerializer:
		return "serializer"
	case KindValidator:
		return "validator"
	case KindFilter:
		return "filter"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Namespace is the leading segment of conventional references.
func (k Kind) Namespace() string {
	switch k {
	case KindSerializer:
		return "Resources"
	case KindValidator:
		return "Requests"
	default:
		return "Filter"
	}
}

// Suffix is appended to the entity type name in conventional references.
func (k Kind) Suffix() string {
	switch k {
	case KindValidator:
		return "Request"
	case KindFilter:
		return "Filter"
	default:
		return ""
	}
}

// DefaultRef returns the generic artifact of the kind, "" for filters.
func (k Kind) DefaultRef() string {
	switch k {
	case KindSerializer:
		return DefaultSerializerRef
	case KindValidator:
		return DefaultValidatorRef
	}
	return ""
}

// Ref builds <Namespace>[.Internal].v<version>.<Entity><Suffix>.
func Ref(kind Kind, internal bool, version int, entity string) string {
	parts := []string{kind.Namespace()}
	if internal {
		parts = append(parts, internalSegment)
	}
	parts = append(parts, fmt.Sprintf("v%d", version), entity+kind.Suffix())
	return strings.Join(parts, ".")
}

// StripInternal removes the internal segment from a conventional reference.
func StripInternal(ref string) string {
	return strings.Replace(ref, "."+internalSegment+".", ".", 1)
}
