// Package symbols implements the ARO type lattice and the immutable symbol
// tables the semantic analyzer builds over a Program (spec §4.F).
package symbols

import (
	"fmt"
	"strings"
)

// Type is the closed interface every lattice member implements. Unlike the
// teacher's nullability-carrying type system, ARO types have no nullable/
// required distinction (spec's data model has no such annotation); the
// lattice instead centers on the Integer ≤ Float widening rule and a
// universally-assignable Unknown for gradual typing.
type Type interface {
	String() string
	Equals(other Type) bool
	// AssignableFrom reports whether a value of type other may be used
	// where this type is expected, per the widening rule in spec §4.F.
	AssignableFrom(other Type) bool
}

// UnknownType is assignable to and from everything; it is what a symbol
// gets when its source expression's type cannot be coarsely inferred.
type UnknownType struct{}

func (UnknownType) String() string                { return "Unknown" }
func (UnknownType) Equals(other Type) bool         { _, ok := other.(UnknownType); return ok }
func (UnknownType) AssignableFrom(other Type) bool { return true }

// Unknown is the shared UnknownType value.
var Unknown Type = UnknownType{}

type primitiveKind int

const (
	kindString primitiveKind = iota
	kindInteger
	kindFloat
	kindBoolean
)

// PrimitiveType covers String, Integer, Float, Boolean.
type PrimitiveType struct {
	kind primitiveKind
}

func (p PrimitiveType) String() string {
	switch p.kind {
	case kindString:
		return "String"
	case kindInteger:
		return "Integer"
	case kindFloat:
		return "Float"
	case kindBoolean:
		return "Boolean"
	default:
		return "?"
	}
}

func (p PrimitiveType) Equals(other Type) bool {
	o, ok := other.(PrimitiveType)
	return ok && o.kind == p.kind
}

// AssignableFrom implements the lattice's only non-reflexive widening:
// Integer ≤ Float. An Unknown operand is always assignable.
func (p PrimitiveType) AssignableFrom(other Type) bool {
	if _, ok := other.(UnknownType); ok {
		return true
	}
	o, ok := other.(PrimitiveType)
	if !ok {
		return false
	}
	if o.kind == p.kind {
		return true
	}
	return p.kind == kindFloat && o.kind == kindInteger
}

var (
	String  Type = PrimitiveType{kindString}
	Integer Type = PrimitiveType{kindInteger}
	Float   Type = PrimitiveType{kindFloat}
	Boolean Type = PrimitiveType{kindBoolean}
)

// ListType is List<Elem>.
type ListType struct{ Elem Type }

func (l ListType) String() string { return fmt.Sprintf("List<%s>", l.Elem.String()) }
func (l ListType) Equals(other Type) bool {
	o, ok := other.(ListType)
	return ok && l.Elem.Equals(o.Elem)
}
func (l ListType) AssignableFrom(other Type) bool {
	if _, ok := other.(UnknownType); ok {
		return true
	}
	o, ok := other.(ListType)
	return ok && l.Elem.AssignableFrom(o.Elem)
}

// MapType is Map<Key,Value>.
type MapType struct {
	Key   Type
	Value Type
}

func (m MapType) String() string {
	return fmt.Sprintf("Map<%s, %s>", m.Key.String(), m.Value.String())
}
func (m MapType) Equals(other Type) bool {
	o, ok := other.(MapType)
	return ok && m.Key.Equals(o.Key) && m.Value.Equals(o.Value)
}
func (m MapType) AssignableFrom(other Type) bool {
	if _, ok := other.(UnknownType); ok {
		return true
	}
	o, ok := other.(MapType)
	return ok && m.Key.AssignableFrom(o.Key) && m.Value.AssignableFrom(o.Value)
}

// SchemaType is a named reference to an externally-defined shape (the
// qualified-noun annotation's schema-ref form).
type SchemaType struct{ Name string }

func (s SchemaType) String() string { return s.Name }
func (s SchemaType) Equals(other Type) bool {
	o, ok := other.(SchemaType)
	return ok && o.Name == s.Name
}
func (s SchemaType) AssignableFrom(other Type) bool {
	if _, ok := other.(UnknownType); ok {
		return true
	}
	o, ok := other.(SchemaType)
	return ok && o.Name == s.Name
}

// ParsePrimitiveName recognizes one of the grammar's primitive type names
// (spec §3), case-insensitively, returning ok=false for anything else
// (including schema references, which the caller turns into SchemaType).
func ParsePrimitiveName(name string) (Type, bool) {
	switch strings.ToLower(name) {
	case "string":
		return String, true
	case "int", "integer":
		return Integer, true
	case "float", "double":
		return Float, true
	case "bool", "boolean":
		return Boolean, true
	default:
		return nil, false
	}
}
