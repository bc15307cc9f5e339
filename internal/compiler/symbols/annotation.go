package symbols

import "github.com/aro-lang/aro/internal/compiler/ast"

// FromAnnotation converts a parsed qualified-noun annotation into a lattice
// Type. Shapes with no natural lattice member (literal/offset/index/range/
// pick/path annotations are specifiers, not types) coarsen to Unknown —
// this is the "coarse typing" spec §9 calls for, not an error.
func FromAnnotation(ann *ast.TypeAnnotation) Type {
	if ann == nil {
		return Unknown
	}
	switch ann.Kind {
	case ast.AnnotationPrimitive:
		if t, ok := ParsePrimitiveName(ann.Name); ok {
			return t
		}
		return Unknown
	case ast.AnnotationSchemaRef:
		return SchemaType{Name: ann.Name}
	case ast.AnnotationList:
		return ListType{Elem: FromAnnotation(ann.ElementType)}
	case ast.AnnotationMap:
		return MapType{Key: FromAnnotation(ann.KeyType), Value: FromAnnotation(ann.ValueType)}
	default:
		return Unknown
	}
}
