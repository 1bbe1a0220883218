package tables

import (
	"fmt"
	"sort"
)

// FieldKind is the JSON kind a field value must have.
type FieldKind string

// Field kinds understood by FieldShape.
const (
	KindAny     FieldKind = "any"
	KindString  FieldKind = "string"
	KindNumber  FieldKind = "number"
	KindBoolean FieldKind = "boolean"
	KindArray   FieldKind = "array"
	KindObject  FieldKind = "object"
)

// FieldSpec declares the expected kind of one field and whether it must be present.
type FieldSpec struct {
	Kind     FieldKind
	Required bool
}

// Required declares a field that must be present with the given kind.
func Required(kind FieldKind) FieldSpec {
	return FieldSpec{Kind: kind, Required: true}
}

// Optional declares a field that, when present, must have the given kind.
func Optional(kind FieldKind) FieldSpec {
	return FieldSpec{Kind: kind}
}

// FieldShape is a declarative field validator: a map from field name to spec.
// Fields not named in the shape are accepted as they are.
//
//	shape := tables.FieldShape{
//		"Name": tables.Required(tables.KindString),
//		"Age":  tables.Optional(tables.KindNumber),
//	}
//	people := tables.NewTable[tables.Fields](base, "People", shape)
type FieldShape map[string]FieldSpec

// CreateValidation implements Validator.
func (s FieldShape) CreateValidation(reference string) ValidationContext[Fields] {
	return NewValidation(fieldsDescription(reference), func(checker *Checker, input any) (Fields, bool) {
		object, ok := checker.Object(input)
		if !ok {
			return nil, false
		}

		s.check(checker, object)

		return Fields(object), !checker.Failed()
	})
}

func (s FieldShape) check(checker *Checker, object map[string]any) {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		spec := s[name]

		value, present := object[name]
		if !present {
			if spec.Required {
				checker.Failf("missing required field %q", name)
			}

			continue
		}

		if !spec.Kind.matches(value) {
			checker.Failf("field %q expected %s, found %s", name, spec.Kind, KindOf(value))
		}
	}
}

func (k FieldKind) matches(value any) bool {
	switch k {
	case KindAny, "":
		return true
	case KindObject:
		object, ok := value.(map[string]any)

		return ok && object != nil
	default:
		return KindOf(value) == string(k)
	}
}

// StructFields returns a validator that checks the field set against shape
// (which may be nil) and then decodes it into F.
func StructFields[F any](shape FieldShape) Validator[F] {
	return ValidatorFunc[F](func(reference string) ValidationContext[F] {
		return NewValidation(fieldsDescription(reference), func(checker *Checker, input any) (F, bool) {
			var zero F

			object, ok := checker.Object(input)
			if !ok {
				return zero, false
			}

			shape.check(checker, object)

			if checker.Failed() {
				return zero, false
			}

			fields, err := convertFields[F](object)
			if err != nil {
				checker.Fail(err)

				return zero, false
			}

			return fields, true
		})
	})
}

func fieldsDescription(reference string) string {
	if reference == "" {
		return "fields"
	}

	return fmt.Sprintf("fields of record %q", reference)
}
