// Package formula builds filter expressions for list queries and compiles
// them into the formula language the store evaluates.
//
//	f := formula.And(
//		formula.Field("Status").Eq("Active"),
//		formula.Field("Age").Gte(18),
//	)
//	formula.Compile(f) // AND({Status} = "Active", {Age} >= 18)
package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// Formula is a compilable filter expression.
type Formula interface {
	compile(builder *strings.Builder)
}

// Compile renders f in the store's formula syntax. A nil formula compiles to "".
func Compile(f Formula) string {
	if f == nil {
		return ""
	}

	builder := &strings.Builder{}
	f.compile(builder)

	return builder.String()
}

type raw string

func (r raw) compile(builder *strings.Builder) {
	builder.WriteString(string(r))
}

// Raw uses expression verbatim.
func Raw(expression string) Formula {
	return raw(expression)
}

type literal struct {
	value any
}

func (l literal) compile(builder *strings.Builder) {
	switch value := l.value.(type) {
	case nil:
		builder.WriteString("BLANK()")
	case Formula:
		value.compile(builder)
	case string:
		builder.WriteString(quote(value))
	case bool:
		if value {
			builder.WriteString("TRUE()")
		} else {
			builder.WriteString("FALSE()")
		}
	case int:
		builder.WriteString(strconv.Itoa(value))
	case int64:
		builder.WriteString(strconv.FormatInt(value, 10))
	case float64:
		builder.WriteString(strconv.FormatFloat(value, 'f', -1, 64))
	case float32:
		builder.WriteString(strconv.FormatFloat(float64(value), 'f', -1, 32))
	default:
		builder.WriteString(quote(toString(value)))
	}
}

// Value wraps a Go value as a formula literal.
func Value(value any) Formula {
	return literal{value: value}
}

// FieldRef references a field by name.
type FieldRef string

// Field references the field called name.
func Field(name string) FieldRef {
	return FieldRef(name)
}

func (f FieldRef) compile(builder *strings.Builder) {
	builder.WriteString("{")
	builder.WriteString(strings.ReplaceAll(string(f), "}", "\\}"))
	builder.WriteString("}")
}

// Eq compares the field for equality.
func (f FieldRef) Eq(value any) Formula { return binary{"=", f, literal{value}} }

// NotEq compares the field for inequality.
func (f FieldRef) NotEq(value any) Formula { return binary{"!=", f, literal{value}} }

// Gt checks the field is greater than value.
func (f FieldRef) Gt(value any) Formula { return binary{">", f, literal{value}} }

// Gte checks the field is greater than or equal to value.
func (f FieldRef) Gte(value any) Formula { return binary{">=", f, literal{value}} }

// Lt checks the field is less than value.
func (f FieldRef) Lt(value any) Formula { return binary{"<", f, literal{value}} }

// Lte checks the field is less than or equal to value.
func (f FieldRef) Lte(value any) Formula { return binary{"<=", f, literal{value}} }

// IsBlank checks the field is empty.
func (f FieldRef) IsBlank() Formula { return binary{"=", f, literal{nil}} }

type binary struct {
	operator string
	left     Formula
	right    Formula
}

func (b binary) compile(builder *strings.Builder) {
	b.left.compile(builder)
	builder.WriteString(" " + b.operator + " ")
	b.right.compile(builder)
}

type call struct {
	name string
	args []Formula
}

func (c call) compile(builder *strings.Builder) {
	builder.WriteString(c.name)
	builder.WriteString("(")

	for index, arg := range c.args {
		if index > 0 {
			builder.WriteString(", ")
		}

		arg.compile(builder)
	}

	builder.WriteString(")")
}

// Func calls a store function by name, e.g. Func("FIND", Value("x"), Field("Name")).
func Func(name string, args ...Formula) Formula {
	return call{name: strings.ToUpper(name), args: args}
}

// And is true when every operand is true.
func And(operands ...Formula) Formula { return call{name: "AND", args: operands} }

// Or is true when any operand is true.
func Or(operands ...Formula) Formula { return call{name: "OR", args: operands} }

// Not negates operand.
func Not(operand Formula) Formula { return call{name: "NOT", args: []Formula{operand}} }

func quote(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

	return `"` + replacer.Replace(value) + `"`
}

func toString(value any) string {
	if stringer, ok := value.(fmt.Stringer); ok {
		return stringer.String()
	}

	return fmt.Sprint(value)
}
