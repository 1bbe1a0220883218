package tables

import (
	"errors"
	"fmt"
	"strings"
)

// Static errors for err113 compliance.
var (
	ErrNoValidationPerformed = errors.New("cannot create an error from the latest validation, because no real validation has taken place")
	ErrValidationReused      = errors.New("validation context has already checked an input")
	ErrUnknownValidation     = errors.New("encountered an unknown error while validating the response")
)

// ValidationContext checks exactly one input against one expected shape.
//
// IsValid reports whether input conforms and, when it does, returns the input
// narrowed to T. ValidationError returns nil until a check has failed; after a
// failing check it returns one error aggregating every recorded defect.
type ValidationContext[T any] interface {
	IsValid(input any) (T, bool)
	ValidationError() error
}

// Validator creates a fresh ValidationContext per check so that error state
// never leaks between independent validations of the same type. The reference
// (typically a record id) lets messages name the input that failed.
type Validator[T any] interface {
	CreateValidation(reference string) ValidationContext[T]
}

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc[T any] func(reference string) ValidationContext[T]

// CreateValidation implements Validator.
func (f ValidatorFunc[T]) CreateValidation(reference string) ValidationContext[T] {
	return f(reference)
}

// CheckFunc is the body of a validation built with NewValidation.
type CheckFunc[T any] func(checker *Checker, input any) (T, bool)

// NewValidation returns a single-use ValidationContext that runs check against
// the first input it is given. Errors recorded on the Checker are rendered
// under description.
func NewValidation[T any](description string, check CheckFunc[T]) ValidationContext[T] {
	return &simpleValidation[T]{
		description: description,
		check:       check,
	}
}

type simpleValidation[T any] struct {
	description string
	check       CheckFunc[T]
	checker     Checker
	used        bool
}

func (v *simpleValidation[T]) IsValid(input any) (T, bool) {
	var zero T

	if v.used {
		v.checker.Fail(ErrValidationReused)

		return zero, false
	}

	v.used = true

	value, ok := v.check(&v.checker, input)
	if !ok || len(v.checker.errs) > 0 {
		if len(v.checker.errs) == 0 {
			v.checker.Fail(ErrUnknownValidation)
		}

		return zero, false
	}

	return value, true
}

func (v *simpleValidation[T]) ValidationError() error {
	if len(v.checker.errs) == 0 {
		return nil
	}

	causes := make([]error, len(v.checker.errs))
	copy(causes, v.checker.errs)

	return &ValidationError{Description: v.description, Causes: causes}
}

// Checker accumulates the errors of one validation in the order they were found.
type Checker struct {
	errs []error
}

// Fail records one defect.
func (c *Checker) Fail(err error) {
	c.errs = append(c.errs, err)
}

// Failf records one defect built from a format string.
func (c *Checker) Failf(format string, args ...any) {
	c.errs = append(c.errs, fmt.Errorf(format, args...)) //nolint:err113 // validation messages are dynamic by nature
}

// Failed reports whether any defect has been recorded so far.
func (c *Checker) Failed() bool {
	return len(c.errs) > 0
}

// Object confirms input is a non-null JSON object. On failure exactly one
// error describing the runtime kind actually found is recorded.
func (c *Checker) Object(input any) (map[string]any, bool) {
	object, ok := input.(map[string]any)
	if ok && object != nil {
		return object, true
	}

	c.Failf("expected an object, found %s", KindOf(input))

	return nil, false
}

// CheckNested runs a child validation and, when it fails, records the child's
// own aggregated error as a single defect of the parent.
func CheckNested[T any](checker *Checker, child ValidationContext[T], input any) (T, bool) {
	value, ok := child.IsValid(input)
	if !ok {
		err := child.ValidationError()
		if err == nil {
			err = ErrUnknownValidation
		}

		checker.Fail(err)
	}

	return value, ok
}

// KindOf names the JSON kind of a decoded value for diagnostics.
func KindOf(input any) string {
	switch value := input.(type) {
	case nil:
		return "null"
	case map[string]any:
		if value == nil {
			return "null"
		}

		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32, uint, uint64, uint32:
		return "number"
	default:
		return fmt.Sprintf("%T", input)
	}
}

// ValidationError is the aggregated shape error of one validation context.
type ValidationError struct {
	Description string
	Causes      []error
}

// Error renders the causes as an indented, numbered block. Every level of
// nesting indents continuation lines by one more tab.
func (e *ValidationError) Error() string {
	switch len(e.Causes) {
	case 0:
		return fmt.Sprintf("Encountered no errors while validating %q", e.Description)
	case 1:
		lines := strings.Split(e.Causes[0].Error(), "\n")
		builder := &strings.Builder{}
		fmt.Fprintf(builder, "Encountered an error while validating %q: %s", e.Description, lines[0])

		for _, line := range lines[1:] {
			builder.WriteString("\n\t" + line)
		}

		return builder.String()
	}

	builder := &strings.Builder{}
	fmt.Fprintf(builder, "Encountered %d errors while validating %q:", len(e.Causes), e.Description)

	for index, cause := range e.Causes {
		lines := strings.Split(cause.Error(), "\n")
		fmt.Fprintf(builder, "\n\t%d. %s", index+1, lines[0])

		for _, line := range lines[1:] {
			builder.WriteString("\n\t" + line)
		}
	}

	return builder.String()
}

// Unwrap exposes the causes to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	return e.Causes
}

// IsValidationError reports whether err is (or wraps) a shape error.
func IsValidationError(err error) bool {
	var validationErr *ValidationError

	return errors.As(err, &validationErr)
}
