package order

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Sentinel errors for order operations.
var (
	ErrNotFound    = errors.New("order not found")
	ErrEmptyCart   = errors.New("cart is empty")
	ErrCartChanged = errors.New("cart changed during checkout")
)

// IllegalTransitionError reports a lifecycle move the state machine forbids.
type IllegalTransitionError struct {
	Number string
	From   Status
	Action string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot %s from %s", e.Number, e.Action, e.From)
}

// ValidationError reports bad checkout or review input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var validate = newValidator()

// newValidator adds notblank, which unlike required rejects whitespace-only
// text.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

func validateStruct(prefix string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return errors.Wrap(err, "validate")
	}
	fe := fields[0]
	return &ValidationError{
		Field:  prefix + "." + fe.Field(),
		Reason: reason(fe),
	}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "notblank":
		return "is required"
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "len":
		return "must be " + fe.Param() + " characters"
	case "numeric":
		return "must be numeric"
	}
	return "failed " + fe.Tag()
}
