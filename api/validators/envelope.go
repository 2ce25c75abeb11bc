package validators

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/angelmondragon/cesink/internal/events"
	pkgerrors "github.com/angelmondragon/cesink/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// Field names are reported as CloudEvent attribute names (SpecVersion -> specversion).
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.ToLower(f.Name)
	})
	return v
}

// Envelope checks the required CloudEvent context attributes.
func Envelope(env events.Envelope) error {
	if err := validate.Struct(env); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *pkgerrors.Error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		details := map[string]string{}
		missing := make([]string, 0, len(errs))
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
			missing = append(missing, fieldErr.Field())
		}
		sort.Strings(missing)
		msg := fmt.Sprintf("cloudevent is missing required attributes: %s", strings.Join(missing, ", "))
		return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	}
	return "is invalid"
}
