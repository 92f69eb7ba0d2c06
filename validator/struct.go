// Package validator validates parameter structs with go-playground/validator
// and reports failures as ecode validation errors keyed by JSON field name.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ncobase/ohsmetrics/ecode"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// messages maps validation tags to friendly messages.
var messages = map[string]string{
	"required": "%s is required",
	"min":      "%s must be at least %s",
	"max":      "%s must be at most %s",
	"lte":      "%s must be less than or equal to %s",
	"gte":      "%s must be greater than or equal to %s",
	"gt":       "%s must be greater than %s",
	"lt":       "%s must be less than %s",
	"oneof":    "%s must be one of [%s]",
	"gtefield": "%s must not be before %s",
}

func parseMessage(field string, e validator.FieldError) string {
	if msg, ok := messages[e.Tag()]; ok {
		if strings.Count(msg, "%s") == 2 {
			return fmt.Sprintf(msg, field, e.Param())
		}
		return fmt.Sprintf(msg, field)
	}
	return fmt.Sprintf("%s is invalid: %s", field, e.Tag())
}

// fieldPath drops the struct name from a namespace such as
// "PageParams.filters[0].column".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

// ValidateStruct validates s and returns a map of JSON field paths to
// friendly error messages. A nil map means s is valid.
func ValidateStruct(s any) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	out := make(map[string]string)
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			field := fieldPath(e)
			out[field] = parseMessage(field, e)
		}
		return out
	}
	out[""] = err.Error()
	return out
}

// Struct validates s and folds any failures into a single validation error.
func Struct(op string, s any) error {
	errs := ValidateStruct(s)
	if len(errs) == 0 {
		return nil
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = errs[f]
	}
	return ecode.NewValidationError(op, strings.Join(msgs, "; ")).With("fields", fields)
}
