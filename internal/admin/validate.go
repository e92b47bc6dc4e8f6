package admin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/five82/marketdesk/internal/form"
)

// ErrValidation is returned by Session.Submit when the draft fails the
// page's form rules.
var ErrValidation = errors.New("form has invalid fields")

// formValidate is shared by every page.
var formValidate *validator.Validate

func init() {
	formValidate = validator.New()
	if err := formValidate.RegisterValidation("trimmed", validateTrimmed); err != nil {
		panic(fmt.Sprintf("register trimmed validation: %v", err))
	}
}

// validateTrimmed rejects strings with leading or trailing whitespace.
func validateTrimmed(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == strings.TrimSpace(s)
}

// Validate checks d against the page's form rules and returns a message per
// failing field. Fields without a rule are not checked.
func Validate(p Page, d form.Draft) map[string]string {
	if len(p.FormRules) == 0 {
		return map[string]string{}
	}
	data := make(map[string]any, len(p.FormRules))
	for name := range p.FormRules {
		data[name] = d[name]
	}

	out := map[string]string{}
	for field, res := range formValidate.ValidateMap(data, p.FormRules) {
		switch e := res.(type) {
		case validator.ValidationErrors:
			if len(e) > 0 {
				out[field] = message(e[0])
			}
		case error:
			out[field] = e.Error()
		default:
			out[field] = fmt.Sprint(res)
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "trimmed":
		return "must not start or end with spaces"
	case "min":
		if isText(fe) {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if isText(fe) {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

func isText(fe validator.FieldError) bool {
	_, ok := fe.Value().(string)
	return ok
}
