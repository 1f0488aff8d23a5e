package action

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/akademi-id/akademi/internal/i18n"
)

// NewValidator returns a validator that reports fields by their `label` tag.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if label := strings.TrimSpace(field.Tag.Get("label")); label != "" {
			return label
		}
		return field.Name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 \-]{6,18}[0-9]$`)
)

// FieldMessage renders a single validation failure.
func FieldMessage(loc *i18n.Localizer, fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return loc.T(i18n.MsgFieldRequired, label)
	case "email":
		return loc.T(i18n.MsgFieldEmail, label)
	case "min":
		return loc.T(i18n.MsgFieldMin, label, fe.Param())
	case "max":
		return loc.T(i18n.MsgFieldMax, label, fe.Param())
	case "numeric":
		return loc.T(i18n.MsgFieldNumeric, label)
	case "phone":
		return loc.T(i18n.MsgFieldPhone, label)
	case "slug":
		return loc.T(i18n.MsgFieldSlug, label)
	case "oneof":
		return loc.T(i18n.MsgFieldOneOf, label)
	case "eqfield":
		return loc.T(i18n.MsgFieldMismatch, label)
	default:
		return loc.T(i18n.MsgFieldInvalid, label)
	}
}
