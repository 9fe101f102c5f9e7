package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/donation-backend/internal/apperror"
	"github.com/sakif/donation-backend/internal/model"
)

// fieldLabels overrides the humanized field name in messages.
var fieldLabels = map[string]string{
	"stripe_card_token": "Credit card",
	"vat_id":            "VAT ID",
}

// Validator runs the validate struct tags on model.Donation and turns the
// failures into donor-readable apperror values.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	// Report errors under the submitted field names rather than Go names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			name = fld.Tag.Get("db")
		}
		return name
	})
	return &Validator{v: v}
}

// Validate returns nil or apperror.Errors, one entry per failing field.
func (val *Validator) Validate(d *model.Donation) error {
	err := val.v.Struct(d)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("service: validating donation: %w", err)
	}

	out := make(apperror.Errors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apperror.ValidationFailed(fe.Field(), message(fe)))
	}
	return out
}

func message(fe validator.FieldError) string {
	label := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "email":
		return label + " is not a valid email address"
	default:
		return label + " is invalid"
	}
}

// humanize turns "twitter_handle" into "Twitter handle".
func humanize(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
