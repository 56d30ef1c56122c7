package users

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/auction-storefront/internal/errors"
	"github.com/jrsteele09/auction-storefront/outcome"
)

// Validator mirrors the backend's field rules so obviously bad forms fail
// before a request is made. Failures use the ValidationFailure shape.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	// Registration of a fixed tag on a fresh instance cannot fail
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return ValidatePasswordStrength(fl.Field().String())
	})
	return &Validator{validate: v}
}

func (v *Validator) ValidateRegistration(r Registration) error {
	return v.check(r)
}

func (v *Validator) ValidatePasswordChange(p PasswordChange) error {
	return v.check(p)
}

func (v *Validator) ValidateProfileUpdate(u ProfileUpdate) error {
	return v.check(u)
}

func (v *Validator) check(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrapf(errors.ErrValidation, "%s", err.Error())
	}

	fields := outcome.FieldErrors{}
	for _, fe := range fieldErrs {
		fields[fe.Field()] = append(fields[fe.Field()], message(fe))
	}
	return outcome.ValidationFailure(fields, "").Err()
}

// fieldName reports fields by their wire name so local and backend errors share keys
func fieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		name = fld.Tag.Get("form")
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "password":
		return errors.ErrWeakPassword.Error()
	case "eqfield":
		return errors.ErrPasswordsDontMatch.Error()
	case "datetime":
		return "Enter a valid date (YYYY-MM-DD)."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	default:
		return fe.Error()
	}
}
