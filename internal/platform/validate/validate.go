// Package validate plugs go-playground/validator into echo. Request structs
// declare rules in `validate` tags and the client-facing text in `message`
// tags; the first failing field becomes an apperr Validation error.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/auth"
)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return auth.StrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, err := auth.ParseRole(fl.Field().String())
		return err == nil
	})
	return &Validator{v: v}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("%s", err.Error())
	}
	return apperr.Validation("%s", messageFor(i, fieldErrs[0]))
}

func messageFor(i interface{}, fe validator.FieldError) string {
	t := reflect.TypeOf(i)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if msg := f.Tag.Get("message"); msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field()))
}
