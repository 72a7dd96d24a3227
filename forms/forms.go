// Package forms binds and checks submitted HTML form fields. Field-level
// rules live in `binding` tags and are enforced by the validator behind gin.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"patient-registry/validation"
)

func init() {
	// Report validation errors under the form field names.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	}
}

// normalizer is implemented by forms that clean their input before validation.
type normalizer interface {
	normalize()
}

// Bind fills form from the request's query and body values, trims it and
// validates it. The returned FieldErrors is empty when the form is valid.
func Bind(c *gin.Context, form interface{}) validation.FieldErrors {
	errs := validation.FieldErrors{}
	if err := c.Request.ParseForm(); err != nil { // Query string plus urlencoded body
		errs.Add("form", "The submission could not be read.")
		return errs
	}
	if err := binding.MapFormWithTag(form, c.Request.Form, "form"); err != nil {
		errs.Add("form", "The submission contains a malformed value.")
		return errs
	}
	if n, ok := form.(normalizer); ok {
		n.normalize() // Trim before the rules run
	}
	if err := binding.Validator.ValidateStruct(form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			errs.Add("form", err.Error())
			return errs
		}
		for _, fe := range verrs {
			errs.Add(fe.Field(), message(fe))
		}
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters long.", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters long.", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return "Enter a date as YYYY-MM-DD."
	}
	return "Invalid value."
}

// truthy interprets checkbox and boolean query values.
func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "on", "true", "yes", "y", "t":
		return true
	}
	return false
}
