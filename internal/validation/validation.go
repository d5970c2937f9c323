package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	slugPattern   = regexp.MustCompile(`^[a-z0-9-]+$`)
	githubPattern = regexp.MustCompile(`^https?://github\.com/\S+$`)
)

// Errors carries one human readable message per invalid field.
type Errors struct {
	Messages []string
}

func (e *Errors) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// New builds an *Errors from the given messages.
func New(messages ...string) *Errors {
	return &Errors{Messages: messages}
}

// Messages extracts the per-field messages of err, if it carries any.
func Messages(err error) ([]string, bool) {
	var ve *Errors
	if errors.As(err, &ve) {
		return ve.Messages, true
	}
	return nil, false
}

// Validator wraps go-playground/validator with the service's custom tags and
// json field names in messages.
type Validator struct {
	v *validator.Validate
}

var (
	defaultOnce sync.Once
	defaultV    *Validator
)

// Default returns a shared Validator. validator.Validate caches struct
// metadata and is safe for concurrent use.
func Default() *Validator {
	defaultOnce.Do(func() { defaultV = NewValidator() })
	return defaultV
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("github_url", func(fl validator.FieldLevel) bool {
		return githubPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("strong_password", validateStrongPassword)
	return &Validator{v: v}
}

// RegisterStructValidation exposes cross-field rules to callers.
func (val *Validator) RegisterStructValidation(fn validator.StructLevelFunc, types ...interface{}) {
	val.v.RegisterStructValidation(fn, types...)
}

// Struct validates s and returns *Errors on constraint failures.
func (val *Validator) Struct(s interface{}) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, message(fe))
	}
	return &Errors{Messages: out}
}

// Var validates a single value against tag.
func (val *Validator) Var(name string, value interface{}, tag string) error {
	err := val.v.Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, messageFor(name, fe))
	}
	return &Errors{Messages: out}
}

// fieldPath drops the root struct name: "Project.images[0].src" -> "images[0].src".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	return messageFor(fieldPath(fe), fe)
}

func messageFor(field string, fe validator.FieldError) string {
	kind := fe.Kind()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		switch kind {
		case reflect.String:
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		switch kind {
		case reflect.String:
			return fmt.Sprintf("%s cannot exceed %s characters", field, fe.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("%s cannot contain more than %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s cannot exceed %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(strings.Fields(fe.Param()), ", "))
	case "slug":
		return fmt.Sprintf("%s can only contain lowercase letters, numbers, and hyphens", field)
	case "github_url":
		return fmt.Sprintf("%s must be a valid GitHub repository URL", field)
	case "strong_password":
		return fmt.Sprintf("%s must contain at least one uppercase letter, one lowercase letter, one number and one special character", field)
	case "mongodb":
		return fmt.Sprintf("%s must be a valid id", field)
	case "gtefield":
		return fmt.Sprintf("%s must be after %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	var upper, lower, digit, special bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && lower && digit && special
}
