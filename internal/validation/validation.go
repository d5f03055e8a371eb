// internal/validation/validation.go
//
// Client-side checks that block a submission before any request is made:
// required fields, date formats and ordering, enum membership and
// case-insensitive name uniqueness.

package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Error is a validation failure. Its message is user facing.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf builds a validation error.
func Errorf(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a validation failure.
func IsValidation(err error) bool {
	var vErr *Error
	return errors.As(err, &vErr)
}

// Message returns the user-facing text of err.
func Message(err error) string {
	var vErr *Error
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the console's custom rules.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		mustRegister(v, "isodate", isoDate)
		mustRegister(v, "notafter", notAfter)
		mustRegister(v, "digits", digits)
		mustRegister(v, "notblank", notBlank)
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

var isoDate validator.Func = func(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if value == "" {
		return true
	}
	_, err := time.Parse(DateLayout, value)
	return err == nil
}

// notAfter passes when the field's date is on or before the date in the
// sibling field named by the param. Unparseable dates are left to isodate.
var notAfter validator.Func = func(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	other := fl.Parent().FieldByName(fl.Param())
	if !other.IsValid() {
		return false
	}
	otherValue, ok := other.Interface().(string)
	if !ok {
		return false
	}
	start, err := time.Parse(DateLayout, value)
	if err != nil {
		return true
	}
	end, err := time.Parse(DateLayout, otherValue)
	if err != nil {
		return true
	}
	return !start.After(end)
}

var digits validator.Func = func(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var notBlank validator.Func = func(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return true
	}
	return strings.TrimSpace(value) != ""
}

// Struct validates s and converts the first failure into an *Error.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &Error{Message: err.Error()}
	}
	fe := fieldErrs[0]
	return &Error{Field: fe.Field(), Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	field := humanize(fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "isodate":
		return fmt.Sprintf("%s must be a date (YYYY-MM-DD)", field)
	case "notafter":
		return fmt.Sprintf("%s must be on or before %s", field, strings.ToLower(humanize(fe.Param())))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "hexcolor":
		return fmt.Sprintf("%s must be a hex color like #1E88E5", field)
	case "len":
		return fmt.Sprintf("%s must be %s characters", field, fe.Param())
	case "digits":
		return fmt.Sprintf("%s must contain only digits", field)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}

// humanize turns "StartDate" into "Start date".
func humanize(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// UniqueName rejects name when it matches any of taken, ignoring case and
// surrounding whitespace. label names the entity in the message.
func UniqueName(label, name string, taken []string) error {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return Errorf("Name", "%s name is required", label)
	}
	for _, existing := range taken {
		if strings.ToLower(strings.TrimSpace(existing)) == key {
			return Errorf("Name", "%s %q already exists", label, strings.TrimSpace(name))
		}
	}
	return nil
}
