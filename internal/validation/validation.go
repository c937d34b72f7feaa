// Package validation checks request input and sanitises user-written text.
package validation

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"reflect"
	"strings"

	"devfolio/internal/ident"
	"devfolio/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// Username length bounds for profile updates.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

var (
	validate = newValidator()
	strict   = bluemonday.StrictPolicy()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates v against its `validate` tags and returns a ValidationError
// listing every failing field.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return models.NewValidationError(FormatValidationError(err))
	}
	return nil
}

// FormatValidationError turns validator failures into one readable message.
func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fieldMessage(fe))
	}
	return strings.Join(messages, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must have at least %s items", field, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must have at most %s items", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// ValidateUsername accepts 3 to 30 characters already in normalized slug form.
func ValidateUsername(username string) error {
	if n := len(username); n < MinUsernameLength || n > MaxUsernameLength {
		return models.NewValidationError(fmt.Sprintf(
			"username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength))
	}
	if ident.Normalize(username) != username {
		return models.NewValidationError("username may only contain lowercase letters, digits and single hyphens")
	}
	return nil
}

// HTTPURL parses raw and requires an absolute http or https URL with a host.
func HTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, models.NewValidationError("url must be an absolute http(s) URL")
	}
	return u, nil
}

// StripHTML removes every tag, leaving plain text. The strict policy escapes
// the text it keeps; that is undone so values stored for JSON clients read
// exactly as typed.
func StripHTML(s string) string {
	return html.UnescapeString(strict.Sanitize(s))
}
