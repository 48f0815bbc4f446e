package schemas

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

// Validator returns the shared struct validator. Field errors are reported with
// JSON field names and the http_link tag is registered.
func Validator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("http_link", func(fl validator.FieldLevel) bool {
			return IsHTTPLink(fl.Field().String())
		})
		structValidator = v
	})
	return structValidator
}

// IsHTTPLink reports whether s is an absolute http or https URL with a host.
func IsHTTPLink(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// ValidateStruct runs the validate tags of s. Field paths are prefixed with
// prefix and drop the Go type name and embedded struct names.
func ValidateStruct(prefix string, s interface{}) []FieldError {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: orRoot(prefix), Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, FieldError{
			Field:   joinPath(prefix, fieldPath(fe.Namespace())),
			Message: describe(fe),
		})
	}
	return out
}

func fieldPath(namespace string) string {
	segments := strings.Split(namespace, ".")
	if len(segments) > 0 {
		segments = segments[1:]
	}
	kept := segments[:0]
	for _, s := range segments {
		if s == "ChartBase" {
			continue
		}
		kept = append(kept, s)
	}
	return strings.Join(kept, ".")
}

func joinPath(prefix, path string) string {
	switch {
	case prefix == "":
		return orRoot(path)
	case path == "":
		return prefix
	default:
		return prefix + "." + path
	}
}

func orRoot(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}

func describe(fe validator.FieldError) string {
	countable := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if countable {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if countable {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "eq":
		return fmt.Sprintf("must equal %s", fe.Param())
	case "http_link":
		return "must be an absolute http(s) URL"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
