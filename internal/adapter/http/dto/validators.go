package dto

import (
	"html"
	"net/url"
	"reflect"
	"strings"

	"provably-fair-dice/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("address", validateAddress)
		_ = v.RegisterValidation("seed", validateSeed)
		_ = v.RegisterValidation("safe_url", validateSafeURL)
	}
}

// validateAddress accepts base58 strings that decode to 32 bytes.
func validateAddress(fl validator.FieldLevel) bool {
	_, err := domain.ParseAddress(fl.Field().String())
	return err == nil
}

// validateSeed accepts decimal integers in [0, 2^128).
func validateSeed(fl validator.FieldLevel) bool {
	_, err := domain.ParseSeed(fl.Field().String())
	return err == nil
}

// validateSafeURL accepts only http/https URLs.
func validateSafeURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true // optional field; use "required" tag to enforce presence
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer. Fields tagged
// `sanitize:"trim"` are only trimmed.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		trimOnly := rt.Field(i).Tag.Get("sanitize") == "trim"
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String(), trimOnly))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String(), trimOnly))
			}
		case reflect.Struct:
			sanitizeFields(f)
		}
	}
}

func sanitize(s string, trimOnly bool) string {
	s = strings.TrimSpace(s)
	if trimOnly {
		return s
	}
	return html.EscapeString(s)
}
