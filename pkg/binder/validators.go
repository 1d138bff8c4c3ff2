package binder

import (
	"net/url"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// isbnRE accepts catalogue codes of up to 20 digits, hyphens and X. The check
// digit isn't verified; short local codes are allowed too.
var isbnRE = regexp.MustCompile(`^[0-9][0-9Xx-]{0,19}$`)

func isbnValidator(fl validator.FieldLevel) bool {
	return isbnRE.MatchString(fl.Field().String())
}

// urlValidator accepts empty strings and absolute http(s) URLs.
func urlValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
