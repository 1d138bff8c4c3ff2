package binder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/segmentio/encoding/json"
)

// Custom validation tags.
const (
	isbn = "isbn"
	link = "link"
)

// fixedMessages are the validation failures whose message only needs the
// field name.
var fixedMessages = map[string]string{
	"email":    "%q is not a valid email",
	isbn:       "%q is not a valid ISBN",
	link:       "%q must be an http or https URL",
	"required": "%q is required",
}

func formatUnmarshalTypeError(err *json.UnmarshalTypeError) string {
	return fmt.Sprintf("%q should be of type %s", strings.Trim(err.Field, "."), err.Type)
}

func formatSchemaConversionError(err schema.ConversionError) string {
	return fmt.Sprintf("%q should be of type %s", err.Key, err.Type)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	if msg, ok := fixedMessages[err.Tag()]; ok {
		return fmt.Sprintf(msg, field)
	}

	switch err.Tag() {
	case "gt":
		return fmt.Sprintf("%q must be greater than %s", field, err.Param())
	case "max":
		return formatBound(err, "less")
	case "min":
		return formatBound(err, "greater")
	case "oneof":
		choices := strings.Fields(err.Param())
		for i, choice := range choices {
			choices[i] = fmt.Sprintf("%q", choice)
		}
		return fmt.Sprintf("%q must be one of the following: %s", field, strings.Join(choices, ", "))
	}
	return fmt.Sprintf("%q is invalid", field)
}

// formatBound renders min/max failures. Numbers compare by value, strings and
// slices by length.
func formatBound(err validator.FieldError, direction string) string {
	field, param := err.Field(), err.Param()

	var unit string
	//exhaustive:ignore
	switch err.Kind() {
	case reflect.String:
		unit = "character"
	case reflect.Slice, reflect.Array, reflect.Map:
		unit = "element"
	default:
		return fmt.Sprintf("%q must be %s than or equal to %s", field, direction, param)
	}
	if param != "1" {
		unit += "s"
	}
	return fmt.Sprintf("%q length must be %s than or equal to %s %s", field, direction, param, unit)
}
