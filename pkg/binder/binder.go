package binder

import (
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/segmentio/encoding/json"
)

var unknownFieldRE = regexp.MustCompile(`unknown field "([^"]*)"`)

// Binder implements echo.Binder. Payloads are decoded, normalised with mold,
// filled with defaults and then validated.
type Binder struct {
	query    *schema.Decoder
	form     *schema.Decoder
	conform  *mold.Transformer
	validate *validator.Validate
}

// New builds a Binder with the custom validators registered.
func New() (*Binder, error) {
	query := schema.NewDecoder()
	query.SetAliasTag("query")
	form := schema.NewDecoder()
	form.SetAliasTag("form")

	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	for tag, fn := range map[string]validator.Func{
		isbn: isbnValidator,
		link: urlValidator,
	} {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return &Binder{query, form, modifiers.New(), validate}, nil
}

// Bind implements echo.Binder.
func (b *Binder) Bind(i interface{}, c echo.Context) error {
	req := c.Request()

	switch {
	case req.ContentLength > 0:
		if err := b.decodeBody(i, c); err != nil {
			return err
		}
	case req.Method == http.MethodGet || req.Method == http.MethodDelete:
		if err := decodeValues(b.query, i, c.QueryParams()); err != nil {
			return err
		}
	case allowEmptyBody(c):
	default:
		return errcodes.EmptyRequestBody()
	}

	if err := b.conform.Struct(req.Context(), i); err != nil {
		return errors.WithStack(err)
	}
	if err := defaults.Set(i); err != nil {
		return errors.WithStack(err)
	}
	if err := b.validate.Struct(i); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errcodes.ValidationError(formatValidationError(verrs[0]))
		}
		return errors.WithStack(err)
	}
	return nil
}

func (b *Binder) decodeBody(i interface{}, c echo.Context) error {
	req := c.Request()
	defer req.Body.Close()

	ctype := req.Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		dec := json.NewDecoder(req.Body)
		if strict, ok := c.Get("disallow_unknown_fields").(bool); !ok || strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(i); err != nil {
			if m := unknownFieldRE.FindStringSubmatch(err.Error()); m != nil {
				return errcodes.UnknownParameter(m[1])
			}
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				return errcodes.ValidationTypeError(formatUnmarshalTypeError(typeErr))
			}
			logger.FromEchoContext(c).Err(err).Warn("malformed json payload")
			return errcodes.MalformedPayload()
		}
		return nil
	case strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		params, err := c.FormParams()
		if err != nil {
			return errcodes.MalformedPayload()
		}
		return decodeValues(b.form, i, params)
	default:
		return errcodes.UnsupportedMediaType()
	}
}

// allowEmptyBody lets a route accept a bodiless POST, e.g. returning a
// borrow.
func allowEmptyBody(c echo.Context) bool {
	disallow, ok := c.Get("disallow_empty_body").(bool)
	return ok && !disallow
}

func decodeValues(decoder *schema.Decoder, i interface{}, values url.Values) error {
	err := decoder.Decode(i, values)
	if err == nil {
		return nil
	}
	var multi schema.MultiError
	if !errors.As(err, &multi) {
		return errors.WithStack(err)
	}
	// Report a single failure; sort keys so the choice is stable.
	keys := make([]string, 0, len(multi))
	for k := range multi {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	first := multi[keys[0]]

	var conv schema.ConversionError
	if errors.As(first, &conv) {
		return errcodes.ValidationTypeError(formatSchemaConversionError(conv))
	}
	var unknown schema.UnknownKeyError
	if errors.As(first, &unknown) {
		return errcodes.UnknownParameter(unknown.Key)
	}
	return errors.WithStack(first)
}
