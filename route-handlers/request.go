package routehandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/coreybb/eventhub/webutil"
	"github.com/go-playground/validator/v10"
)

const maxRequestBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("eventdate", func(fl validator.FieldLevel) bool {
		_, err := parseEventDate(fl.Field().String())
		return err == nil
	})
	return v
}

// decodeAndValidate reads exactly one JSON object into dst and runs the
// validate tags on it.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			return webutil.NewHTTPErrorWrap(http.StatusRequestEntityTooLarge, "Request body too large", err)
		case errors.Is(err, io.EOF):
			return webutil.ErrBadRequest("Request body must not be empty")
		default:
			return webutil.ErrBadRequestWrap("Invalid request payload: "+err.Error(), err)
		}
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return webutil.ErrBadRequest("Request body must only contain a single JSON value")
	}

	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate request: %w", err)
	}

	fields := make([]webutil.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, webutil.FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return webutil.ErrValidation("", fields, err)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "eventdate":
		return "must be a valid date"
	default:
		return "is invalid"
	}
}

// ISO 8601 layouts tried before falling back to dateparse, most specific
// first.
var eventDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseEventDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	// Other unambiguous forms such as "2030-05-01 18:00" or "May 1, 2030".
	t, err := dateparse.ParseStrict(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised date %q: %w", s, err)
	}
	return t.UTC(), nil
}
