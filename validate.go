package promptgallery

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/eringen/promptgallery/catalog"
)

// requestValidator adapts validator/v10 to echo.Validator. Field names in
// messages are the JSON names clients send.
type requestValidator struct {
	v *validator.Validate
}

func newValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return echo.NewHTTPError(http.StatusBadRequest, fieldMessage(verrs[0]))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field %q is required.", fe.Field())
	case "url", "http_url":
		return fmt.Sprintf("Field %q must be an http(s) URL.", fe.Field())
	}
	return fmt.Sprintf("Field %q is invalid.", fe.Field())
}

// requireForm returns a 400 naming the first form field that is blank.
func requireForm(c echo.Context, fields ...string) error {
	for _, f := range fields {
		if strings.TrimSpace(c.FormValue(f)) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Field %q is required.", f))
		}
	}
	return nil
}

// TagList decodes tags sent either as a JSON array or a comma-separated string.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = catalog.NormalizeTags(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("tags: expected array or string")
	}
	*t = catalog.ParseTags(s)
	return nil
}
