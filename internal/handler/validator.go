package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts validator/v10 to echo.Validator.  Register it with
// e.Validator = handler.NewValidator().
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator that reports json field names.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// bindAndValidate decodes the JSON body into req and validates it.  It
// writes the 400 response itself and returns false when the request is
// unusable.
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": "InvalidInput"})
	}
	if err := c.Validate(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make([]string, len(ve))
			for i, fe := range ve {
				// drop the request struct name: "customerData.email failed email"
				ns := fe.Namespace()
				if dot := strings.Index(ns, "."); dot >= 0 {
					ns = ns[dot+1:]
				}
				fields[i] = fmt.Sprintf("%s failed %s", ns, fe.Tag())
			}
			return false, c.JSON(http.StatusBadRequest, echo.Map{
				"error":  "validation failed",
				"code":   "InvalidInput",
				"fields": fields,
			})
		}
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "code": "InvalidInput"})
	}
	return true, nil
}
