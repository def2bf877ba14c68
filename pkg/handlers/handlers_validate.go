package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/boxwatch/boxwatch-api/pkg/apperr"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// Report JSON field names, not Go field names, in validation errors.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// bindError turns a request binding failure into an InvalidArgument error
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Wrap(apperr.InvalidArgument, err, fieldMessage(fe))
	}

	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return apperr.Wrap(apperr.InvalidArgument, err, "Request body is required.")
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return apperr.Wrap(apperr.InvalidArgument, err, "Request body must be a JSON object.")
		}
		return apperr.Wrap(apperr.InvalidArgument, err, fmt.Sprintf("%s has the wrong type.", typeErr.Field))
	case errors.As(err, &syntax):
		return apperr.Wrap(apperr.InvalidArgument, err, "Request body must be valid JSON.")
	}
	return apperr.Wrap(apperr.InvalidArgument, err, "Invalid request.")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address.", fe.Field())
	case "gte":
		return fmt.Sprintf("%s must be at least %s.", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid.", fe.Field())
}
