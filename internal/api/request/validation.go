package request

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/familyhub/subscription-api/internal/core"
)

var validate = validator.New()

func init() {
	// Report fields by their JSON names so validation messages match the
	// request payload the client sent.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.InvalidArgument("invalid JSON: %v", err)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return core.InvalidArgument("%s", missingFieldsMessage(verrs))
		}
		return core.InvalidArgument("validation error: %v", err)
	}
	return nil
}

func missingFieldsMessage(verrs validator.ValidationErrors) string {
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	if len(fields) == 1 {
		return "Missing required field: " + fields[0]
	}
	return "Missing required fields: " + strings.Join(fields, ", ")
}
