package models

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Arman3747/BloodConnect-Server/apperr"
)

// Validate runs the binding rules declared on v and reports failures as
// VALIDATION, naming fields by their json keys.
func Validate(v any) error {
	err := binding.Validator.ValidateStruct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return apperr.Wrap(apperr.CodeValidation, "invalid input", err)
	}

	t := reflect.Indirect(reflect.ValueOf(v)).Type()
	var missing, problems []string
	for _, fe := range fields {
		name := jsonName(t, fe.StructField())
		switch fe.Tag() {
		case "required":
			missing = append(missing, name)
		case "email":
			problems = append(problems, name+" is not a valid address")
		default:
			problems = append(problems, name+" is invalid")
		}
	}
	if len(missing) > 0 {
		problems = append([]string{"missing required fields: " + strings.Join(missing, ", ")}, problems...)
	}
	return apperr.Wrap(apperr.CodeValidation, strings.Join(problems, "; "), err)
}

func jsonName(t reflect.Type, field string) string {
	f, ok := t.FieldByName(field)
	if !ok {
		return field
	}
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field
	}
	return name
}
