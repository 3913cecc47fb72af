package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
)

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("role", validateRole)
	validate.RegisterTagNameFunc(useJSONTagNames)
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

// Empty role is let through: the default is applied later
func validateRole(fl validator.FieldLevel) bool {
	role := fl.Field().String()
	return role == "" || models.Role(role).Valid()
}
