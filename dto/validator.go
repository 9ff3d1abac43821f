package dto

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/Calstins/teensha/model"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	validate.RegisterValidation("strong_password", validateStrongPassword)
	validate.RegisterValidation("task_type", func(fl validator.FieldLevel) bool {
		return model.TaskType(fl.Field().String()).Valid()
	})
}

func GetValidator() *validator.Validate {
	return validate
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 {
		return false
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}

func FormatValidationErrors(err error) []ValidationError {
	var errors []ValidationError

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors
	}

	for _, fieldError := range validationErrors {
		field := fieldError.Field()
		var message string

		switch fieldError.Tag() {
		case "required":
			message = field + " is required"
		case "email":
			message = "Invalid email format"
		case "min":
			message = field + " must be at least " + fieldError.Param() + unit(fieldError)
		case "max":
			message = field + " must be at most " + fieldError.Param() + unit(fieldError)
		case "strong_password":
			message = "Password must contain at least 8 characters with uppercase, lowercase, number, and special character"
		case "task_type":
			message = field + " must be one of TEXT, IMAGE, VIDEO, QUIZ, FORM, PICK_ONE, CHECKLIST"
		case "url":
			message = field + " must be a valid URL"
		case "oneof":
			message = field + " must be one of: " + fieldError.Param()
		case "gtfield":
			message = field + " must be after " + fieldError.Param()
		default:
			message = field + " is invalid"
		}

		errors = append(errors, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return errors
}

// unit names what min and max count for the failing field.
func unit(fe validator.FieldError) string {
	switch fe.Kind() {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Map, reflect.Array:
		return " items"
	}
	return ""
}

type Validator interface {
	Validate() error
}

func CreateValidationErrorResponse(err error) ValidationErrorResponse {
	return ValidationErrorResponse{
		Code:    400,
		Message: "Validation failed",
		Errors:  FormatValidationErrors(err),
	}
}
