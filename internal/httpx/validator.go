package httpx

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// BookStatuses lists the accepted values of the book_status rule.
var BookStatuses = []string{"Reading", "Completed", "Wishlist"}

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("book_status", validateBookStatus)
	_ = validate.RegisterValidation("notblank", validateNotBlank)
}

func validateBookStatus(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	for _, s := range BookStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// ValidateStruct returns one ErrorDetail per failed field, or nil.
func ValidateStruct(s any) []ErrorDetail {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ErrorDetail{{Field: "", Message: err.Error()}}
	}

	details := make([]ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		param := fe.Param()

		var message string
		switch fe.Tag() {
		case "required", "notblank":
			message = fmt.Sprintf("%s is required", field)
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", field, param)
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, param)
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", field)
		case "book_status":
			message = fmt.Sprintf("%s must be one of %s", field, strings.Join(BookStatuses, ", "))
		case "gte", "lte":
			message = fmt.Sprintf("%s is out of range (%s %s)", field, fe.Tag(), param)
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}

		details = append(details, ErrorDetail{Field: field, Message: message})
	}
	return details
}
