package httputil

import (
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details []ValidationError `json:"details"`
}

// ValidateRequest checks struct validate tags and writes a 400 response when
// any fail. Returns true when the request is valid.
func ValidateRequest(w http.ResponseWriter, obj any) bool {
	err := validate.Struct(obj)
	if err == nil {
		return true
	}

	var details []ValidationError
	for _, fe := range err.(validator.ValidationErrors) {
		details = append(details, ValidationError{
			Field:   fe.Field(),
			Message: validationMsg(fe),
		})
	}
	WriteJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Error:   "invalid request data",
		Details: details,
	})
	return false
}

func validationMsg(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "this field is required"
	case "gt":
		return "value must be greater than " + err.Param()
	default:
		return "invalid value"
	}
}
