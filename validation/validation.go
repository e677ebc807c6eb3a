package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"location_form/models"
)

// Validator checks a selection before it is submitted. It returns nil or
// Errors.
type Validator interface {
	Validate(sel models.Selection) error
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors lists every failing field in level order.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the names of the failing fields.
func (e Errors) Fields() []string {
	fields := make([]string, 0, len(e))
	for _, fe := range e {
		fields = append(fields, fe.Field)
	}
	return fields
}

// RequiredFields requires every level to be a non-empty string.
type RequiredFields struct {
	validate *validator.Validate
}

func NewRequiredFields() *RequiredFields {
	return &RequiredFields{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (r *RequiredFields) Validate(sel models.Selection) error {
	sel.Country = strings.TrimSpace(sel.Country)
	sel.State = strings.TrimSpace(sel.State)
	sel.District = strings.TrimSpace(sel.District)
	sel.City = strings.TrimSpace(sel.City)

	err := r.validate.Struct(sel)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   strings.ToLower(fe.StructField()),
			Message: fe.StructField() + " is required",
		})
	}
	return out
}
