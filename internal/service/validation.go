package service

import (
	"errors"

	"github.com/andressep95/session-service/internal/domain"
	"github.com/andressep95/session-service/pkg/validator"
)

// validateInput runs the struct rules and turns rule failures into a domain
// validation error naming every offending field.
func validateInput(v *validator.Validator, in interface{}) error {
	err := v.Validate(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.Errors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make([]domain.FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, domain.FieldError{Field: fe.Field, Message: fe.Message})
	}
	return domain.ValidationError(fields...)
}
