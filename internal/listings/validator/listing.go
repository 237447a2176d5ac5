package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"sweeps/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

// Details flattens the errors into the map shape AppError carries.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, e := range v {
		details[e.Field] = e.Message
	}
	return details
}

type ListingValidator struct {
	validate *validator.Validate
	maxRows  int
}

// NewListingValidator rejects batches above maxRows. maxRows <= 0 means no
// limit.
func NewListingValidator(maxRows int) *ListingValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &ListingValidator{
		validate: v,
		maxRows:  maxRows,
	}
}

func (v *ListingValidator) ValidateBatch(req *model.BatchRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return v.validateBatchRules(req)
}

func (v *ListingValidator) ValidateOptions(opts *model.ProcessOptions) error {
	if err := v.validate.Struct(opts); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ListingValidator) validateBatchRules(req *model.BatchRequest) error {
	var errs ValidationErrors

	if v.maxRows > 0 && len(req.Rows) > v.maxRows {
		errs = append(errs, ValidationError{
			Field:   "rows",
			Message: fmt.Sprintf("batch has %d rows, the limit is %d", len(req.Rows), v.maxRows),
		})
	}

	seen := make(map[int]struct{}, len(req.Rows))
	for i, row := range req.Rows {
		if row.RowIndex < 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("rows[%d].row_index", i),
				Message: "must not be negative",
			})
			continue
		}
		if _, dup := seen[row.RowIndex]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("rows[%d].row_index", i),
				Message: fmt.Sprintf("row index %d appears more than once", row.RowIndex),
			})
		}
		seen[row.RowIndex] = struct{}{}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, 0, len(errs))
	for _, err := range errs {
		out = append(out, ValidationError{
			Field:   fieldPath(err),
			Message: messageFor(err),
		})
	}
	return out
}

// fieldPath drops the root struct name: "BatchRequest.options.max_live_checks"
// becomes "options.max_live_checks".
func fieldPath(err validator.FieldError) string {
	ns := err.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func messageFor(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", err.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", err.Param())
	default:
		return fmt.Sprintf("failed %q validation", err.Tag())
	}
}
