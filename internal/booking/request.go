package booking

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"booking-service/internal/apperrors"
	"booking-service/internal/attribution"
)

// Request is a booking as submitted by the client. Every field is required.
type Request struct {
	DateTime   string `json:"dateTime" validate:"required"`
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	ClinicName string `json:"clinicName" validate:"required"`
	Phone      string `json:"phone" validate:"required"`

	Attribution attribution.Params `json:"-"`
}

func (r Request) FullName() string {
	return r.FirstName + " " + r.LastName
}

func (r *Request) normalize() {
	r.DateTime = strings.TrimSpace(r.DateTime)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	r.ClinicName = strings.TrimSpace(r.ClinicName)
	r.Phone = strings.TrimSpace(r.Phone)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

const missingFieldsMessage = "All fields are required"

func validationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return apperrors.Unexpected(err)
	}

	details := make(map[string]any, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = fmt.Sprintf("%s is required", fe.Field())
		case "email":
			details[fe.Field()] = fmt.Sprintf("%s must be a valid email address", fe.Field())
		default:
			details[fe.Field()] = fe.Error()
		}
	}
	return apperrors.Validation(missingFieldsMessage, details)
}

var dateTimeLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

// parseStart reads a wall-clock time in loc, or any RFC 3339 timestamp.
func parseStart(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperrors.Validation("dateTime must look like YYYY-MM-DDTHH:MM", map[string]any{"dateTime": s})
	}
	return t.In(loc), nil
}
