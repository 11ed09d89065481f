package core

// validation.go checks leads entered through the create and edit paths.
//
// Imports are lenient: bad enums fall back to defaults and long values are
// truncated. Form input is strict instead: every problem is reported back
// so the user can fix it, and nothing is saved until the input is clean.
// Rules are declared as validator tags on LeadInput.

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError is one problem with one input field.
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors collects every problem found in one input.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, ve := range e {
		parts[i] = ve.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// LeadInput is the editable part of a lead as submitted by a form or API client.
// AssignedTo is a staff username; empty means unassigned.
type LeadInput struct {
	FirstName        string `json:"first_name" validate:"required,max=100"`
	LastName         string `json:"last_name" validate:"max=100"`
	PhoneNumber      string `json:"phone_number" validate:"max=50"`
	Email            string `json:"email" validate:"omitempty,email,max=254"`
	PointOfContact   string `json:"point_of_contact" validate:"max=200"`
	ProspectResponse string `json:"prospect_response"`
	Remarks          string `json:"remarks"`
	Status           string `json:"status" validate:"omitempty,lead_status"`
	ColorCode        string `json:"color_code" validate:"omitempty,lead_color"`
	Source           string `json:"source" validate:"max=100"`
	AssignedTo       string `json:"assigned_to"`
}

// trim strips surrounding whitespace from every field.
func (in *LeadInput) trim() {
	for _, p := range []*string{
		&in.FirstName, &in.LastName, &in.PhoneNumber, &in.Email,
		&in.PointOfContact, &in.ProspectResponse, &in.Remarks,
		&in.Status, &in.ColorCode, &in.Source, &in.AssignedTo,
	} {
		*p = strings.TrimSpace(*p)
	}
}

// apply copies the input onto l. Assignment is resolved separately.
func (in *LeadInput) apply(l *Lead) {
	l.FirstName = in.FirstName
	l.LastName = in.LastName
	l.PhoneNumber = in.PhoneNumber
	l.Email = in.Email
	l.PointOfContact = in.PointOfContact
	l.ProspectResponse = in.ProspectResponse
	l.Remarks = in.Remarks
	l.Status = ParseStatus(in.Status)
	l.ColorCode = ColorCode(in.ColorCode)
	l.Source = in.Source
}

// InputFromLead returns the editable fields of l, e.g. to prefill an edit.
func InputFromLead(l *Lead) LeadInput {
	return LeadInput{
		FirstName:        l.FirstName,
		LastName:         l.LastName,
		PhoneNumber:      l.PhoneNumber,
		Email:            l.Email,
		PointOfContact:   l.PointOfContact,
		ProspectResponse: l.ProspectResponse,
		Remarks:          l.Remarks,
		Status:           string(l.Status),
		ColorCode:        string(l.ColorCode),
		Source:           l.Source,
		AssignedTo:       l.AssignedUsername(),
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "lead_status", func(fl validator.FieldLevel) bool {
		return Status(strings.ToLower(fl.Field().String())).Valid()
	})
	mustRegister(v, "lead_color", func(fl validator.FieldLevel) bool {
		return ColorCode(fl.Field().String()).Valid()
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// ValidateLead trims in and checks it against the form rules.
// Returns nil when the input is acceptable.
func ValidateLead(in *LeadInput) ValidationErrors {
	in.trim()

	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Message: err.Error()}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Value:   fmt.Sprint(fe.Value()),
			Message: validationMessage(fe),
		})
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field is empty"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "enter a valid email address"
	case "lead_status":
		return fmt.Sprintf("invalid enum: status must be one of %s", joinStatuses())
	case "lead_color":
		return "invalid enum: unknown color code"
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

func joinStatuses() string {
	codes := Statuses()
	parts := make([]string, len(codes))
	for i, s := range codes {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
