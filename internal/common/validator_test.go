package common

import (
	"errors"
	"net/http"
	"testing"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

type labelledForm struct {
	Label string `validate:"required,label"`
}

func TestGenericEchoValidator_AcceptsKnownLabel(t *testing.T) {
	v := &GenericEchoValidator{}
	if err := v.Validate(labelledForm{Label: "Mel"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestGenericEchoValidator_RejectsUnknownLabel(t *testing.T) {
	v := &GenericEchoValidator{}
	err := v.Validate(labelledForm{Label: "XYZ"})
	if err == nil {
		t.Fatal("expected error for unknown label")
	}
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", httpErr.Code)
	}
}

func TestGenericEchoValidator_KeepsValidationErrors(t *testing.T) {
	v := &GenericEchoValidator{}
	err := v.Validate(&labelledForm{})

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		t.Fatalf("expected wrapped validator.ValidationErrors, got %T: %v", err, err)
	}
	if len(validationErrors) != 1 || validationErrors[0].Tag() != "required" {
		t.Errorf("expected a single 'required' failure, got %v", validationErrors)
	}
}
