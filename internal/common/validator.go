package common

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

type GenericEchoValidator struct {
	Validator *validator.Validate
	once      sync.Once
}

func (gv *GenericEchoValidator) Validate(i interface{}) error {
	gv.once.Do(func() {
		if gv.Validator == nil {
			gv.Validator = NewValidator()
		}
	})
	if err := gv.Validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("received invalid request body: %v", err)).SetInternal(err)
	}
	return nil
}

// NewValidator returns a validator that understands the "label" tag.
func NewValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("label", func(fl validator.FieldLevel) bool {
		return Label(fl.Field().String()).IsValid()
	}); err != nil {
		panic(fmt.Sprintf("failed to register label validation: %v", err))
	}
	return v
}
