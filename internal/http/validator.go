package http

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jmehdipour/rh-booking/internal/model"
	"github.com/labstack/echo/v4"
)

// requestValidator plugs go-playground/validator into echo's c.Validate.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	_ = v.RegisterValidation("status_label", func(fl validator.FieldLevel) bool {
		_, ok := model.ParseBookingStatus(fl.Field().String())
		return ok
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) Validate(i any) error {
	if err := rv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
