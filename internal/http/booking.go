package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jmehdipour/rh-booking/internal/service/intake"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const genericBookingFailure = "An error occurred while processing your booking. Please try again or contact us directly."

type bookingReq struct {
	Name    string `json:"name"    form:"name"`
	Phone   string `json:"phone"   form:"phone"`
	Message string `json:"message" form:"message"`
	Region  string `json:"region"  form:"region"`
}

func createBookingHandler(svc *intake.Service, timeout time.Duration, log *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req bookingReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success":     false,
				"message":     "Invalid request body",
				"field_error": true,
			})
		}

		ctx := c.Request().Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		b, err := svc.Submit(ctx, intake.Submission{
			Name:    req.Name,
			Phone:   req.Phone,
			Message: req.Message,
			Region:  req.Region,
		})
		if err != nil {
			return bookingError(c, err, log)
		}

		return c.JSON(http.StatusCreated, map[string]any{
			"success":         true,
			"message":         "Booking submitted successfully! We will contact you soon.",
			"book_number":     b.BookingCode,
			"phone_formatted": b.PhoneE164,
		})
	}
}

func bookingError(c echo.Context, err error, log *zap.Logger) error {
	var (
		missing  *intake.MissingFieldsError
		redirect *intake.AdminRedirectError
		badPhone *intake.InvalidPhoneError
	)
	switch {
	case errors.As(err, &missing):
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success":     false,
			"message":     "Missing required fields: " + strings.Join(missing.Fields, ", "),
			"field_error": true,
		})
	case errors.Is(err, intake.ErrInvalidName):
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success":     false,
			"message":     "Name must be between 2 and 100 characters long",
			"field_error": true,
		})
	case errors.As(err, &redirect):
		return c.JSON(http.StatusOK, map[string]any{
			"success":      false,
			"redirect":     true,
			"redirect_url": redirect.Location,
			"message":      "Admin credentials detected. Redirecting to customer page...",
		})
	case errors.As(err, &badPhone):
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success":     false,
			"message":     badPhone.Reason,
			"phone_error": true,
		})
	}

	log.Error("booking submission failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, map[string]any{
		"success": false,
		"message": genericBookingFailure,
	})
}
