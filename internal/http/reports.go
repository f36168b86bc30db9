package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/rh-booking/internal/bookingcode"
	"github.com/jmehdipour/rh-booking/internal/model"
	"github.com/jmehdipour/rh-booking/internal/phone"
	"github.com/jmehdipour/rh-booking/internal/repository"
	echo "github.com/labstack/echo/v4"
)

func listBookingsReportHandler(chRepo repository.CHBookingsRepository, phones *phone.Normalizer) echo.HandlerFunc {
	return func(c echo.Context) error {
		f := repository.BookingFilter{Limit: 50}
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				f.Limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				f.Offset = n
			}
		}

		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			if st, ok := model.ParseBookingStatus(raw); ok {
				f.Status = st
			}
		}

		if raw := strings.TrimSpace(c.QueryParam("phone")); raw != "" {
			num, err := phones.Normalize(raw, c.QueryParam("region"))
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid phone filter"})
			}
			f.Phone = num.E164
		}

		if raw := strings.ToUpper(strings.TrimSpace(c.QueryParam("code"))); raw != "" {
			if !bookingcode.Valid(raw) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid booking code"})
			}
			f.Code = raw
		}

		rows, err := chRepo.List(c.Request().Context(), f)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   f.Limit,
			"offset":  f.Offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
