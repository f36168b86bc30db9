package http

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jmehdipour/rh-booking/internal/http/middleware"
	"github.com/jmehdipour/rh-booking/internal/model"
	"github.com/jmehdipour/rh-booking/internal/phone"
	"github.com/jmehdipour/rh-booking/internal/repository"
	"github.com/jmehdipour/rh-booking/internal/service/audit"
	"github.com/jmehdipour/rh-booking/internal/service/intake"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BookingAdmin is the store surface behind the admin routes.
type BookingAdmin interface {
	List(ctx context.Context) ([]model.Booking, error)
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error
	Delete(ctx context.Context, id int64) error
}

type loginReq struct {
	Name  string `json:"name"  form:"name"  validate:"required"`
	Phone string `json:"phone" form:"phone" validate:"required"`
}

func adminLoginHandler(admin intake.AdminIdentity, secret []byte, ttl time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if err := c.Validate(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "name and phone are required"})
		}
		if !admin.Matches(req.Name, req.Phone) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		}

		now := time.Now()
		token, err := middleware.IssueAdminToken(secret, req.Name, ttl, now)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "token error"})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"token":        token,
			"expires_at":   now.Add(ttl).UTC(),
			"redirect_url": admin.RedirectURL,
		})
	}
}

func listBookingsHandler(store BookingAdmin, log *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := store.List(c.Request().Context())
		if err != nil {
			log.Error("list bookings failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"count":   len(rows),
			"results": rows,
		})
	}
}

func getBookingHandler(store BookingAdmin, log *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := bookingID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
		}
		b, err := store.GetByID(c.Request().Context(), id)
		if err != nil {
			return storeError(c, err, log)
		}
		return c.JSON(http.StatusOK, b)
	}
}

type statusReq struct {
	Status string `json:"status" validate:"required,max=20,status_label"`
}

func updateStatusHandler(store BookingAdmin, log *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := bookingID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
		}
		var req statusReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if err := c.Validate(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
		}
		st, ok := model.ParseBookingStatus(req.Status)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
		}

		if err := store.UpdateStatus(c.Request().Context(), id, st); err != nil {
			return storeError(c, err, log)
		}
		return c.JSON(http.StatusOK, map[string]any{"success": true, "status": st})
	}
}

func deleteBookingHandler(store BookingAdmin, log *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := bookingID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
		}
		if err := store.Delete(c.Request().Context(), id); err != nil {
			return storeError(c, err, log)
		}
		return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Customer deleted successfully"})
	}
}

var exportHeader = []string{"Book Number", "Customer Name", "Phone Number", "Message", "Booking Date", "Status"}

// exportBookingsHandler streams every booking, newest first, as CSV.
func exportBookingsHandler(store BookingAdmin, log *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := store.List(c.Request().Context())
		if err != nil {
			log.Error("export bookings failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		name := fmt.Sprintf("customers_export_%s.csv", time.Now().UTC().Format("20060102_150405"))
		res := c.Response()
		res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
		res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
		res.WriteHeader(http.StatusOK)

		title := cases.Title(language.English)
		w := csv.NewWriter(res)
		if err := w.Write(exportHeader); err != nil {
			return err
		}
		for _, b := range rows {
			if err := w.Write([]string{
				b.BookingCode,
				b.CustomerName,
				b.PhoneE164,
				b.Message,
				b.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
				title.String(b.Status.String()),
			}); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	}
}

func checkDuplicatesHandler(auditor *audit.Auditor, log *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		rep, err := auditor.Run(c.Request().Context())
		if err != nil {
			log.Error("duplicate check failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return c.JSON(http.StatusOK, rep)
	}
}

// testPhoneValidationHandler runs the sample list, or the phone query
// values when given, through the normalizer.
func testPhoneValidationHandler(phones *phone.Normalizer) echo.HandlerFunc {
	return func(c echo.Context) error {
		inputs := c.QueryParams()["phone"]
		if len(inputs) == 0 {
			inputs = phone.SampleInputs
		}
		region := c.QueryParam("region")
		if region == "" {
			region = phones.HomeRegion()
		}
		return c.JSON(http.StatusOK, map[string]any{
			"region":  region,
			"results": phones.Diagnose(inputs, region),
		})
	}
}

func bookingID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func storeError(c echo.Context, err error, log *zap.Logger) error {
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "booking not found"})
	}
	log.Error("booking store failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
}
