package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jmehdipour/rh-booking/internal/config"
	"github.com/jmehdipour/rh-booking/internal/http/middleware"
	"github.com/jmehdipour/rh-booking/internal/metrics"
	"github.com/jmehdipour/rh-booking/internal/phone"
	"github.com/jmehdipour/rh-booking/internal/repository"
	"github.com/jmehdipour/rh-booking/internal/service/audit"
	"github.com/jmehdipour/rh-booking/internal/service/intake"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Intake  *intake.Service
	Store   BookingAdmin
	Auditor *audit.Auditor
	Reports repository.CHBookingsRepository
	Phones  *phone.Normalizer
	Redis   redis.Cmdable
	Log     *zap.Logger
}

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client, logger *zap.Logger) *Server {
	// repos (MySQL)
	bookingsRepo := repository.NewBookingsRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository()
	store := repository.NewBookingStore(mysqlDB, bookingsRepo, outboxRepo)

	// repos (ClickHouse)
	chBookingsRepo := repository.NewCHBookingsRepository(clickhouseDB)

	// services
	intakeSvc := intake.NewFromConfig(cfg, store, logger.Named("intake"))
	auditor := audit.NewAuditor(store, logger.Named("audit"))

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e := newRouter(cfg, Deps{
		Intake:  intakeSvc,
		Store:   store,
		Auditor: auditor,
		Reports: chBookingsRepo,
		Phones:  phone.NewNormalizer(cfg.Booking.HomeRegion),
		Redis:   rds,
		Log:     logger,
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &Server{e: e, log: logger}
}

func newRouter(cfg config.Config, d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(gommonLevel(cfg.Log.Level))
	e.Validator = newRequestValidator()
	e.Use(echoMid.Recover(), echoMid.RequestID(), echoMid.Logger())

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          d.Redis,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ip:",
		Window:         time.Second,
		RetryAfterHint: true,
	})
	secret := []byte(cfg.Admin.JWTSecret)
	authMW := middleware.AdminAuthMiddleware(secret)

	// public
	e.POST("/api/booking", createBookingHandler(d.Intake, cfg.HTTP.StoreTimeout, d.Log), rlMW)

	// admin
	e.POST("/admin/login", adminLoginHandler(intake.AdminFromConfig(cfg.Admin), secret, cfg.Admin.TokenTTL), rlMW)

	admin := e.Group("/admin", authMW)
	admin.GET("/bookings", listBookingsHandler(d.Store, d.Log))
	// the admin-identity redirect lands on the booking list
	if p := strings.TrimPrefix(cfg.Admin.RedirectURL, "/admin"); strings.HasPrefix(p, "/") && p != "/bookings" {
		admin.GET(p, listBookingsHandler(d.Store, d.Log))
	}
	admin.GET("/bookings/:id", getBookingHandler(d.Store, d.Log))
	admin.PUT("/bookings/:id/status", updateStatusHandler(d.Store, d.Log))
	admin.DELETE("/bookings/:id", deleteBookingHandler(d.Store, d.Log))
	admin.GET("/export/bookings.csv", exportBookingsHandler(d.Store, d.Log))
	admin.GET("/utils/check-duplicates", checkDuplicatesHandler(d.Auditor, d.Log))
	admin.GET("/utils/test-phone-validation", testPhoneValidationHandler(d.Phones))
	admin.GET("/reports/bookings", listBookingsReportHandler(d.Reports, d.Phones))

	return e
}

func gommonLevel(level string) log.Lvl {
	switch level {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
