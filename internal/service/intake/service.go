package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmehdipour/rh-booking/internal/bookingcode"
	"github.com/jmehdipour/rh-booking/internal/config"
	"github.com/jmehdipour/rh-booking/internal/metrics"
	"github.com/jmehdipour/rh-booking/internal/model"
	"github.com/jmehdipour/rh-booking/internal/phone"
	"github.com/jmehdipour/rh-booking/internal/repository"
	"go.uber.org/zap"
)

const (
	minNameLen = 2
	maxNameLen = 100

	DefaultMessageMaxLen  = 500
	DefaultCommitAttempts = 3
)

// Store is the part of the booking store intake needs. Create must reject a
// taken booking_code with repository.ErrDuplicateCode.
type Store interface {
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, b *model.Booking) error
}

// AdminIdentity is the fixed (name, phone) pair that redirects to the admin
// view instead of booking. Loaded once from config.
type AdminIdentity struct {
	Name        string
	Phone       string
	RedirectURL string
}

// Matches compares the raw submitted values exactly, without trimming.
func (a AdminIdentity) Matches(name, phone string) bool {
	return a.Name != "" && name == a.Name && phone == a.Phone
}

type Options struct {
	CommitAttempts int
	MessageMaxLen  int
}

// Submission is the raw customer input. An empty Region means the
// normalizer's home region.
type Submission struct {
	Name    string
	Phone   string
	Message string
	Region  string
}

// Service validates, normalizes and persists booking submissions.
type Service struct {
	store  Store
	phones *phone.Normalizer
	codes  *bookingcode.Generator
	admin  AdminIdentity
	log    *zap.Logger

	commitAttempts int
	messageMaxLen  int
	now            func() time.Time
}

func New(
	store Store,
	phones *phone.Normalizer,
	codes *bookingcode.Generator,
	admin AdminIdentity,
	log *zap.Logger,
	opts Options,
) *Service {
	if opts.CommitAttempts <= 0 {
		opts.CommitAttempts = DefaultCommitAttempts
	}
	if opts.MessageMaxLen <= 0 {
		opts.MessageMaxLen = DefaultMessageMaxLen
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:          store,
		phones:         phones,
		codes:          codes,
		admin:          admin,
		log:            log,
		commitAttempts: opts.CommitAttempts,
		messageMaxLen:  opts.MessageMaxLen,
		now:            time.Now,
	}
}

// Submit runs the checks in order and stops at the first failure:
// presence, name length, admin identity, phone, then code assignment and a
// single store write. No write happens on any failure path.
func (s *Service) Submit(ctx context.Context, sub Submission) (*model.Booking, error) {
	name := strings.TrimSpace(sub.Name)
	rawPhone := strings.TrimSpace(sub.Phone)

	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if rawPhone == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		s.observe("missing_fields")
		return nil, &MissingFieldsError{Fields: missing}
	}

	if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
		s.observe("invalid_name")
		return nil, ErrInvalidName
	}

	// Admin check stays ahead of phone normalization; the admin phone is
	// not a valid number on its own.
	if s.admin.Matches(sub.Name, sub.Phone) {
		s.observe("admin_redirect")
		return nil, &AdminRedirectError{Location: s.admin.RedirectURL}
	}

	num, err := s.phones.Normalize(sub.Phone, sub.Region)
	if err != nil {
		s.observe("invalid_phone")
		var verr *phone.ValidationError
		if errors.As(err, &verr) {
			return nil, &InvalidPhoneError{Reason: verr.Reason, Input: verr.Original}
		}
		return nil, &InvalidPhoneError{Reason: err.Error(), Input: sub.Phone}
	}

	message := truncateRunes(strings.TrimSpace(sub.Message), s.messageMaxLen)

	b, err := s.persist(ctx, name, num.E164, message)
	if err != nil {
		s.observe("failed")
		return nil, err
	}
	s.observe("created")
	s.log.Info("booking created",
		zap.Int64("id", b.ID),
		zap.String("code", b.BookingCode),
		zap.String("region", num.Region),
	)
	return b, nil
}

// persist assigns a code and commits. The unique index is the final word:
// a duplicate at commit time means another writer won the race, so a new
// code is drawn.
func (s *Service) persist(ctx context.Context, name, e164, message string) (*model.Booking, error) {
	for attempt := 1; attempt <= s.commitAttempts; attempt++ {
		code, err := s.codes.Generate(ctx, s.store.ExistsByCode)
		if err != nil {
			if errors.Is(err, bookingcode.ErrExhausted) {
				s.log.Error("booking code generation exhausted", zap.Error(err))
				return nil, fmt.Errorf("%w: %w", ErrCodeUnavailable, err)
			}
			s.log.Error("booking code lookup failed", zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}

		b := &model.Booking{
			BookingCode:  code,
			CustomerName: name,
			PhoneE164:    e164,
			Message:      message,
			Status:       model.StatusPending,
			CreatedAt:    s.now().UTC(),
		}
		err = s.store.Create(ctx, b)
		if err == nil {
			return b, nil
		}
		if errors.Is(err, repository.ErrDuplicateCode) {
			metrics.CodeCollisionsTotal.Inc()
			s.log.Warn("booking code collided at commit", zap.String("code", code), zap.Int("attempt", attempt))
			continue
		}
		s.log.Error("booking commit failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	s.log.Error("booking code collisions exhausted commit attempts", zap.Int("attempts", s.commitAttempts))
	return nil, fmt.Errorf("%w: %d commit attempts collided", ErrCodeUnavailable, s.commitAttempts)
}

func (s *Service) observe(outcome string) {
	metrics.BookingsTotal.WithLabelValues(outcome).Inc()
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

// NewFromConfig builds the service with the booking and admin sections of cfg.
func NewFromConfig(cfg config.Config, store Store, log *zap.Logger) *Service {
	return New(
		store,
		phone.NewNormalizer(cfg.Booking.HomeRegion),
		bookingcode.New(cfg.Booking.CodeMaxAttempts),
		AdminFromConfig(cfg.Admin),
		log,
		Options{
			CommitAttempts: cfg.Booking.CommitAttempts,
			MessageMaxLen:  cfg.Booking.MessageMaxLen,
		},
	)
}

func AdminFromConfig(a config.AdminConfig) AdminIdentity {
	return AdminIdentity{Name: a.Name, Phone: a.Phone, RedirectURL: a.RedirectURL}
}
