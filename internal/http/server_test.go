package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/rh-booking/internal/bookingcode"
	"github.com/jmehdipour/rh-booking/internal/config"
	"github.com/jmehdipour/rh-booking/internal/model"
	"github.com/jmehdipour/rh-booking/internal/phone"
	"github.com/jmehdipour/rh-booking/internal/repository"
	"github.com/jmehdipour/rh-booking/internal/service/audit"
	"github.com/jmehdipour/rh-booking/internal/service/intake"
	"github.com/labstack/echo/v4"
)

// fakeStore backs both the intake service and the admin routes.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Booking
	err    error
}

func newFakeStore() *fakeStore { return &fakeStore{rows: map[int64]model.Booking{}} }

func (f *fakeStore) ExistsByCode(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	for _, b := range f.rows {
		if b.BookingCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Create(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b.ID = f.nextID
	f.rows[b.ID] = *b
	return nil
}

func (f *fakeStore) List(context.Context) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Booking, 0, len(f.rows))
	for _, b := range f.rows {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id int64, st model.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Status = st
	f.rows[id] = b
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeStore) put(b model.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b.ID = f.nextID
	f.rows[b.ID] = b
}

type fakeReports struct {
	got  repository.BookingFilter
	rows []model.Booking
}

func (r *fakeReports) List(_ context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	r.got = f
	return r.rows, nil
}

func testConfig() config.Config {
	var cfg config.Config
	cfg.Booking.HomeRegion = "EG"
	cfg.Admin = config.AdminConfig{
		Name:        "omaradmin01119065057",
		Phone:       "1119065057",
		RedirectURL: "/admin/all-customers",
		JWTSecret:   "test-secret",
		TokenTTL:    time.Hour,
	}
	return cfg
}

func newTestRouter(t *testing.T, store *fakeStore, reports *fakeReports) *echo.Echo {
	t.Helper()
	cfg := testConfig()
	phones := phone.NewNormalizer("EG")
	svc := intake.New(store, phones, bookingcode.New(0), intake.AdminFromConfig(cfg.Admin), nil, intake.Options{})
	if reports == nil {
		reports = &fakeReports{}
	}
	return newRouter(cfg, Deps{
		Intake:  svc,
		Store:   store,
		Auditor: audit.NewAuditor(store, nil),
		Reports: reports,
		Phones:  phones,
	})
}

func do(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func login(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := do(e, http.MethodPost, "/admin/login", `{"name":"omaradmin01119065057","phone":"1119065057"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	tok, _ := decode(t, rec)["token"].(string)
	if tok == "" {
		t.Fatal("empty token")
	}
	return tok
}

func TestCreateBooking(t *testing.T) {
	store := newFakeStore()
	e := newTestRouter(t, store, nil)

	rec := do(e, http.MethodPost, "/api/booking", `{"name":"Omar Ali","phone":"01119065057","message":"hi"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["success"] != true || body["phone_formatted"] != "+201119065057" {
		t.Errorf("body = %v", body)
	}
	code, _ := body["book_number"].(string)
	if !regexp.MustCompile(`^RH-\d{6}$`).MatchString(code) {
		t.Errorf("book_number = %q", code)
	}
	if len(store.rows) != 1 {
		t.Errorf("rows = %d", len(store.rows))
	}
}

func TestCreateBookingRejections(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
		flag string
	}{
		{"missing", `{"name":"","phone":""}`, http.StatusBadRequest, "field_error"},
		{"short name", `{"name":"X","phone":"01119065057"}`, http.StatusBadRequest, "field_error"},
		{"bad phone", `{"name":"Omar Ali","phone":"123"}`, http.StatusBadRequest, "phone_error"},
		{"admin", `{"name":"omaradmin01119065057","phone":"1119065057"}`, http.StatusOK, "redirect"},
		{"malformed", `{"name":`, http.StatusBadRequest, "field_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			rec := do(newTestRouter(t, store, nil), http.MethodPost, "/api/booking", tt.body, "")
			if rec.Code != tt.code {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.code, rec.Body.String())
			}
			body := decode(t, rec)
			if body[tt.flag] != true || body["success"] != false {
				t.Errorf("body = %v, want %s", body, tt.flag)
			}
			if len(store.rows) != 0 {
				t.Errorf("rows = %d, want 0", len(store.rows))
			}
		})
	}
}

func TestCreateBookingAdminRedirectResolves(t *testing.T) {
	store := newFakeStore()
	store.put(model.Booking{BookingCode: "RH-000001", CustomerName: "Omar Ali", PhoneE164: "+201119065057", CreatedAt: time.Now()})
	e := newTestRouter(t, store, nil)

	rec := do(e, http.MethodPost, "/api/booking", `{"name":"omaradmin01119065057","phone":"1119065057"}`, "")
	location, _ := decode(t, rec)["redirect_url"].(string)
	if location != "/admin/all-customers" {
		t.Fatalf("redirect_url = %q", location)
	}

	if rec := do(e, http.MethodGet, location, "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("redirect target without token: status %d, want 401", rec.Code)
	}
	rec = do(e, http.MethodGet, location, "", login(t, e))
	if rec.Code != http.StatusOK {
		t.Fatalf("redirect target with token: status %d: %s", rec.Code, rec.Body.String())
	}
	if decode(t, rec)["count"] != float64(1) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCreateBookingStoreFailureIsGeneric(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("dial tcp 10.0.0.5:3306: connection refused")
	rec := do(newTestRouter(t, store, nil), http.MethodPost, "/api/booking", `{"name":"Omar Ali","phone":"01119065057"}`, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Errorf("internal detail leaked: %s", rec.Body.String())
	}
	if decode(t, rec)["message"] != genericBookingFailure {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAdminLogin(t *testing.T) {
	e := newTestRouter(t, newFakeStore(), nil)
	if rec := do(e, http.MethodPost, "/admin/login", `{"name":"omaradmin01119065057","phone":"0000"}`, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong phone: status %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/admin/login", `{"name":"omaradmin01119065057"}`, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing phone: status %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/admin/bookings", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d", rec.Code)
	}
	tok := login(t, e)
	if rec := do(e, http.MethodGet, "/admin/bookings", "", tok); rec.Code != http.StatusOK {
		t.Errorf("with token: status %d", rec.Code)
	}
}

func TestAdminBookingLifecycle(t *testing.T) {
	store := newFakeStore()
	store.put(model.Booking{BookingCode: "RH-000001", CustomerName: "Omar Ali", PhoneE164: "+201119065057",
		Status: model.StatusPending, CreatedAt: time.Now().Add(-time.Hour)})
	e := newTestRouter(t, store, nil)
	tok := login(t, e)

	rec := do(e, http.MethodPut, "/admin/bookings/1/status", `{"status":"Confirmed"}`, tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status %d: %s", rec.Code, rec.Body.String())
	}
	if store.rows[1].Status != model.StatusConfirmed {
		t.Errorf("status = %q", store.rows[1].Status)
	}

	for _, body := range []string{`{"status":""}`, `{"status":"not ok!"}`, `{"status":"` + strings.Repeat("a", 21) + `"}`} {
		if rec := do(e, http.MethodPut, "/admin/bookings/1/status", body, tok); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", body, rec.Code)
		}
	}
	if rec := do(e, http.MethodPut, "/admin/bookings/99/status", `{"status":"confirmed"}`, tok); rec.Code != http.StatusNotFound {
		t.Errorf("missing id: status %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/admin/bookings/abc", "", tok); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: status %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/admin/bookings/1", "", tok); rec.Code != http.StatusOK || decode(t, rec)["book_number"] != "RH-000001" {
		t.Errorf("get: %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(e, http.MethodDelete, "/admin/bookings/1", "", tok); rec.Code != http.StatusOK {
		t.Errorf("delete status %d", rec.Code)
	}
	if rec := do(e, http.MethodDelete, "/admin/bookings/1", "", tok); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status %d", rec.Code)
	}
}

type acceptAll struct{}

func (acceptAll) Validate(any) error { return nil }

// The handler checks the label itself even when struct validation lets it through.
func TestUpdateStatusRejectsUnparsableLabel(t *testing.T) {
	store := newFakeStore()
	store.put(model.Booking{BookingCode: "RH-000001", Status: model.StatusPending})

	e := echo.New()
	e.Validator = acceptAll{}
	e.PUT("/admin/bookings/:id/status", updateStatusHandler(store, nil))

	for _, body := range []string{`{"status":"Bad Label!"}`, `{"status":"   "}`, `{"status":"` + strings.Repeat("a", 21) + `"}`} {
		rec := do(e, http.MethodPut, "/admin/bookings/1/status", body, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", body, rec.Code)
		}
	}
	if store.rows[1].Status != model.StatusPending {
		t.Errorf("status changed to %q", store.rows[1].Status)
	}
}

func TestExportBookingsCSV(t *testing.T) {
	store := newFakeStore()
	created := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	store.put(model.Booking{BookingCode: "RH-000042", CustomerName: "Omar, Ali", PhoneE164: "+201119065057",
		Message: "line", Status: model.StatusPending, CreatedAt: created})
	e := newTestRouter(t, store, nil)

	rec := do(e, http.MethodGet, "/admin/export/bookings.csv", "", login(t, e))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/csv") {
		t.Errorf("content type %q", rec.Header().Get(echo.HeaderContentType))
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "customers_export_") {
		t.Errorf("disposition %q", rec.Header().Get(echo.HeaderContentDisposition))
	}
	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		exportHeader,
		{"RH-000042", "Omar, Ali", "+201119065057", "line", "2025-02-03 04:05:06", "Pending"},
	}
	if len(records) != len(want) {
		t.Fatalf("records = %v", records)
	}
	for i := range want {
		if strings.Join(records[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %v, want %v", i, records[i], want[i])
		}
	}
}

func TestCheckDuplicates(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	store.put(model.Booking{BookingCode: "RH-111111", PhoneE164: "+201119065057", CustomerName: "A", CreatedAt: now})
	store.put(model.Booking{BookingCode: "RH-111111", PhoneE164: "+201001234567", CustomerName: "B", CreatedAt: now})
	e := newTestRouter(t, store, nil)

	rec := do(e, http.MethodGet, "/admin/utils/check-duplicates", "", login(t, e))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var rep audit.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Total != 2 || len(rep.DuplicateCodes) != 1 || rep.DuplicateCodes[0].Count != 2 {
		t.Errorf("report = %+v", rep)
	}
}

func TestPhoneValidationUtility(t *testing.T) {
	e := newTestRouter(t, newFakeStore(), nil)
	tok := login(t, e)

	rec := do(e, http.MethodGet, "/admin/utils/test-phone-validation", "", tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var out struct {
		Region  string           `json:"region"`
		Results []phone.Diagnosis `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Region != "EG" || len(out.Results) != len(phone.SampleInputs) {
		t.Fatalf("out = %+v", out)
	}
	if !out.Results[0].Valid || out.Results[0].Number.E164 != "+201119065057" {
		t.Errorf("first = %+v", out.Results[0])
	}

	rec = do(e, http.MethodGet, "/admin/utils/test-phone-validation?phone=123", "", tok)
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 1 || out.Results[0].Valid {
		t.Errorf("custom input = %+v", out.Results)
	}
}

func TestBookingsReport(t *testing.T) {
	reports := &fakeReports{rows: []model.Booking{{ID: 7, BookingCode: "RH-000007"}}}
	e := newTestRouter(t, newFakeStore(), reports)
	tok := login(t, e)

	rec := do(e, http.MethodGet, "/admin/reports/bookings?status=Confirmed&phone=01119065057&limit=5&offset=10", "", tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	want := repository.BookingFilter{Status: model.StatusConfirmed, Phone: "+201119065057", Limit: 5, Offset: 10}
	if reports.got != want {
		t.Errorf("filter = %+v, want %+v", reports.got, want)
	}
	if decode(t, rec)["count"] != float64(1) {
		t.Errorf("body = %s", rec.Body.String())
	}

	if rec := do(e, http.MethodGet, "/admin/reports/bookings?phone=123", "", tok); rec.Code != http.StatusBadRequest {
		t.Errorf("bad phone filter: status %d", rec.Code)
	}

	if rec := do(e, http.MethodGet, "/admin/reports/bookings?code=rh-000007", "", tok); rec.Code != http.StatusOK {
		t.Fatalf("code filter: status %d", rec.Code)
	}
	if reports.got.Code != "RH-000007" {
		t.Errorf("code filter = %q, want RH-000007", reports.got.Code)
	}
	for _, bad := range []string{"RH-12", "XX-000007", "RH-0000077"} {
		if rec := do(e, http.MethodGet, "/admin/reports/bookings?code="+bad, "", tok); rec.Code != http.StatusBadRequest {
			t.Errorf("code %q: status %d, want 400", bad, rec.Code)
		}
	}
}

func TestHealthz(t *testing.T) {
	rec := do(newTestRouter(t, newFakeStore(), nil), http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}
