// Package audit reports integrity problems in stored bookings: codes that
// appear more than once and customers who booked more than once.
package audit

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmehdipour/rh-booking/internal/model"
	"go.uber.org/zap"
)

// CodeGroup is a booking code held by more than one record.
type CodeGroup struct {
	Code  string  `json:"book_number"`
	Count int     `json:"count"`
	IDs   []int64 `json:"ids"`
}

// CustomerGroup is a (phone, name) pair with more than one booking.
type CustomerGroup struct {
	Phone string   `json:"phone"`
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Codes []string `json:"book_numbers"`
}

type Report struct {
	Total              int             `json:"total"`
	DuplicateCodes     []CodeGroup     `json:"duplicate_codes"`
	DuplicateCustomers []CustomerGroup `json:"duplicate_customers"`
	Records            []model.Booking `json:"records"`
}

// Clean reports whether no booking code is shared.
func (r Report) Clean() bool { return len(r.DuplicateCodes) == 0 }

// Audit never modifies records. Groups are sorted by key, Records newest first.
func Audit(records []model.Booking) Report {
	byCode := map[string][]int64{}
	type customerKey struct{ phone, name string }
	byCustomer := map[customerKey][]string{}

	for _, b := range records {
		byCode[b.BookingCode] = append(byCode[b.BookingCode], b.ID)
		k := customerKey{b.PhoneE164, b.CustomerName}
		byCustomer[k] = append(byCustomer[k], b.BookingCode)
	}

	rep := Report{
		Total:              len(records),
		DuplicateCodes:     []CodeGroup{},
		DuplicateCustomers: []CustomerGroup{},
	}
	for code, ids := range byCode {
		if len(ids) > 1 {
			rep.DuplicateCodes = append(rep.DuplicateCodes, CodeGroup{Code: code, Count: len(ids), IDs: ids})
		}
	}
	for k, codes := range byCustomer {
		if len(codes) > 1 {
			rep.DuplicateCustomers = append(rep.DuplicateCustomers, CustomerGroup{
				Phone: k.phone, Name: k.name, Count: len(codes), Codes: codes,
			})
		}
	}
	sort.Slice(rep.DuplicateCodes, func(i, j int) bool {
		return rep.DuplicateCodes[i].Code < rep.DuplicateCodes[j].Code
	})
	sort.Slice(rep.DuplicateCustomers, func(i, j int) bool {
		a, b := rep.DuplicateCustomers[i], rep.DuplicateCustomers[j]
		if a.Phone != b.Phone {
			return a.Phone < b.Phone
		}
		return a.Name < b.Name
	})

	rep.Records = make([]model.Booking, len(records))
	copy(rep.Records, records)
	sort.SliceStable(rep.Records, func(i, j int) bool {
		return rep.Records[i].CreatedAt.After(rep.Records[j].CreatedAt)
	})
	return rep
}

// Lister is satisfied by repository.BookingStore.
type Lister interface {
	List(ctx context.Context) ([]model.Booking, error)
}

type Auditor struct {
	store Lister
	log   *zap.Logger
}

func NewAuditor(store Lister, log *zap.Logger) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auditor{store: store, log: log}
}

func (a *Auditor) Run(ctx context.Context) (Report, error) {
	records, err := a.store.List(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list bookings: %w", err)
	}
	rep := Audit(records)
	if !rep.Clean() {
		a.log.Warn("duplicate booking codes found", zap.Int("groups", len(rep.DuplicateCodes)))
	}
	return rep, nil
}
