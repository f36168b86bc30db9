// Package phone parses, validates and formats customer phone numbers using
// the static libphonenumber metadata. No network lookups are made.
package phone

import (
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ReasonInvalidFormat is reported for numbers that parse but fail the
// numbering plan of their region.
const ReasonInvalidFormat = "invalid phone number format"

const unknownTimezone = "Etc/Unknown"

// ValidationError is the invalid outcome of Normalize. Original is the
// input exactly as submitted.
type ValidationError struct {
	Reason   string
	Original string
}

func (e *ValidationError) Error() string { return e.Reason }

// Number is the valid outcome of Normalize. Every representation is derived
// from one parsed value.
type Number struct {
	E164          string   `json:"e164"`
	International string   `json:"international"`
	National      string   `json:"national"`
	Country       string   `json:"country"`
	Region        string   `json:"region"`
	Carrier       string   `json:"carrier,omitempty"`
	Timezones     []string `json:"timezones,omitempty"`
	Type          string   `json:"type"`
}

// Normalizer is stateless apart from the home region used when a caller
// passes no region of its own.
type Normalizer struct {
	homeRegion string
}

func NewNormalizer(homeRegion string) *Normalizer {
	return &Normalizer{homeRegion: strings.ToUpper(strings.TrimSpace(homeRegion))}
}

func (n *Normalizer) HomeRegion() string { return n.homeRegion }

func (n *Normalizer) region(r string) string {
	r = strings.ToUpper(strings.TrimSpace(r))
	if r == "" {
		return n.homeRegion
	}
	return r
}

// Normalize parses raw under defaultRegion (numbers starting with '+' are
// parsed internationally) and checks it against the numbering plan.
// Parse failures and numbering-plan failures both return *ValidationError.
func (n *Normalizer) Normalize(raw, defaultRegion string) (Number, error) {
	num, err := phonenumbers.Parse(raw, n.region(defaultRegion))
	if err != nil {
		return Number{}, &ValidationError{Reason: err.Error(), Original: raw}
	}
	if !phonenumbers.IsValidNumber(num) {
		return Number{}, &ValidationError{Reason: ReasonInvalidFormat, Original: raw}
	}

	region := phonenumbers.GetRegionCodeForNumber(num)
	out := Number{
		E164:          phonenumbers.Format(num, phonenumbers.E164),
		International: phonenumbers.Format(num, phonenumbers.INTERNATIONAL),
		National:      phonenumbers.Format(num, phonenumbers.NATIONAL),
		Region:        region,
		Country:       countryName(region),
		Type:          typeLabel(phonenumbers.GetNumberType(num)),
	}

	// carrier and timezone tables are best effort
	if c, err := phonenumbers.GetCarrierForNumber(num, "en"); err == nil {
		out.Carrier = c
	}
	if tzs, err := phonenumbers.GetTimezonesForNumber(num); err == nil {
		for _, tz := range tzs {
			if tz != "" && tz != unknownTimezone {
				out.Timezones = append(out.Timezones, tz)
			}
		}
	}
	return out, nil
}

// IsRegionalMobile reports whether raw is a valid mobile number under region.
// Any failure yields false.
func (n *Normalizer) IsRegionalMobile(raw, region string) bool {
	num, err := phonenumbers.Parse(raw, n.region(region))
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num) &&
		phonenumbers.GetNumberType(num) == phonenumbers.MOBILE
}

// FormatForDisplay returns the international form of a valid number and the
// input unchanged otherwise.
func (n *Normalizer) FormatForDisplay(raw, region string) string {
	num, err := n.Normalize(raw, region)
	if err != nil {
		return raw
	}
	return num.International
}

// ExtractDigits strips everything but digits. It is for display and
// diagnostics only; validation always goes through Normalize.
func ExtractDigits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func countryName(region string) string {
	// "001" is used for non-geographic entities
	if region == "" || region == "ZZ" || region == "001" {
		return ""
	}
	r, err := language.ParseRegion(region)
	if err != nil {
		return ""
	}
	return display.English.Regions().Name(r)
}

func typeLabel(t phonenumbers.PhoneNumberType) string {
	switch t {
	case phonenumbers.FIXED_LINE:
		return "fixed_line"
	case phonenumbers.MOBILE:
		return "mobile"
	case phonenumbers.FIXED_LINE_OR_MOBILE:
		return "fixed_line_or_mobile"
	case phonenumbers.TOLL_FREE:
		return "toll_free"
	case phonenumbers.PREMIUM_RATE:
		return "premium_rate"
	case phonenumbers.SHARED_COST:
		return "shared_cost"
	case phonenumbers.VOIP:
		return "voip"
	case phonenumbers.PERSONAL_NUMBER:
		return "personal_number"
	case phonenumbers.PAGER:
		return "pager"
	case phonenumbers.UAN:
		return "uan"
	case phonenumbers.VOICEMAIL:
		return "voicemail"
	default:
		return "unknown"
	}
}
