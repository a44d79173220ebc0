// Package credential derives portal login identifiers and initial passwords for enrolled students.
//
// A login identifier is the institution tag, the two-digit year, the two-digit class number and a
// serial starting at 101, e.g. PP2509101. The initial password is the date of birth as DDMMYYYY.
package credential

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/pp-coaching/coaching-api/internal/models"
)

const (
	// DefaultInstitutionTag prefixes every login identifier.
	DefaultInstitutionTag = "PP"
	// FirstSerial is the serial issued to the first student of a prefix.
	FirstSerial = 101
	// FallbackClassDigits replaces a class label without digits when fallback is allowed.
	FallbackClassDigits = "10"
	// FallbackDOB replaces an unparseable date of birth.
	FallbackDOB = "2000-01-01"

	isoDate = "2006-01-02"
)

// ErrClassNotNumeric is returned when the class label carries no digits and fallback is disabled.
var ErrClassNotNumeric = errors.New("class label contains no digits")

var issuedShape = regexp.MustCompile(`^([A-Z]+[0-9]{4})([1-9][0-9]{2,8})$`)

var dobLayouts = []string{
	isoDate,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"02012006",
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// FixedYear returns a clock pinned to the first day of year.
func FixedYear(year int) Clock {
	return ClockFunc(func() time.Time { return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC) })
}

// Credential is a derived login identifier and initial password pair.
type Credential struct {
	Prefix   string
	Serial   int
	LoginID  string
	Password string
	DOB      string
}

// Options tunes a Deriver.
type Options struct {
	InstitutionTag     string
	AllowClassFallback bool
	Clock              Clock
	Logger             *zap.Logger
}

// Deriver turns admission inquiries into credentials.
type Deriver struct {
	tag           string
	allowFallback bool
	clock         Clock
	logger        *zap.Logger
}

// NewDeriver constructs a Deriver.
func NewDeriver(opts Options) *Deriver {
	tag := strings.ToUpper(strings.TrimSpace(opts.InstitutionTag))
	if tag == "" {
		tag = DefaultInstitutionTag
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deriver{tag: tag, allowFallback: opts.AllowClassFallback, clock: clock, logger: logger}
}

// Prefix computes the non-serial part of the login identifier for an inquiry.
func (d *Deriver) Prefix(inquiry models.AdmissionInquiry) (string, error) {
	digits, ok := ClassDigits(inquiry.Class)
	if !ok {
		if !d.allowFallback {
			return "", fmt.Errorf("%w: %q", ErrClassNotNumeric, inquiry.Class)
		}
		d.logger.Warn("class label has no digits, using fallback class",
			zap.String("inquiry_id", inquiry.ID),
			zap.String("class", inquiry.Class),
			zap.String("fallback", FallbackClassDigits))
		digits = FallbackClassDigits
	}
	return BuildPrefix(d.tag, d.clock.Now().Year(), digits), nil
}

// Derive builds the credential for an inquiry given how many identifiers already share its
// prefix. Callers that track a per-prefix high-water mark use Prefix and Issue instead.
func (d *Deriver) Derive(inquiry models.AdmissionInquiry, existing int) (Credential, error) {
	prefix, err := d.Prefix(inquiry)
	if err != nil {
		return Credential{}, err
	}
	return d.Issue(inquiry, prefix, FirstSerial+existing), nil
}

// Issue assembles the credential for an already allocated serial.
func (d *Deriver) Issue(inquiry models.AdmissionInquiry, prefix string, serial int) Credential {
	dob, ok := NormalizeDOB(inquiry.DOB)
	if !ok {
		d.logger.Warn("unparseable date of birth, using fallback",
			zap.String("inquiry_id", inquiry.ID),
			zap.String("dob", inquiry.DOB),
			zap.String("fallback", FallbackDOB))
	}
	return Credential{
		Prefix:   prefix,
		Serial:   serial,
		LoginID:  LoginID(prefix, serial),
		Password: PasswordFromISO(dob),
		DOB:      dob,
	}
}

// BuildPrefix joins tag, two-digit year and class digits.
func BuildPrefix(tag string, year int, classDigits string) string {
	return fmt.Sprintf("%s%02d%s", tag, year%100, classDigits)
}

// LoginID appends the serial to the prefix without separator or extra padding.
func LoginID(prefix string, serial int) string {
	return prefix + strconv.Itoa(serial)
}

// ClassDigits extracts every decimal digit from a class label and left-pads the result to two
// characters. It reports false when the label has no digits.
func ClassDigits(class string) (string, bool) {
	var b strings.Builder
	for _, r := range class {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", false
	}
	if len(digits) < 2 {
		digits = strings.Repeat("0", 2-len(digits)) + digits
	}
	return digits, true
}

// NormalizeClass reduces a class label to its digits without padding, so "Class 09", "9" and
// "class 9 " compare equal.
func NormalizeClass(class string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, class)
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" && digits != "" {
		return "0"
	}
	return trimmed
}

// NormalizeDOB parses a date of birth and returns it as YYYY-MM-DD. Unparseable input yields
// FallbackDOB and false.
func NormalizeDOB(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(isoDate), true
		}
	}
	return FallbackDOB, false
}

// Password derives the DDMMYYYY password from a raw date of birth.
func Password(dob string) string {
	normalized, _ := NormalizeDOB(dob)
	return PasswordFromISO(normalized)
}

// PasswordFromISO reorders a YYYY-MM-DD date into DDMMYYYY.
func PasswordFromISO(iso string) string {
	if len(iso) != len(isoDate) {
		return ""
	}
	return iso[8:10] + iso[5:7] + iso[0:4]
}

// ParsePassword converts a submitted password (DDMMYYYY or YYYY-MM-DD) into YYYY-MM-DD.
func ParsePassword(password string) (string, bool) {
	password = strings.TrimSpace(password)
	for _, layout := range []string{"02012006", isoDate} {
		if t, err := time.Parse(layout, password); err == nil {
			return t.Format(isoDate), true
		}
	}
	return "", false
}

// HasPrefix reports whether loginID starts with prefix, ignoring case.
func HasPrefix(loginID, prefix string) bool {
	return len(loginID) >= len(prefix) && strings.EqualFold(loginID[:len(prefix)], prefix)
}

// SerialOf returns the numeric suffix that follows prefix in loginID. It reports false when
// loginID does not start with prefix or the suffix is not all digits.
func SerialOf(loginID, prefix string) (int, bool) {
	if !HasPrefix(loginID, prefix) {
		return 0, false
	}
	suffix := loginID[len(prefix):]
	if suffix == "" || len(suffix) > 9 {
		return 0, false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	serial, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return serial, true
}

// SplitLoginID splits a login identifier shaped like an issued one (tag, four digits, serial) into
// prefix and serial. Hand-picked identifiers of any other shape report false.
func SplitLoginID(loginID string) (string, int, bool) {
	m := issuedShape.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(loginID)))
	if m == nil {
		return "", 0, false
	}
	serial, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], serial, true
}
