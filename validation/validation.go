package validation

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/diewo77/garage-manager/internal/apperr"
)

// Violations maps a field name to an error code (an i18n key).
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Err returns a validation_failed error carrying v, nil when v is empty.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return apperr.Validation("validation_failed", v)
}

// Add records code for field unless the field already has a violation.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func RequiredID(field string, id uint, v Violations) {
	if id == 0 {
		v.Add(field, "required")
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v.Add(field, "must_be_positive")
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v.Add(field, "must_be_positive")
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v.Add(field, "out_of_range")
	}
}

// Email accepts an empty value; combine with Required when mandatory.
// Surrounding whitespace is ignored; callers normalise before storing.
func Email(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		v.Add(field, "invalid_email")
	}
}

var phoneRe = regexp.MustCompile(`^\+?[0-9 .\-]{6,20}$`)

// Phone accepts an empty value; combine with Required when mandatory.
func Phone(field, value string, v Violations) {
	if value == "" {
		return
	}
	if !phoneRe.MatchString(value) {
		v.Add(field, "invalid_phone")
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.Add(field, "invalid_value")
}
