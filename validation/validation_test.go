package validation

import (
	"errors"
	"testing"

	"github.com/diewo77/garage-manager/internal/apperr"
)

func TestValidators(t *testing.T) {
	v := make(Violations)
	Required("name", "  ", v)
	Email("email", "not-an-email", v)
	Phone("phone", "+216 71 000 000", v)
	PositiveFloat("prix", 0, v)
	OneOf("status", "done", []string{"en_attente", "en_cours"}, v)
	RequiredID("client_id", 0, v)

	want := map[string]string{
		"name":      "required",
		"email":     "invalid_email",
		"prix":      "must_be_positive",
		"status":    "invalid_value",
		"client_id": "required",
	}
	if len(v) != len(want) {
		t.Fatalf("expected %v, got %v", want, v)
	}
	for field, code := range want {
		if v[field] != code {
			t.Errorf("%s: expected %s, got %s", field, code, v[field])
		}
	}
}

func TestAddKeepsFirstViolation(t *testing.T) {
	v := make(Violations)
	Required("email", "", v)
	Email("email", "x", v)
	if v["email"] != "required" {
		t.Fatalf("expected first violation to win, got %s", v["email"])
	}
}

func TestEmptyValuesAreOptional(t *testing.T) {
	v := make(Violations)
	Email("email", "", v)
	Phone("phone", "", v)
	if !v.Empty() {
		t.Fatalf("expected no violations, got %v", v)
	}
}

func TestErr(t *testing.T) {
	v := make(Violations)
	if v.Err() != nil {
		t.Fatal("empty violations should not be an error")
	}
	Required("name", "", v)
	err := v.Err()
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if details, ok := apperr.As(err).Details.(Violations); !ok || details["name"] != "required" {
		t.Fatalf("details not carried: %#v", apperr.As(err).Details)
	}
}

func TestEmailIgnoresSurroundingSpace(t *testing.T) {
	v := make(Violations)
	Email("email", "  Sami@Nord.test ", v)
	if !v.Empty() {
		t.Fatalf("padded email rejected: %v", v)
	}
}
