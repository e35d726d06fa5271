package validator

import "testing"

func TestIsEmail(t *testing.T) {
	val := New()
	if !val.IsEmail("billing@example.com") {
		t.Fatal("expected valid email")
	}
	for _, bad := range []string{"", "not-an-email", "a@", "@b.com"} {
		if val.IsEmail(bad) {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestIsCurrencyCode(t *testing.T) {
	val := New()
	if !val.IsCurrencyCode("EUR") {
		t.Fatal("expected EUR to be valid")
	}
	if val.IsCurrencyCode("EURO") {
		t.Fatal("expected EURO to be rejected")
	}
}

func TestFieldErrors(t *testing.T) {
	type payload struct {
		Action string `validate:"omitempty,max=5"`
	}
	err := New().Struct(payload{Action: "too-long-action"})
	details := FieldErrors(err)
	if details["action"] != "max=5" {
		t.Fatalf("expected action max=5, got %v", details)
	}
	if FieldErrors(nil) != nil {
		t.Fatal("expected nil details for nil error")
	}
}
