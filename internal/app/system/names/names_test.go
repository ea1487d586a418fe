package names

import (
	"testing"

	"github.com/jwagner/imagevault/internal/app/system/fault"
)

func TestValidate(t *testing.T) {
	valid := []string{"Photos", "cat.png", "summer 2025", "a"}
	for _, name := range valid {
		got, err := Validate(name)
		if err != nil {
			t.Errorf("Validate(%q) = %v, want nil", name, err)
			continue
		}
		if got != name {
			t.Errorf("Validate(%q) = %q, want unchanged", name, got)
		}
	}

	invalid := []string{
		"",
		"   ",
		"pho/tos",
		`back\slash`,
		"quo'te",
		`dou"ble`,
		"tick`name",
		"paren(s)",
	}
	for _, name := range invalid {
		_, err := Validate(name)
		if err == nil {
			t.Errorf("Validate(%q) = nil, want InvalidArgument", name)
			continue
		}
		if fault.KindOf(err) != fault.InvalidArgument {
			t.Errorf("Validate(%q) kind = %v, want InvalidArgument", name, fault.KindOf(err))
		}
	}
}

func TestValidateTrims(t *testing.T) {
	got, err := Validate("  Photos ")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != "Photos" {
		t.Errorf("Validate() = %q, want %q", got, "Photos")
	}
}

func TestValidateLength(t *testing.T) {
	long := make([]byte, MaxLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := Validate(string(long)); fault.KindOf(err) != fault.InvalidArgument {
		t.Errorf("overlong name should be InvalidArgument, got %v", err)
	}
}
