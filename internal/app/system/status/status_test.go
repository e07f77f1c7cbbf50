package status

import "testing"

func TestStates(t *testing.T) {
	for _, tc := range []struct {
		in            string
		valid, signIn bool
	}{
		{Active, true, true},
		{Disabled, true, false},
		{" Active ", false, true}, // CanSignIn normalizes, IsValid does not
		{"ACTIVE", false, true},
		{"pending", false, false},
		{"", false, false},
	} {
		if got := IsValid(tc.in); got != tc.valid {
			t.Errorf("IsValid(%q) = %v, want %v", tc.in, got, tc.valid)
		}
		if got := CanSignIn(tc.in); got != tc.signIn {
			t.Errorf("CanSignIn(%q) = %v, want %v", tc.in, got, tc.signIn)
		}
	}
	if !IsValid(Default()) {
		t.Errorf("Default() = %q is not a valid state", Default())
	}
}
