package users

import "testing"

func TestValidatePasswordPolicy(t *testing.T) {
	cases := []struct {
		name string
		pwd  string
		ok   bool
	}{
		{name: "valid mixed", pwd: "Warehouse#2707", ok: true},
		{name: "letters only", pwd: "abcdefghijklmno", ok: false},
		{name: "short", pwd: "A1!bc", ok: false},
		{name: "no symbol", pwd: "Warehouse2707x", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePasswordPolicy(tc.pwd)
			if tc.ok && err != nil {
				t.Fatalf("expected valid password, got error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected policy error")
			}
		})
	}
}
