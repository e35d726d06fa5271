package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		in, region, want string
	}{
		{"06 12345678", "NL", "+31612345678"},
		{"+31 6 12345678", "", "+31612345678"},
		{"  ", "NL", ""},
		{"call me maybe", "NL", "call me maybe"},
	}
	for _, tc := range cases {
		if got := NormalizeE164(tc.in, tc.region); got != tc.want {
			t.Fatalf("NormalizeE164(%q, %q) = %q, want %q", tc.in, tc.region, got, tc.want)
		}
	}
}
