package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1000", "1000", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"0", "", false},
		{"0.00", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1,2.3", "", false},
		{"", "", false},
		{"1e5", "", false},
		{"1e-5", "", false},
		{"1E5", "", false},
		{"1e900000000", "", false},
		{"+5", "", false},
		{".5", "", false},
		{"999999999999.99999999", "999999999999.99999999", true},
		{"1000000000000", "", false},
		{"0.000000001", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(dec(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got)
		}
	}
}

func TestSumsAreExact(t *testing.T) {
	earnings := []Earning{
		{Amount: dec("0.1")},
		{Amount: dec("0.2")},
	}
	if got := SumEarnings(earnings); !got.Equal(dec("0.3")) {
		t.Fatalf("expected 0.3, got %s", got)
	}
	if got := SumExpenditures(nil); !got.IsZero() {
		t.Fatalf("expected zero for empty list, got %s", got)
	}
}
