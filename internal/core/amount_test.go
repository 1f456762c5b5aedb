package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"10000", "10000", true},
		{"0", "0", true},
		{"12.5", "12.5", true},
		{" 250 ", "250", true},
		{"-1", "0", false},
		{"abc", "0", false},
		{"", "0", false},
		{"1.2.3", "0", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestNormalizeAmount(t *testing.T) {
	for in, want := range map[string]string{
		"1000": "1000",
		"-5":   "0",
		"abc":  "0",
		"":     "0",
	} {
		if got := NormalizeAmount(in).String(); got != want {
			t.Errorf("NormalizeAmount(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestCleanYenAmount(t *testing.T) {
	if got := CleanYenAmount("¥10,000"); got != "10000" {
		t.Fatalf("got %q", got)
	}
	if got := CleanYenAmount("￥1，234"); got != "1234" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatYen(t *testing.T) {
	cases := map[string]string{
		"0":       "¥0",
		"1000":    "¥1,000",
		"1234567": "¥1,234,567",
		"2.5":     "¥2",
		"3.5":     "¥4",
	}
	for in, want := range cases {
		if got := FormatYen(NormalizeAmount(in)); got != want {
			t.Errorf("FormatYen(%s) = %q, want %q", in, got, want)
		}
	}
}
