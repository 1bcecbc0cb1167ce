package utils

import "testing"

func TestParseSequenceSuffix(t *testing.T) {
	cases := []struct {
		number, prefix string
		want           int
		ok             bool
	}{
		{"INS-26-0012", "INS-26-", 12, true},
		{"INS-26-10000", "INS-26-", 10000, true},
		{"INS-25-0012", "INS-26-", 0, false},
		{"INS-26-00A1", "INS-26-", 0, false},
		{"WO-20260301-0003", "WO-20260301-", 3, true},
	}
	for _, c := range cases {
		got, ok := ParseSequenceSuffix(c.number, c.prefix)
		if got != c.want || ok != c.ok {
			t.Fatalf("ParseSequenceSuffix(%q, %q) = %d,%v want %d,%v", c.number, c.prefix, got, ok, c.want, c.ok)
		}
	}
}

func TestHighestSequenceComparesNumerically(t *testing.T) {
	numbers := []string{"DEF-26-0009", "DEF-26-10000", "DEF-26-0999", "DEF-25-9999", "junk"}
	if got := HighestSequence(numbers, "DEF-26-"); got != "DEF-26-10000" {
		t.Fatalf("expected DEF-26-10000, got %q", got)
	}
	if got := HighestSequence(nil, "DEF-26-"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
