package ingest

import "testing"

func TestIsWhaleBoundaries(t *testing.T) {
	policy := NewPolicy(1_000_000, 5, 95, []string{"Sports", "Crypto"})

	cases := []struct {
		name     string
		amount   int64
		price    int
		category string
		want     bool
	}{
		{"exactly at threshold", 1_000_000, 60, "Politics", true},
		{"one cent under threshold", 999_999, 60, "Politics", false},
		{"far above threshold", 5_000_000, 50, "Politics", true},
		{"price at lower band edge", 1_000_000, 5, "Politics", false},
		{"price just inside lower edge", 1_000_000, 6, "Politics", true},
		{"price at upper band edge", 1_000_000, 95, "Politics", false},
		{"price just inside upper edge", 1_000_000, 94, "Politics", true},
		{"price at zero", 1_000_000, 0, "Politics", false},
		{"price at one hundred", 1_000_000, 100, "Politics", false},
		{"excluded sports", 1_000_000, 60, "Sports", false},
		{"excluded crypto", 1_000_000, 60, "Crypto", false},
		{"unknown category allowed", 1_000_000, 60, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := policy.IsWhale(tc.amount, tc.price, tc.category)
			if got != tc.want {
				t.Fatalf("IsWhale(%d, %d, %q) = %v, want %v", tc.amount, tc.price, tc.category, got, tc.want)
			}
		})
	}
}
