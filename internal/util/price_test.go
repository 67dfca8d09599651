package util

import "testing"

func TestParsePrice(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "decimal", input: "199.99", want: "199.99"},
		{name: "integer", input: "100", want: "100"},
		{name: "padded", input: " 35.00 ", want: "35"},
		{name: "nbsp", input: "\u00a012.5", want: "12.5"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePrice(tc.input)
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tc.want {
				t.Fatalf("got %s want %s", got.String(), tc.want)
			}
		})
	}
}

func TestParsePriceRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "abc", "12,99 EUR", "$10"} {
		if _, err := ParsePrice(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}
