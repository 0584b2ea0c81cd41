package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "link address and residue",
			in:   "See [source](https://example.com/article) for details (example.com)",
			want: "See source for details",
		},
		{
			name: "bare address",
			in:   "Weather via https://weather.example.org/today is dry.",
			want: "Weather via  is dry.",
		},
		{
			name: "residue with path",
			in:   "Pole for Norris (www.formula1.com/en/latest) last year.",
			want: "Pole for Norris last year.",
		},
		{
			name: "co.uk residue",
			in:   "Rain expected (bbc.co.uk)",
			want: "Rain expected",
		},
		{
			name: "plain parentheses kept",
			in:   "Verstappen (Red Bull) leads.",
			want: "Verstappen (Red Bull) leads.",
		},
		{
			name: "nested link collapses fully",
			in:   "[[Hamilton](https://a.com)](https://b.com) wins",
			want: "Hamilton wins",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Clean(tc.in))
		})
	}
}

func TestCleanIdentityOnArtifactFreeText(t *testing.T) {
	inputs := []string{
		"FULL: text here\n\nSTAKES: high",
		"## Current Form\nTwo podiums in the last three races.",
		"P1-P3 (if dry)",
	}
	for _, in := range inputs {
		assert.Equal(t, in, Clean(in))
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"See [source](https://example.com/article) for details (example.com)",
		"  (https://x.com) [a](b) http://y.io/z (foo.net) ",
		"[[x](https://a.com)](https://b.com)",
		"(see https://a.io) and [link](u) (a.gov) tail",
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "input %q", in)
	}
}
