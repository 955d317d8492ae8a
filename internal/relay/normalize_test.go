package relay_test

import (
	"testing"

	"github.com/amsaid/relayconsole/internal/relay"
)

func TestNormalizeChatID(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   ",
			expected: "",
		},
		{
			name:     "username handle",
			input:    "@mychannel",
			expected: "@mychannel",
		},
		{
			name:     "already prefixed",
			input:    "-1001234567890",
			expected: "-1001234567890",
		},
		{
			name:     "bare numeric id",
			input:    "1234567890",
			expected: "-1001234567890",
		},
		{
			name:     "negative numeric id",
			input:    "-1234567890",
			expected: "-1001234567890",
		},
		{
			name:     "surrounding whitespace",
			input:    "  1234567890  ",
			expected: "-1001234567890",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := relay.NormalizeChatID(tc.input)
			if got != tc.expected {
				t.Errorf("NormalizeChatID(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestNormalizeChatIDIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"", "@handle", "1234567890", "-1001234567890"}
	for _, in := range inputs {
		once := relay.NormalizeChatID(in)
		twice := relay.NormalizeChatID(once)
		if once != twice {
			t.Errorf("normalization not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
