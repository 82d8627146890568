package common

import (
	"testing"
)

func TestChecksumAddress(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		expected string
	}{
		{
			name:     "valid address",
			addr:     "0x1234567890123456789012345678901234567890",
			expected: "0x1234567890123456789012345678901234567890",
		},
		{
			name:     "invalid address",
			addr:     "not_an_address",
			expected: "0x0000000000000000000000000000000000000000",
		},
		{
			name:     "checksum address",
			addr:     "0x480fbe37526226b6c6e2a7afa449cdf661939d2f",
			expected: "0x480Fbe37526226b6c6E2a7AfA449cDf661939D2f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := ChecksumAddress(tt.addr)
			if actual != tt.expected {
				t.Errorf("checksumAddress(%s): expected %s, but got %s", tt.addr, tt.expected, actual)
			}
		})
	}
}

func TestIsHexAddress(t *testing.T) {
	inputs := map[string]bool{
		"0x32330e05494177CF452F4093290306c4598ddA98": true,
		"0x32330e05494177cf452f4093290306c4598dda98": true,
		"32330e05494177cf452f4093290306c4598dda98":   true,
		"Superchain":                                 false,
		"":                                           false,
		"0x1234":                                     false,
	}

	for input, expected := range inputs {
		if IsHexAddress(input) != expected {
			t.Errorf("IsHexAddress(%q) = %v, want %v", input, !expected, expected)
		}
	}
}

func TestIsSameHexAddress(t *testing.T) {
	if !IsSameHexAddress("0xE5c30d9f83C2FfFf6995d27F340F2BdBB997747E", "0xe5c30d9f83c2ffff6995d27f340f2bdbb997747e") {
		t.Errorf("expected addresses to match regardless of casing")
	}

	if IsSameHexAddress("0xE5c30d9f83C2FfFf6995d27F340F2BdBB997747E", "0x32330e05494177CF452F4093290306c4598ddA98") {
		t.Errorf("expected different addresses not to match")
	}
}
