package pool

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func dec(s string) sdkmath.LegacyDec { return sdkmath.LegacyMustNewDecFromStr(s) }

func TestGainFraction(t *testing.T) {
	tests := []struct {
		name     string
		basis    string
		vps      string
		expected string
	}{
		{"no gain", "1.0", "1.0", "0"},
		{"loss", "1.0", "0.8", "0"},
		{"sixty percent gain", "1.0", "1.6", "0.6"},
		{"gain over doubled basis capped", "1.0", "3.5", "1"},
		{"fractional basis", "0.5", "0.6", "0.2"},
		{"zero basis counts as pure gain", "0", "1.2", "1"},
		{"worthless share", "1.0", "0", "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := gainFraction(dec(tc.basis), dec(tc.vps))
			require.True(t, got.Equal(dec(tc.expected)), "got %s", got)
		})
	}
}
