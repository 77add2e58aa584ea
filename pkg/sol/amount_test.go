package sol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0.001", 1_000_000},
		{"0.002", 2_000_000},
		{"1", 1_000_000_000},
		{"100000", 100_000 * 1_000_000_000},
		{"0.000000001", 1},
		{"1.5", 1_500_000_000},
		{"0", 0},
		{".5", 500_000_000},
		{"0.0015", 1_500_000},
	}

	for _, tc := range tests {
		got, err := Parse(tc.in)
		require.NoError(t, err, "Parse(%q)", tc.in)
		assert.Equal(t, tc.want, got.Lamports(), "Parse(%q)", tc.in)
	}
}

func TestParseRejectsExcessPrecision(t *testing.T) {
	_, err := Parse("0.0000000001")
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", ".", "abc", "1.2.3", "1e9"} {
		_, err := Parse(in)
		assert.Error(t, err, "Parse(%q)", in)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		in   Amount
		want string
	}{
		{FromLamports(1_000_000), "0.001"},
		{FromLamports(1_050_000), "0.00105"},
		{FromSOL(100_000), "100000"},
		{FromLamports(1), "0.000000001"},
		{0, "0"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.in.String())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	a := FromLamports(2_000_000)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, "0.002", string(data))

	var back Amount
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, a, back)
}

func TestMulRatio(t *testing.T) {
	base := FromLamports(1_000_000) // 0.001 SOL

	// JIT premium 105/100 must be exact.
	assert.Equal(t, int64(1_050_000), base.MulRatio(105, 100).Lamports())
	assert.Equal(t, base, base.MulRatio(1, 1))
}
