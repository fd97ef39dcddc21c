package quotes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNumberPrefix(t *testing.T) {
	assert.Equal(t, "J-25-06", NumberPrefix(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "J-26-01", NumberPrefix(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "J-99-12", NumberPrefix(time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "J-25-06001", FormatNumber("J-25-06", 1))
	assert.Equal(t, "J-25-06042", FormatNumber("J-25-06", 42))
	assert.Equal(t, "J-25-06999", FormatNumber("J-25-06", 999))
	// past three digits, the sequence keeps its natural width
	assert.Equal(t, "J-25-061000", FormatNumber("J-25-06", 1000))
	assert.Equal(t, "J-25-0612345", FormatNumber("J-25-06", 12345))
}

func TestBaseNumber(t *testing.T) {
	assert.Equal(t, "J-25-06001", BaseNumber("J-25-06001"))
	assert.Equal(t, "J-25-06001", BaseNumber("J-25-06001-V2"))
	assert.Equal(t, "J-25-06001", BaseNumber("J-25-06001-V17"))
}

func TestVersionedNumber(t *testing.T) {
	// versioning an original appends the suffix
	assert.Equal(t, "J-25-06001-V2", VersionedNumber("J-25-06001", 2))
	// versioning a version replaces the suffix instead of stacking
	assert.Equal(t, "J-25-06001-V3", VersionedNumber("J-25-06001-V2", 3))
}

func TestSeqFromNumber(t *testing.T) {
	cases := []struct {
		number string
		prefix string
		seq    int64
		ok     bool
	}{
		{"J-25-06001", "J-25-06", 1, true},
		{"J-25-06042", "J-25-06", 42, true},
		{"J-25-061000", "J-25-06", 1000, true},
		// version suffix is stripped before parsing
		{"J-25-06007-V3", "J-25-06", 7, true},
		// other months and years do not count toward this bucket
		{"J-25-05099", "J-25-06", 0, false},
		{"J-24-06001", "J-25-06", 0, false},
		{"INV-25-06001", "J-25-06", 0, false},
		{"J-25-06", "J-25-06", 0, false},
		{"J-25-06abc", "J-25-06", 0, false},
	}
	for _, tc := range cases {
		seq, ok := SeqFromNumber(tc.number, tc.prefix)
		assert.Equal(t, tc.ok, ok, tc.number)
		assert.Equal(t, tc.seq, seq, tc.number)
	}
}

func TestComputeTotals(t *testing.T) {
	items := []Item{
		{Price: 1000, Qty: 2},
		{Price: 500, Qty: 1},
	}
	subtotal, tax, grand := ComputeTotals(items)
	assert.Equal(t, int64(2500), subtotal)
	assert.Equal(t, int64(125), tax)
	assert.Equal(t, int64(2625), grand)
}

func TestComputeTotalsRounding(t *testing.T) {
	// fractional unit prices round at the subtotal, then again at the tax
	items := []Item{{Price: 33.33, Qty: 3}}
	subtotal, tax, grand := ComputeTotals(items)
	assert.Equal(t, int64(100), subtotal)
	assert.Equal(t, int64(5), tax)
	assert.Equal(t, int64(105), grand)
}

func TestComputeTotalsEmpty(t *testing.T) {
	subtotal, tax, grand := ComputeTotals(nil)
	assert.Zero(t, subtotal)
	assert.Zero(t, tax)
	assert.Zero(t, grand)
}
