package process

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddressWraps(t *testing.T) {
	assert.Equal(t, Address(5), NormalizeAddress(math.Pow(2, 32)+5))
	assert.Equal(t, Address(0), NormalizeAddress(math.Pow(2, 32)))
	assert.Equal(t, Address(1), NormalizeAddress(math.Pow(2, 33)+1))
}

func TestNormalizeAddressNegative(t *testing.T) {
	a := NormalizeAddress(-1)

	assert.Equal(t, uint32(math.MaxUint32), a.Uint32())
	assert.Equal(t, Address(-1), a)
	assert.Equal(t, float64(-1), a.Float64())
}

func TestNormalizeAddressHighUnsigned(t *testing.T) {
	a := NormalizeAddress(0x8000_0000)

	assert.Equal(t, uint32(0x8000_0000), a.Uint32())
	assert.Equal(t, float64(math.MinInt32), a.Float64())
	assert.Equal(t, a, NormalizeAddress(a.Float64()))
}

func TestNormalizeAddressIsTotal(t *testing.T) {
	assert.Equal(t, Address(0), NormalizeAddress(math.NaN()))
	assert.Equal(t, Address(0), NormalizeAddress(math.Inf(1)))
	assert.Equal(t, Address(0), NormalizeAddress(math.Inf(-1)))
	assert.Equal(t, Address(7), NormalizeAddress(7.9))
	assert.Equal(t, NormalizeAddress(123456.5), NormalizeAddress(123456.5))
}

func TestAddressArithmeticWraps(t *testing.T) {
	a := Address(math.MaxInt32)

	assert.Equal(t, Address(math.MinInt32), a.Add(1))
	assert.Equal(t, uint64(0x7FFF_FFFF+8), a.Add(8).Uint64())
	assert.Equal(t, AddressFromUint64(0x1_0000_0010), Address(0x10))
	assert.Equal(t, "0xFFFFFFFF", Address(-1).String())
}
