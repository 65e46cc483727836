package vibelang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkWriteU16RoundTrips(t *testing.T) {
	c := NewChunk()
	c.WriteU16(0x1234, 1)
	assert.Equal(t, uint16(0x1234), c.ReadU16(0))
	assert.Equal(t, []byte{0x34, 0x12}, c.Code)
}

func TestChunkAddConstant(t *testing.T) {
	c := NewChunk()
	idx1, err := c.AddConstant(NumberValue(1))
	require.NoError(t, err)
	idx2, err := c.AddConstant(NumberValue(2))
	require.NoError(t, err)

	assert.Equal(t, uint16(0), idx1)
	assert.Equal(t, uint16(1), idx2)
	assert.Equal(t, float64(1), c.GetConstant(idx1).AsNumber())
	assert.Equal(t, float64(2), c.GetConstant(idx2).AsNumber())
}

func TestChunkAddConstantOverflow(t *testing.T) {
	c := NewChunk()
	for i := 0; i < maxConstants; i++ {
		_, err := c.AddConstant(NumberValue(float64(i)))
		require.NoError(t, err)
	}
	_, err := c.AddConstant(NumberValue(0))
	assert.Error(t, err)
}

func TestOpCodeString(t *testing.T) {
	assert.Equal(t, "ADD", OpAdd.String())
	assert.Equal(t, "INVOKE", OpInvoke.String())
}
