package cdgbitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFillsWithFillIndex(t *testing.T) {
	b, err := New(3, 2, 9)
	require.NoError(t, err)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			assert.Equal(t, uint8(9), b.At(x, y))
		}
	}
}

func TestNewRejectsNonPositiveDimensions(t *testing.T) {
	_, err := New(0, 1, 0)
	assert.Error(t, err)
	_, err = New(1, -1, 0)
	assert.Error(t, err)
}

func TestAtOutOfBoundsReturnsFillIndex(t *testing.T) {
	b, err := New(2, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), b.At(-1, 0))
	assert.Equal(t, uint8(5), b.At(0, 2))
	assert.Equal(t, uint8(5), b.At(99, 99))
}

func TestSetAndAtRoundTrip(t *testing.T) {
	b, err := New(2, 2, 0)
	require.NoError(t, err)
	require.NoError(t, b.Set(1, 0, 7))
	assert.Equal(t, uint8(7), b.At(1, 0))
	assert.Equal(t, uint8(0), b.At(0, 0))
}

func TestSetOutOfBoundsErrors(t *testing.T) {
	b, err := New(2, 2, 0)
	require.NoError(t, err)
	assert.Error(t, b.Set(2, 0, 1))
	assert.Error(t, b.Set(0, -1, 1))
}

func TestIsTransparentRespectsTransparentNone(t *testing.T) {
	b, err := New(2, 2, 3)
	require.NoError(t, err)
	assert.False(t, b.IsTransparent(0, 0))

	b.TransparentIndex = 3
	assert.True(t, b.IsTransparent(0, 0))

	require.NoError(t, b.Set(1, 1, 4))
	assert.False(t, b.IsTransparent(1, 1))
}

func TestValidateCatchesBadLayer(t *testing.T) {
	b, err := New(2, 2, 0)
	require.NoError(t, err)
	b.Layer = 8
	assert.Error(t, b.Validate())
	b.Layer = 0
	assert.NoError(t, b.Validate())
}

func TestValidateCatchesMismatchedPixelBuffer(t *testing.T) {
	b, err := New(2, 2, 0)
	require.NoError(t, err)
	b.Pixels = b.Pixels[:2]
	assert.Error(t, b.Validate())
}

func TestValidateCatchesBadTransparentIndex(t *testing.T) {
	b, err := New(2, 2, 0)
	require.NoError(t, err)
	b.TransparentIndex = 999
	assert.Error(t, b.Validate())
	b.TransparentIndex = TransparentNone
	assert.NoError(t, b.Validate())
}
