package cdgtile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdgforge/internal/cdgpacket"
)

func uniformBaseline() Tile {
	return Tile{}
}

func TestEncodeAllTransparentEmitsNothing(t *testing.T) {
	var tile Tile
	for y := range tile {
		for x := range tile[y] {
			tile[y][x] = Transparent
		}
	}
	pkts, err := Encode(tile, uniformBaseline(), Position{Col: 0, Row: 0}, nil)
	require.NoError(t, err)
	assert.Nil(t, pkts)
}

// Scenario 2 (spec.md §8.2): single uniform tile, color 7.
func TestEncodeUniformColorTile(t *testing.T) {
	var tile Tile
	for y := range tile {
		for x := range tile[y] {
			tile[y][x] = 7
		}
	}
	pkts, err := Encode(tile, uniformBaseline(), Position{Col: 10, Row: 5}, nil)
	require.NoError(t, err)
	require.Len(t, pkts, 1)

	c0, c1 := pkts[0].TileColors()
	assert.Equal(t, uint8(7), c0)
	assert.Equal(t, uint8(7), c1)
	row, col := pkts[0].TilePosition()
	assert.Equal(t, uint8(5), row)
	assert.Equal(t, uint8(10), col)
	for _, m := range pkts[0].TileMaskRows() {
		assert.Equal(t, uint8(0x3F), m)
	}
}

// Scenario 3 (spec.md §8.3): two-color diagonal, color2 on the diagonal,
// color5 elsewhere.
func TestEncodeTwoColorDiagonal(t *testing.T) {
	var tile Tile
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if x == y%Width {
				tile[y][x] = 2
			} else {
				tile[y][x] = 5
			}
		}
	}
	pkts, err := Encode(tile, uniformBaseline(), Position{Col: 0, Row: 0}, nil)
	require.NoError(t, err)
	require.Len(t, pkts, 1)

	c0, c1 := pkts[0].TileColors()
	assert.Equal(t, uint8(5), c0)
	assert.Equal(t, uint8(2), c1)

	mask := pkts[0].TileMaskRows()
	for y := 0; y < Height; y++ {
		wantBit := uint8(1) << uint(Width-1-(y%Width))
		assert.Equal(t, wantBit, mask[y], "row %d", y)
	}
}

// Scenario 4 (spec.md §8.4): three-color L-shape.
func TestEncodeThreeColorLShape(t *testing.T) {
	var tile Tile
	// 40 pixels of color 1, 20 of color 2, 12 of color 3, laid out in rows.
	n := 0
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			switch {
			case n < 40:
				tile[y][x] = 1
			case n < 60:
				tile[y][x] = 2
			default:
				tile[y][x] = 3
			}
			n++
		}
	}

	pkts, err := Encode(tile, uniformBaseline(), Position{Col: 0, Row: 0}, nil)
	require.NoError(t, err)
	require.Len(t, pkts, 2)

	c0, c1 := pkts[0].TileColors()
	assert.Equal(t, uint8(1), c0)
	assert.Equal(t, uint8(2), c1)
	assert.Equal(t, cdgpacket.CopyFont, pkts[0].Instruction())

	xc0, xc1 := pkts[1].TileColors()
	assert.Equal(t, uint8(0), xc0)
	assert.Equal(t, uint8(2^3), xc1)
	assert.Equal(t, cdgpacket.XorFont, pkts[1].Instruction())

	mask := pkts[1].TileMaskRows()
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			bit := mask[y]&(1<<uint(Width-1-x)) != 0
			assert.Equal(t, tile[y][x] == 3, bit, "pixel (%d,%d)", x, y)
		}
	}
}

func TestEncodeFourPlusColorsUsesBitPlanes(t *testing.T) {
	var tile Tile
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			tile[y][x] = uint8((x + y) % 5)
		}
	}
	pkts, err := Encode(tile, uniformBaseline(), Position{Col: 0, Row: 0}, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(pkts), 4)
	assert.Equal(t, cdgpacket.CopyFont, pkts[0].Instruction())
	for _, p := range pkts[1:] {
		assert.Equal(t, cdgpacket.XorFont, p.Instruction())
	}
}

func TestEncodeTransparentTileNeverTouchesBaselineOutsideTarget(t *testing.T) {
	baseline := Tile{}
	for y := range baseline {
		for x := range baseline[y] {
			baseline[y][x] = 9
		}
	}

	var target Tile
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if x < 3 {
				target[y][x] = 4
			} else {
				target[y][x] = Transparent
			}
		}
	}

	pkts, err := Encode(target, baseline, Position{Col: 1, Row: 1}, nil)
	require.NoError(t, err)
	for _, p := range pkts {
		assert.Equal(t, cdgpacket.XorFont, p.Instruction())
	}

	// Simulate decoding: start from baseline, XOR in each packet's effect,
	// and confirm untouched pixels keep the baseline's color while touched
	// pixels converge to target's.
	got := baseline
	for _, p := range pkts {
		c0, c1 := p.TileColors()
		mask := p.TileMaskRows()
		for y := 0; y < Height; y++ {
			for x := 0; x < Width; x++ {
				set := mask[y]&(1<<uint(Width-1-x)) != 0
				chosen := c0
				if set {
					chosen = c1
				}
				got[y][x] ^= chosen
			}
		}
	}

	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if target[y][x] == Transparent {
				assert.Equal(t, baseline[y][x], got[y][x], "transparent pixel (%d,%d) must keep baseline", x, y)
			} else {
				assert.Equal(t, target[y][x], got[y][x], "opaque pixel (%d,%d) must reach target", x, y)
			}
		}
	}
}

func TestTieBreakByLowerPaletteIndex(t *testing.T) {
	var tile Tile
	// color 3 and color 1 tied at equal count; the lower index 1 breaks the
	// tie and ranks first (color0), with 3 second (color1).
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if (x+y)%2 == 0 {
				tile[y][x] = 3
			} else {
				tile[y][x] = 1
			}
		}
	}
	colors := rankedColors(tile.colorCounts())
	require.Len(t, colors, 2)
	assert.Equal(t, uint8(1), colors[0])
	assert.Equal(t, uint8(3), colors[1])
}
