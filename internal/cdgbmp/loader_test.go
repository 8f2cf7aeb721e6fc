package cdgbmp

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBMP constructs a minimal Windows v3, 8-bit indexed, bottom-up BMP
// buffer. rows is given in visual top-to-bottom order; the file is written
// bottom-up (the on-disk convention this loader's Y-inversion comment
// documents), so row 0 of rows ends up last in the pixel data.
func buildBMP(width, height int, palette [256][3]uint8, rows [][]uint8) []byte {
	stride := (width + 3) &^ 3
	pixelDataOff := 14 + 40 + 256*4
	pixelDataLen := stride * height
	fileSize := pixelDataOff + pixelDataLen

	buf := make([]byte, fileSize)
	buf[0], buf[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(buf[2:6], uint32(fileSize))
	binary.LittleEndian.PutUint32(buf[10:14], uint32(pixelDataOff))

	binary.LittleEndian.PutUint32(buf[14:18], 40) // dib header size
	binary.LittleEndian.PutUint32(buf[18:22], uint32(width))
	binary.LittleEndian.PutUint32(buf[22:26], uint32(height)) // positive: bottom-up
	binary.LittleEndian.PutUint16(buf[26:28], 1)               // planes
	binary.LittleEndian.PutUint16(buf[28:30], 8)                // bpp
	binary.LittleEndian.PutUint32(buf[30:34], 0)                // BI_RGB
	binary.LittleEndian.PutUint32(buf[34:38], uint32(pixelDataLen))
	binary.LittleEndian.PutUint32(buf[46:50], 0) // palette count: 0 means default 256

	palOff := 54
	for i, c := range palette {
		buf[palOff+i*4+0] = c[2] // B
		buf[palOff+i*4+1] = c[1] // G
		buf[palOff+i*4+2] = c[0] // R
		buf[palOff+i*4+3] = 0
	}

	// Bottom-up storage: the last visual row is written first.
	for fileRow := 0; fileRow < height; fileRow++ {
		visualRow := height - 1 - fileRow
		dst := pixelDataOff + fileRow*stride
		copy(buf[dst:dst+width], rows[visualRow])
	}

	return buf
}

func testPalette() [256][3]uint8 {
	var pal [256][3]uint8
	pal[1] = [3]uint8{255, 0, 0}
	pal[2] = [3]uint8{0, 255, 0}
	return pal
}

func TestLoadDecodesPixelsAndFlipsYAxis(t *testing.T) {
	pal := testPalette()
	buf := buildBMP(2, 2, pal, [][]uint8{
		{1, 1}, // visual top row
		{2, 2}, // visual bottom row
	})

	b, err := Load(buf, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Width)
	assert.Equal(t, 2, b.Height)
	assert.Equal(t, uint8(1), b.At(0, 0))
	assert.Equal(t, uint8(1), b.At(1, 0))
	assert.Equal(t, uint8(2), b.At(0, 1))
	assert.Equal(t, uint8(2), b.At(1, 1))
}

func TestLoadPreservesPaletteColors(t *testing.T) {
	pal := testPalette()
	buf := buildBMP(2, 2, pal, [][]uint8{{1, 1}, {2, 2}})

	b, err := Load(buf, nil)
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{255, 0, 0}, b.Palette[1])
	assert.Equal(t, [3]uint8{0, 255, 0}, b.Palette[2])
}

func TestLoadRejectsBadMagic(t *testing.T) {
	buf := buildBMP(2, 2, testPalette(), [][]uint8{{1, 1}, {2, 2}})
	buf[0] = 'X'

	_, err := Load(buf, nil)
	require.Error(t, err)
	var invalidErr *InvalidBmpError
	require.ErrorAs(t, err, &invalidErr)
}

func TestLoadRejectsNonEightBpp(t *testing.T) {
	buf := buildBMP(2, 2, testPalette(), [][]uint8{{1, 1}, {2, 2}})
	binary.LittleEndian.PutUint16(buf[28:30], 24)

	_, err := Load(buf, nil)
	require.Error(t, err)
	var invalidErr *InvalidBmpError
	require.ErrorAs(t, err, &invalidErr)
}

func TestLoadRejectsCompressedData(t *testing.T) {
	buf := buildBMP(2, 2, testPalette(), [][]uint8{{1, 1}, {2, 2}})
	binary.LittleEndian.PutUint32(buf[30:34], 1)

	_, err := Load(buf, nil)
	require.Error(t, err)
}

func TestLoadRejectsTruncatedBuffer(t *testing.T) {
	buf := buildBMP(2, 2, testPalette(), [][]uint8{{1, 1}, {2, 2}})
	_, err := Load(buf[:10], nil)
	require.Error(t, err)
	var invalidErr *InvalidBmpError
	require.ErrorAs(t, err, &invalidErr)
}

func TestLoadRejectsOversizedDimensions(t *testing.T) {
	buf := buildBMP(2, 2, testPalette(), [][]uint8{{1, 1}, {2, 2}})
	binary.LittleEndian.PutUint32(buf[18:22], 400)

	_, err := Load(buf, nil)
	require.Error(t, err)
}

func TestLoadRejectsFileSizeMismatch(t *testing.T) {
	buf := buildBMP(2, 2, testPalette(), [][]uint8{{1, 1}, {2, 2}})
	binary.LittleEndian.PutUint32(buf[2:6], uint32(len(buf)+1))

	_, err := Load(buf, nil)
	require.Error(t, err)
}
