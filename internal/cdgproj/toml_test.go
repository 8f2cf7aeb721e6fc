package cdgproj

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMinimalBMP returns a 1x1 Windows v3 8-bit indexed BMP whose single
// pixel is palette index idx.
func buildMinimalBMP(idx uint8) []byte {
	pixelDataOff := 14 + 40 + 256*4
	fileSize := pixelDataOff + 4 // one padded row of 4 bytes
	buf := make([]byte, fileSize)
	buf[0], buf[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(buf[2:6], uint32(fileSize))
	binary.LittleEndian.PutUint32(buf[10:14], uint32(pixelDataOff))
	binary.LittleEndian.PutUint32(buf[14:18], 40)
	binary.LittleEndian.PutUint32(buf[18:22], 1)
	binary.LittleEndian.PutUint32(buf[22:26], 1)
	binary.LittleEndian.PutUint16(buf[26:28], 1)
	binary.LittleEndian.PutUint16(buf[28:30], 8)
	binary.LittleEndian.PutUint32(buf[30:34], 0)
	binary.LittleEndian.PutUint32(buf[34:38], 4)
	buf[pixelDataOff] = idx
	return buf
}

type mapBmpReader map[string][]byte

func (m mapBmpReader) ReadBmp(path string) ([]byte, error) {
	return m[path], nil
}

const baseDoc = `
duration_seconds = 1.0
initial_palette = [
  [0,0,0],[255,0,0],[0,255,0],[0,0,255],
  [0,0,0],[0,0,0],[0,0,0],[0,0,0],
  [0,0,0],[0,0,0],[0,0,0],[0,0,0],
  [0,0,0],[0,0,0],[0,0,0],[0,0,0],
]
initial_border = 0
initial_clear_color = 0
initial_transparent = 0
`

func TestLoadParsesPaletteEvent(t *testing.T) {
	doc := baseDoc + `
[[event]]
track = 0
channel = 0
start_pack = 0
duration_pack = 10
border_index = 16
memory_preset_index = 16
palette = [
  [1,1,1],[2,2,2],[3,3,3],[4,4,4],
  [5,5,5],[6,6,6],[7,7,7],[8,8,8],
  [9,9,9],[10,10,10],[11,11,11],[12,12,12],
  [13,13,13],[14,14,14],[15,15,15],[16,16,16],
]
`
	p, err := Load([]byte(doc), nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, p.Events, 1)
	assert.Equal(t, PayloadPalette, p.Events[0].Payload.Kind)
	assert.NotNil(t, p.Events[0].Payload.Palette)
}

func TestLoadParsesScrollEvent(t *testing.T) {
	doc := baseDoc + `
[[event]]
track = 1
start_pack = 0
duration_pack = 1

[event.scroll]
copy = true
h_offset = 2
h_direction = 1
v_offset = 0
v_direction = 0
`
	p, err := Load([]byte(doc), nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, p.Events, 1)
	assert.Equal(t, PayloadScroll, p.Events[0].Payload.Kind)
	assert.True(t, p.Events[0].Payload.Scroll.Copy)
	assert.Equal(t, uint8(2), p.Events[0].Payload.Scroll.HOffset)
}

func TestLoadParsesClearEvent(t *testing.T) {
	doc := baseDoc + `
[[event]]
track = 2
start_pack = 0
duration_pack = 1
clear = true
`
	p, err := Load([]byte(doc), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, PayloadClear, p.Events[0].Payload.Kind)
}

func TestLoadParsesTextEvent(t *testing.T) {
	doc := baseDoc + `
[[event]]
track = 3
start_pack = 0
duration_pack = 1

[event.text]
value = "hi"
x = 0
y = 0
layer = 0
`
	p, err := Load([]byte(doc), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, PayloadText, p.Events[0].Payload.Kind)
	assert.Equal(t, "hi", p.Events[0].Payload.Text.Text)
}

func TestLoadBitmapEventDelegatesToReader(t *testing.T) {
	doc := baseDoc + `
[[event]]
track = 0
start_pack = 0
duration_pack = 1
bitmap_path = "sprite.bmp"
`
	reader := mapBmpReader{"sprite.bmp": buildMinimalBMP(3)}
	p, err := Load([]byte(doc), reader, nil, nil)
	require.NoError(t, err)
	require.Equal(t, PayloadBitmap, p.Events[0].Payload.Kind)
	assert.Equal(t, uint8(3), p.Events[0].Payload.Bitmap.At(0, 0))
}

func TestLoadRejectsEventWithNoPayloadVariant(t *testing.T) {
	doc := baseDoc + `
[[event]]
track = 0
start_pack = 0
duration_pack = 1
`
	_, err := Load([]byte(doc), nil, nil, nil)
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveDuration(t *testing.T) {
	doc := `
duration_seconds = 0
initial_palette = [[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0]]
`
	_, err := Load([]byte(doc), nil, nil, nil)
	assert.Error(t, err)
}

func TestLoadBitmapWithoutReaderErrors(t *testing.T) {
	doc := baseDoc + `
[[event]]
track = 0
start_pack = 0
duration_pack = 1
bitmap_path = "sprite.bmp"
`
	_, err := Load([]byte(doc), nil, nil, nil)
	assert.Error(t, err)
}
