// Package cdgbmp loads Windows v3 8-bit indexed BMP files into cdgbitmap
// bitmaps, validating the on-disk header the way spec.md §4.6 requires:
// one typed error per failing check, no partial mutation on failure.
package cdgbmp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"

	// Pixel decode is delegated to gobmp once our own header validation
	// passes, so a load failure is attributable to our own named checks
	// first and gobmp only ever sees a buffer we already trust.
	"github.com/jsummers/gobmp"

	"cdgforge/internal/cdgbitmap"
	"cdgforge/internal/obslog"
)

// InvalidBmpError names exactly which validation check failed, per the
// spec's InvalidBmp(reason) error kind.
type InvalidBmpError struct {
	Reason string
}

func (e *InvalidBmpError) Error() string {
	return fmt.Sprintf("cdgbmp: invalid BMP: %s", e.Reason)
}

func invalid(reason string, args ...any) error {
	return &InvalidBmpError{Reason: fmt.Sprintf(reason, args...)}
}

func logErr(logger *obslog.Logger, err error) error {
	if logger != nil && err != nil {
		logger.Log(obslog.ComponentLoader, obslog.LevelError, err.Error(), nil)
	}
	return err
}

const (
	fileHeaderSize = 14
	dibHeaderSizeV3 = 40
	maxWidth        = 320
	maxHeight       = 240
)

// bmpHeader captures the fields of the BITMAPFILEHEADER + BITMAPINFOHEADER
// this loader validates before trusting the buffer to a pixel decoder.
type bmpHeader struct {
	fileSize      uint32
	pixelDataOff  uint32
	dibHeaderSize uint32
	width         int32
	height        int32
	planes        uint16
	bpp           uint16
	compression   uint32
	paletteCount  uint32
}

func parseHeader(data []byte) (*bmpHeader, error) {
	if len(data) < fileHeaderSize+dibHeaderSizeV3 {
		return nil, invalid("buffer too short for BMP headers (%d bytes)", len(data))
	}
	if data[0] != 'B' || data[1] != 'M' {
		return nil, invalid("missing 'BM' magic")
	}

	h := &bmpHeader{
		fileSize:      binary.LittleEndian.Uint32(data[2:6]),
		pixelDataOff:  binary.LittleEndian.Uint32(data[10:14]),
		dibHeaderSize: binary.LittleEndian.Uint32(data[14:18]),
		width:         int32(binary.LittleEndian.Uint32(data[18:22])),
		height:        int32(binary.LittleEndian.Uint32(data[22:26])),
		planes:        binary.LittleEndian.Uint16(data[26:28]),
		bpp:           binary.LittleEndian.Uint16(data[28:30]),
		compression:   binary.LittleEndian.Uint32(data[30:34]),
		paletteCount:  binary.LittleEndian.Uint32(data[46:50]),
	}

	if int(h.fileSize) != len(data) {
		return nil, invalid("file-size field %d does not match buffer length %d", h.fileSize, len(data))
	}
	if h.dibHeaderSize != dibHeaderSizeV3 {
		return nil, invalid("unsupported DIB header size %d, want %d (Windows v3)", h.dibHeaderSize, dibHeaderSizeV3)
	}
	width := absInt32(h.width)
	height := absInt32(h.height)
	if width < 1 || width > maxWidth {
		return nil, invalid("width %d out of range 1-%d", width, maxWidth)
	}
	if height < 1 || height > maxHeight {
		return nil, invalid("height %d out of range 1-%d", height, maxHeight)
	}
	if h.planes != 1 {
		return nil, invalid("unsupported color plane count %d, want 1", h.planes)
	}
	if h.bpp != 8 {
		return nil, invalid("unsupported bit depth %d, want 8", h.bpp)
	}
	if h.compression != 0 {
		return nil, invalid("unsupported compression %d, want 0 (BI_RGB)", h.compression)
	}
	if h.paletteCount != 0 && h.paletteCount != 256 {
		return nil, invalid("unsupported palette entry count %d, want 0 or 256", h.paletteCount)
	}

	pixelDataLen := len(data) - int(h.pixelDataOff)
	if pixelDataLen < width*height {
		return nil, invalid("pixel data length %d shorter than %dx%d", pixelDataLen, width, height)
	}

	return h, nil
}

func absInt32(v int32) int {
	if v < 0 {
		return int(-v)
	}
	return int(v)
}

// Load validates buf as a Windows v3 8-bit indexed BMP and decodes it into
// a cdgbitmap.Bitmap. Y-axis inversion (BMP stores the bottom row first)
// is applied so output row 0 is the visual top row. logger may be nil; when
// set, a failing call logs at obslog.LevelError before returning.
func Load(buf []byte, logger *obslog.Logger) (*cdgbitmap.Bitmap, error) {
	header, err := parseHeader(buf)
	if err != nil {
		return nil, logErr(logger, err)
	}

	img, err := gobmp.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, logErr(logger, invalid("pixel decode failed: %v", err))
	}

	width := absInt32(header.width)
	height := absInt32(header.height)

	out, newErr := cdgbitmap.New(width, height, 0)
	if newErr != nil {
		return nil, logErr(logger, invalid("%v", newErr))
	}
	out.TransparentIndex = cdgbitmap.TransparentNone

	if pal, ok := img.(*image.Paletted); ok {
		for i := 0; i < 256 && i < len(pal.Palette); i++ {
			r, g, b, _ := pal.Palette[i].RGBA()
			out.Palette[i] = [3]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
		}
		for y := 0; y < height; y++ {
			// gobmp/image already deliver row 0 = visual top, so no
			// additional flip is needed here: the file's bottom-up storage
			// was already corrected by the decoder. We still reason about
			// this explicitly because the spec treats Y-inversion as a
			// loader responsibility, not an implicit library detail.
			for x := 0; x < width; x++ {
				idx := pal.ColorIndexAt(x, y)
				_ = out.Set(x, y, idx)
			}
		}
		return out, nil
	}

	// Fallback for a decoder that returns a non-Paletted image.Image:
	// build a palette from first-seen colors and nearest-match the rest.
	seen := map[color.RGBA]uint8{}
	next := uint8(0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			c := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
			idx, ok := seen[c]
			if !ok {
				if int(next) >= 256 {
					idx = nearestPaletteIndex(out, c)
				} else {
					idx = next
					out.Palette[idx] = [3]uint8{c.R, c.G, c.B}
					seen[c] = idx
					next++
				}
			}
			_ = out.Set(x, y, idx)
		}
	}
	return out, nil
}

func nearestPaletteIndex(b *cdgbitmap.Bitmap, c color.RGBA) uint8 {
	best := uint8(0)
	bestDist := -1
	for i := 0; i < 256; i++ {
		p := b.Palette[i]
		dr := int(p[0]) - int(c.R)
		dg := int(p[1]) - int(c.G)
		db := int(p[2]) - int(c.B)
		dist := dr*dr + dg*dg + db*db
		if bestDist == -1 || dist < bestDist {
			bestDist = dist
			best = uint8(i)
		}
	}
	return best
}
