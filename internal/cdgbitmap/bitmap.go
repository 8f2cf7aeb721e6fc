// Package cdgbitmap implements the arbitrary-size indexed bitmap that
// bitmap-payload events place into the compositor.
package cdgbitmap

import "fmt"

// TransparentNone indicates a bitmap carries no transparent index: every
// pixel overwrites the compositor layer it is painted onto.
const TransparentNone = -1

// Bitmap is a width x height grid of 8-bit palette indices, attached to a
// 256-entry source palette (only the first 16 entries are CD+G-reachable).
type Bitmap struct {
	Width, Height int
	Pixels        []uint8 // row-major, len == Width*Height
	Palette       [256][3]uint8

	FillIndex        uint8 // color for reads outside the bitmap
	TransparentIndex int   // TransparentNone, or 0-255
	OffsetX, OffsetY int   // placement in framebuffer pixels
	Layer            int   // 0-7
}

// New allocates a bitmap of the given dimensions, filled with fillIndex.
func New(width, height int, fillIndex uint8) (*Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("cdgbitmap: invalid dimensions %dx%d", width, height)
	}
	b := &Bitmap{
		Width:            width,
		Height:           height,
		Pixels:           make([]uint8, width*height),
		FillIndex:        fillIndex,
		TransparentIndex: TransparentNone,
	}
	for i := range b.Pixels {
		b.Pixels[i] = fillIndex
	}
	return b, nil
}

// At returns the palette index at (x, y), or FillIndex if out of bounds.
func (b *Bitmap) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return b.FillIndex
	}
	return b.Pixels[y*b.Width+x]
}

// Set assigns the palette index at (x, y).
func (b *Bitmap) Set(x, y int, index uint8) error {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return fmt.Errorf("cdgbitmap: pixel (%d,%d) out of bounds for %dx%d bitmap", x, y, b.Width, b.Height)
	}
	b.Pixels[y*b.Width+x] = index
	return nil
}

// IsTransparent reports whether the palette index at (x, y) matches the
// bitmap's declared transparent index (if any).
func (b *Bitmap) IsTransparent(x, y int) bool {
	if b.TransparentIndex == TransparentNone {
		return false
	}
	return int(b.At(x, y)) == b.TransparentIndex
}

// Validate checks the invariants §3 requires of a fully constructed bitmap.
func (b *Bitmap) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("cdgbitmap: invalid dimensions %dx%d", b.Width, b.Height)
	}
	if len(b.Pixels) != b.Width*b.Height {
		return fmt.Errorf("cdgbitmap: pixel buffer length %d does not match %dx%d", len(b.Pixels), b.Width, b.Height)
	}
	if b.Layer < 0 || b.Layer > 7 {
		return fmt.Errorf("cdgbitmap: layer %d out of range 0-7", b.Layer)
	}
	if b.TransparentIndex != TransparentNone && (b.TransparentIndex < 0 || b.TransparentIndex > 255) {
		return fmt.Errorf("cdgbitmap: transparent index %d out of range", b.TransparentIndex)
	}
	return nil
}
