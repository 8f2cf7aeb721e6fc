// Package cdgpalette implements the CD+G 16-entry CLUT: RGBA8 storage with
// round-trip conversion to and from the wire's 4-bit-per-channel packing.
package cdgpalette

import (
	"fmt"
	"image/color"

	"cdgforge/internal/cdgpacket"
)

// Size is the number of entries in a CD+G palette.
const Size = 16

// InvalidIndexError is returned by Get/Set when an index falls outside 0-15.
type InvalidIndexError struct {
	Index int
}

func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("cdgpalette: index %d out of range 0-%d", e.Index, Size-1)
}

// Palette is a fixed 16-entry RGBA color table.
type Palette struct {
	entries [Size]color.RGBA
}

// New returns a palette with all entries initialized to opaque black.
func New() *Palette {
	p := &Palette{}
	for i := range p.entries {
		p.entries[i] = color.RGBA{A: 0xFF}
	}
	return p
}

// Get returns the RGBA color at index i.
func (p *Palette) Get(i int) (color.RGBA, error) {
	if i < 0 || i >= Size {
		return color.RGBA{}, &InvalidIndexError{Index: i}
	}
	return p.entries[i], nil
}

// Set assigns the RGBA color at index i.
func (p *Palette) Set(i int, c color.RGBA) error {
	if i < 0 || i >= Size {
		return &InvalidIndexError{Index: i}
	}
	p.entries[i] = c
	return nil
}

// quantizeChannel maps an 8-bit channel down to 4 bits, matching the
// decoder's expansion rule c*17 (replicate-nibble) so that quantize/expand
// round-trips bit-exactly after one pass: c -> c>>4 -> (c>>4)*17.
func quantizeChannel(c uint8) uint8 {
	return c >> 4
}

// expandChannel reverses quantizeChannel by replicating the nibble into
// both halves of the byte (equivalent to value * 17).
func expandChannel(nibble uint8) uint8 {
	n := nibble & 0x0F
	return n*16 + n
}

// packEntry packs one RGBA color into the two-byte wire form the decoder
// treats as authoritative: byte0 = (R&0xF)<<4 | (G&0xF), byte1 =
// (B&0xF)<<4. See DESIGN.md for why the low nibble of byte1 is left zero
// rather than reused for anything else.
func packEntry(c color.RGBA) [2]uint8 {
	r := quantizeChannel(c.R)
	g := quantizeChannel(c.G)
	b := quantizeChannel(c.B)
	return [2]uint8{
		(r&0x0F)<<4 | (g & 0x0F),
		(b & 0x0F) << 4,
	}
}

// unpackEntry is the inverse of packEntry, expanding the packed nibbles
// back to full 8-bit channels.
func unpackEntry(e [2]uint8) color.RGBA {
	r := (e[0] >> 4) & 0x0F
	g := e[0] & 0x0F
	b := (e[1] >> 4) & 0x0F
	return color.RGBA{
		R: expandChannel(r),
		G: expandChannel(g),
		B: expandChannel(b),
		A: 0xFF,
	}
}

// QuantizeToCDG packs the whole palette into the two 8-entry CLUT payloads
// (LOAD_CLUT_LO covers indices 0-7, LOAD_CLUT_HI covers 8-15).
func (p *Palette) QuantizeToCDG() (lo, hi cdgpacket.CLUTPayload) {
	for i := 0; i < 8; i++ {
		lo[i] = packEntry(p.entries[i])
	}
	for i := 0; i < 8; i++ {
		hi[i] = packEntry(p.entries[8+i])
	}
	return lo, hi
}

// LoadCLUTLo replaces palette entries 0-7 from a decoded CLUT payload.
func (p *Palette) LoadCLUTLo(entries cdgpacket.CLUTPayload) {
	for i, e := range entries {
		p.entries[i] = unpackEntry(e)
	}
}

// LoadCLUTHi replaces palette entries 8-15 from a decoded CLUT payload.
func (p *Palette) LoadCLUTHi(entries cdgpacket.CLUTPayload) {
	for i, e := range entries {
		p.entries[8+i] = unpackEntry(e)
	}
}

// Clone returns an independent copy of the palette.
func (p *Palette) Clone() *Palette {
	cp := *p
	return &cp
}
