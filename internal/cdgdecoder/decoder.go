// Package cdgdecoder replays a stream of cdgpacket.Packet values against a
// 300x216 indexed framebuffer, maintaining palette, border, and transparent
// index state exactly as a CD+G player would. It exists primarily to let
// tests assert the encoder's output round-trips to the intended pixels.
package cdgdecoder

import (
	"fmt"

	"cdgforge/internal/cdgpacket"
	"cdgforge/internal/cdgpalette"
	"cdgforge/internal/cdgtile"
	"cdgforge/internal/obslog"
)

const (
	screenWidth  = cdgtile.ColumnsPerRow * cdgtile.Width
	screenHeight = cdgtile.RowsPerScreen * cdgtile.Height
)

// Decoder holds the full replayed state of a CD+G graphics stream.
type Decoder struct {
	framebuffer [screenHeight][screenWidth]uint8
	palette     *cdgpalette.Palette
	border      uint8
	transparent int // -1 if undefined
	hOffset     int
	vOffset     int
	logger      *obslog.Logger
}

// New returns a decoder with a black framebuffer, black palette, and no
// transparent index defined.
func New() *Decoder {
	return &Decoder{
		palette:     cdgpalette.New(),
		transparent: -1,
	}
}

// SetLogger attaches a logger that receives an Error-level entry whenever a
// fallible method below returns an error. Passing nil disables logging.
func (d *Decoder) SetLogger(logger *obslog.Logger) {
	d.logger = logger
}

func (d *Decoder) logError(err error) error {
	if d.logger != nil && err != nil {
		d.logger.Log(obslog.ComponentDecoder, obslog.LevelError, err.Error(), nil)
	}
	return err
}

// Palette returns the decoder's current 16-entry CLUT.
func (d *Decoder) Palette() *cdgpalette.Palette {
	return d.palette
}

// BorderColor returns the current border palette index.
func (d *Decoder) BorderColor() uint8 {
	return d.border
}

// Pixel returns the palette index currently at framebuffer pixel (x, y).
func (d *Decoder) Pixel(x, y int) (uint8, error) {
	if x < 0 || x >= screenWidth || y < 0 || y >= screenHeight {
		return 0, d.logError(fmt.Errorf("cdgdecoder: pixel (%d,%d) out of bounds", x, y))
	}
	return d.framebuffer[y][x], nil
}

// Tile returns the 12x6 block of palette indices at tile grid position
// (col, row), for comparing against an cdgtile.Tile a test built by hand.
func (d *Decoder) Tile(col, row int) (cdgtile.Tile, error) {
	pos := cdgtile.Position{Col: col, Row: row}
	if err := pos.Validate(); err != nil {
		return cdgtile.Tile{}, d.logError(err)
	}
	var t cdgtile.Tile
	baseX, baseY := col*cdgtile.Width, row*cdgtile.Height
	for y := 0; y < cdgtile.Height; y++ {
		for x := 0; x < cdgtile.Width; x++ {
			t[y][x] = d.framebuffer[baseY+y][baseX+x]
		}
	}
	return t, nil
}

// Apply replays a single packet against the decoder's state. Unknown or
// empty packets are silently ignored, matching real CD+G player behavior.
func (d *Decoder) Apply(p cdgpacket.Packet) error {
	if p.Empty() {
		return nil
	}
	switch p.Instruction() {
	case cdgpacket.MemoryPreset:
		d.applyMemoryPreset(p)
	case cdgpacket.BorderPreset:
		d.border = p.BorderPresetColor()
	case cdgpacket.DefineTransparent:
		d.transparent = int(p.DefineTransparentColor())
	case cdgpacket.LoadCLUTLo:
		d.palette.LoadCLUTLo(p.CLUTEntries())
	case cdgpacket.LoadCLUTHi:
		d.palette.LoadCLUTHi(p.CLUTEntries())
	case cdgpacket.CopyFont:
		return d.applyTile(p, false)
	case cdgpacket.XorFont:
		return d.applyTile(p, true)
	case cdgpacket.ScrollPreset, cdgpacket.ScrollCopy:
		d.applyScroll(p)
	}
	return nil
}

// ApplyAll replays a whole packet stream in order.
func (d *Decoder) ApplyAll(packets []cdgpacket.Packet) error {
	for i, p := range packets {
		if err := d.Apply(p); err != nil {
			return fmt.Errorf("cdgdecoder: packet %d: %w", i, err)
		}
	}
	return nil
}

func (d *Decoder) applyMemoryPreset(p cdgpacket.Packet) {
	c := p.MemoryPresetColor()
	for y := 0; y < screenHeight; y++ {
		for x := 0; x < screenWidth; x++ {
			d.framebuffer[y][x] = c
		}
	}
}

func (d *Decoder) applyTile(p cdgpacket.Packet, xor bool) error {
	color0, color1 := p.TileColors()
	row, col := p.TilePosition()
	if int(row) >= cdgtile.RowsPerScreen || int(col) >= cdgtile.ColumnsPerRow {
		return d.logError(fmt.Errorf("cdgdecoder: tile position (%d,%d) out of range", col, row))
	}
	mask := p.TileMaskRows()
	baseX, baseY := int(col)*cdgtile.Width, int(row)*cdgtile.Height
	for my := 0; my < cdgtile.TileRows; my++ {
		bits := mask[my]
		for bx := 0; bx < cdgtile.Width; bx++ {
			set := bits&(1<<uint(cdgtile.Width-1-bx)) != 0
			x, y := baseX+bx, baseY+my
			if xor {
				chosen := color0
				if set {
					chosen = color1
				}
				d.framebuffer[y][x] ^= chosen
			} else {
				if set {
					d.framebuffer[y][x] = color1
				} else {
					d.framebuffer[y][x] = color0
				}
			}
		}
	}
	return nil
}

// applyScroll updates the accumulated scroll offsets used at render time.
// Per spec.md §4.4, SCROLL_PRESET/SCROLL_COPY never touch the stored
// framebuffer; both instructions only affect how the active area is sampled
// when rendering to RGB. The copy-vs-preset distinction (how the vacated
// edge is filled when a player physically shifts the display) is a render
// concern this decoder does not implement, since modulo sampling makes the
// two visually indistinguishable for a looping background.
func (d *Decoder) applyScroll(p cdgpacket.Packet) {
	h, v := p.ScrollDirections()
	d.hOffset += signedDelta(h.Command)
	d.vOffset += signedDelta(v.Command)
}

func signedDelta(command uint8) int {
	switch command {
	case 1:
		return 1
	case 2:
		return -1
	default:
		return 0
	}
}

// RenderedWidth and RenderedHeight are the full output raster dimensions,
// including the border gutter around the 288x192 active area.
const (
	RenderedWidth  = 312
	RenderedHeight = 216
)

// Render converts the current decoder state into a 312x216 RGBA raster:
// borders fill the outer gutter, and the 288x192 active area samples the
// framebuffer with wraparound scroll offsets applied, per spec.md §4.4.
func (d *Decoder) Render() ([RenderedHeight][RenderedWidth][3]uint8, error) {
	var out [RenderedHeight][RenderedWidth][3]uint8
	borderColor, err := d.palette.Get(int(d.border))
	if err != nil {
		return out, d.logError(err)
	}
	borderRGB := [3]uint8{borderColor.R, borderColor.G, borderColor.B}

	for y := 0; y < RenderedHeight; y++ {
		for x := 0; x < RenderedWidth; x++ {
			if y < 12 || y >= 204 || x < 6 || x >= 306 {
				out[y][x] = borderRGB
				continue
			}
			fbX := mod(x-6+d.hOffset, screenWidth)
			fbY := mod(y-12+d.vOffset, screenHeight)
			idx := d.framebuffer[fbY][fbX]
			c, err := d.palette.Get(int(idx))
			if err != nil {
				return out, d.logError(err)
			}
			out[y][x] = [3]uint8{c.R, c.G, c.B}
		}
	}
	return out, nil
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}
