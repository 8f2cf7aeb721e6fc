// Package cdgcompositor implements the 8-layer painter's-algorithm indexed
// framebuffer the scheduler composites bitmap/text events onto before
// handing tiles to the encoder.
package cdgcompositor

import (
	"fmt"

	"cdgforge/internal/cdgtile"
	"cdgforge/internal/obslog"
)

// Width, Height are the framebuffer's pixel dimensions (50x18 tiles).
const (
	Width  = cdgtile.ColumnsPerRow * cdgtile.Width
	Height = cdgtile.RowsPerScreen * cdgtile.Height
	Layers = 8
)

// transparentCell is the sentinel cell value meaning "this layer has not
// painted here" (spec.md §3's compositor-cell sentinel 256).
const transparentCell = uint16(cdgtile.Transparent) + 240 // 256, kept distinct from the 0-16 tile sentinel range

// Compositor holds the 8 x 300 x 216 indexed layer cube plus the preset
// (background) color shown where every layer is transparent.
type Compositor struct {
	cells  [Layers][Height][Width]uint16
	preset uint8
	logger *obslog.Logger
}

// New returns a compositor with every cell transparent and preset black (0).
func New() *Compositor {
	c := &Compositor{}
	c.clearAll()
	return c
}

// SetLogger attaches a logger that receives an Error-level entry whenever a
// fallible method below returns an error. Passing nil disables logging.
func (c *Compositor) SetLogger(logger *obslog.Logger) {
	c.logger = logger
}

func (c *Compositor) logError(err error) error {
	if c.logger != nil && err != nil {
		c.logger.Log(obslog.ComponentCompositor, obslog.LevelError, err.Error(), nil)
	}
	return err
}

func (c *Compositor) clearAll() {
	for z := 0; z < Layers; z++ {
		for y := 0; y < Height; y++ {
			for x := 0; x < Width; x++ {
				c.cells[z][y][x] = transparentCell
			}
		}
	}
}

// SetPresetColor sets the background color shown when all layers are
// transparent at a pixel.
func (c *Compositor) SetPresetColor(index uint8) error {
	if index > 15 {
		return c.logError(fmt.Errorf("cdgcompositor: preset color %d out of range 0-15", index))
	}
	c.preset = index
	return nil
}

// ClearLayer resets every cell of layer z to transparent.
func (c *Compositor) ClearLayer(z int) error {
	if z < 0 || z >= Layers {
		return c.logError(fmt.Errorf("cdgcompositor: layer %d out of range 0-%d", z, Layers-1))
	}
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			c.cells[z][y][x] = transparentCell
		}
	}
	return nil
}

// WritePixel writes a single cell of layer z. Pass cdgtile.Transparent (16)
// for colorOrTransparent to clear the cell back to transparent.
func (c *Compositor) WritePixel(x, y, z int, colorOrTransparent uint8) error {
	if z < 0 || z >= Layers {
		return c.logError(fmt.Errorf("cdgcompositor: layer %d out of range 0-%d", z, Layers-1))
	}
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return c.logError(fmt.Errorf("cdgcompositor: pixel (%d,%d) out of bounds", x, y))
	}
	if colorOrTransparent == cdgtile.Transparent {
		c.cells[z][y][x] = transparentCell
		return nil
	}
	if colorOrTransparent > 15 {
		return c.logError(fmt.Errorf("cdgcompositor: color %d out of range 0-15", colorOrTransparent))
	}
	c.cells[z][y][x] = uint16(colorOrTransparent)
	return nil
}

// WriteTile writes a 6x12 block of cells of layer z with its top-left
// corner at tile grid position (col, row).
func (c *Compositor) WriteTile(col, row, z int, cells cdgtile.Tile) error {
	pos := cdgtile.Position{Col: col, Row: row}
	if err := pos.Validate(); err != nil {
		return c.logError(err)
	}
	baseX, baseY := col*cdgtile.Width, row*cdgtile.Height
	for y := 0; y < cdgtile.Height; y++ {
		for x := 0; x < cdgtile.Width; x++ {
			if err := c.WritePixel(baseX+x, baseY+y, z, cells[y][x]); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadCompositedPixel scans layers 0..7 and returns the highest layer's
// non-transparent value, falling back to the preset color if all eight
// layers are transparent at (x, y).
func (c *Compositor) ReadCompositedPixel(x, y int) uint8 {
	for z := Layers - 1; z >= 0; z-- {
		v := c.cells[z][y][x]
		if v != transparentCell {
			return uint8(v)
		}
	}
	return c.preset
}

// ReadCompositedTile returns the fully resolved 6x12 tile at tile grid
// position (col, row), used by the scheduler to feed the tile encoder.
func (c *Compositor) ReadCompositedTile(col, row int) (cdgtile.Tile, error) {
	pos := cdgtile.Position{Col: col, Row: row}
	if err := pos.Validate(); err != nil {
		return cdgtile.Tile{}, c.logError(err)
	}
	var t cdgtile.Tile
	baseX, baseY := col*cdgtile.Width, row*cdgtile.Height
	for y := 0; y < cdgtile.Height; y++ {
		for x := 0; x < cdgtile.Width; x++ {
			t[y][x] = c.ReadCompositedPixel(baseX+x, baseY+y)
		}
	}
	return t, nil
}

// PresetColor returns the current background preset index.
func (c *Compositor) PresetColor() uint8 {
	return c.preset
}
