// Package cdgtile implements the 6x12 CD+G tile and the minimal-packet
// encoder that turns a tile's pixels into COPY_FONT/XOR_FONT packets.
package cdgtile

import "fmt"

// Width and Height are the fixed dimensions of a CD+G tile in pixels.
const (
	Width  = 6
	Height = 12
)

// Transparent is the sentinel palette index (outside the 4-bit palette
// range) used for pixels that do not participate in compositing.
const Transparent = 16

// ColumnsPerRow and RowsPerScreen are the framebuffer's tile-grid dimensions
// (300x216 pixels == 50x18 tiles).
const (
	ColumnsPerRow = 50
	RowsPerScreen = 18
)

// Tile is a 6x12 block of palette indices (0-15) or Transparent.
type Tile [Height][Width]uint8

// Colors returns the set of distinct non-transparent palette indices
// present in the tile, in ascending index order.
func (t Tile) Colors() []uint8 {
	var seen [Transparent]bool
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			v := t[y][x]
			if v != Transparent {
				seen[v] = true
			}
		}
	}
	var out []uint8
	for i, s := range seen {
		if s {
			out = append(out, uint8(i))
		}
	}
	return out
}

// colorCounts returns, for each distinct non-transparent color, the number
// of pixels holding it.
func (t Tile) colorCounts() map[uint8]int {
	counts := make(map[uint8]int)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			v := t[y][x]
			if v != Transparent {
				counts[v]++
			}
		}
	}
	return counts
}

// rankedColors sorts colors by descending frequency, breaking ties by
// ascending palette index, per spec.md §4.3's tie-break rule.
func rankedColors(counts map[uint8]int) []uint8 {
	colors := make([]uint8, 0, len(counts))
	for c := range counts {
		colors = append(colors, c)
	}
	// simple insertion sort: the input is at most 16 elements
	for i := 1; i < len(colors); i++ {
		j := i
		for j > 0 && less(colors[j], colors[j-1], counts) {
			colors[j], colors[j-1] = colors[j-1], colors[j]
			j--
		}
	}
	return colors
}

func less(a, b uint8, counts map[uint8]int) bool {
	if counts[a] != counts[b] {
		return counts[a] > counts[b]
	}
	return a < b
}

// Position is a tile's coordinate within the 50x18 tile grid.
type Position struct {
	Col int // 0-49
	Row int // 0-17
}

// Validate reports whether the position is within the tile grid.
func (p Position) Validate() error {
	if p.Col < 0 || p.Col >= ColumnsPerRow {
		return fmt.Errorf("cdgtile: column %d out of range 0-%d", p.Col, ColumnsPerRow-1)
	}
	if p.Row < 0 || p.Row >= RowsPerScreen {
		return fmt.Errorf("cdgtile: row %d out of range 0-%d", p.Row, RowsPerScreen-1)
	}
	return nil
}
