// Package cdgproj defines the in-memory project model the scheduler
// consumes, and loads it from the TOML project file format chosen in
// SPEC_FULL.md §6.3a.
package cdgproj

import (
	"fmt"
	"image/color"

	"cdgforge/internal/cdgbitmap"
	"cdgforge/internal/cdgpalette"
)

// PresetNone is the Event preset-field sentinel meaning "do not emit a
// preset packet for this event" (spec.md §3).
const PresetNone = 16

// PayloadKind discriminates the Event.Payload union.
type PayloadKind int

const (
	PayloadBitmap PayloadKind = iota
	PayloadPalette
	PayloadScroll
	PayloadClear
	PayloadText
)

// ScrollPayload requests a scroll instruction at the event's start pack.
type ScrollPayload struct {
	Copy       bool // SCROLL_COPY if true, else SCROLL_PRESET
	HOffset    uint8
	HDirection uint8 // 0 none, 1 right, 2 left
	VOffset    uint8
	VDirection uint8 // 0 none, 1 down, 2 up
}

// TextPayload rasterizes a string through a GlyphSource into per-character
// bitmaps, per SPEC_FULL.md §4.13.
type TextPayload struct {
	Text   string
	X, Y   int
	Layer  int
	Glyphs GlyphSource
}

// GlyphSource renders a single character into a 6x12-pixel bitmap ready to
// place in the compositor, per SPEC_FULL.md §4.13.
type GlyphSource interface {
	Render(ch byte) (*cdgbitmap.Bitmap, error)
}

// Payload is the tagged union of what an Event paints.
type Payload struct {
	Kind    PayloadKind
	Bitmap  *cdgbitmap.Bitmap // PayloadBitmap
	Palette *cdgpalette.Palette // PayloadPalette
	Scroll  ScrollPayload     // PayloadScroll
	Text    TextPayload       // PayloadText
}

// Event is one scheduled unit of work, per spec.md §3.
type Event struct {
	StartOffsetPacks  uint32
	DurationPacks     uint32
	Payload           Payload
	BorderIndex       uint8 // 0-15, or PresetNone
	MemoryPresetIndex uint8 // 0-15, or PresetNone
	Track             uint8 // 0-7
	Channel           uint8 // 0-15
}

// EndPack is the exclusive end of the event's pack range.
func (e Event) EndPack() uint32 {
	return e.StartOffsetPacks + e.DurationPacks
}

// Project is the fully loaded, immutable description the scheduler renders.
type Project struct {
	DurationSeconds   float64
	Events            []Event
	InitialPalette    *cdgpalette.Palette
	InitialBorder     uint8
	InitialClearColor uint8
	InitialTransparent uint8
}

// TotalPacks returns ceil(duration_seconds * 300), per spec.md §3.
func (p *Project) TotalPacks() uint32 {
	packs := p.DurationSeconds * 300
	whole := uint32(packs)
	if float64(whole) < packs {
		whole++
	}
	return whole
}

// Validate checks structural invariants not already enforced at construction.
func (p *Project) Validate() error {
	if p.DurationSeconds <= 0 {
		return fmt.Errorf("cdgproj: duration_seconds must be positive, got %v", p.DurationSeconds)
	}
	if p.InitialPalette == nil {
		return fmt.Errorf("cdgproj: initial palette is required")
	}
	for i, e := range p.Events {
		if e.BorderIndex > PresetNone || e.MemoryPresetIndex > PresetNone {
			return fmt.Errorf("cdgproj: event %d: preset index out of range 0-%d", i, PresetNone)
		}
		if e.Track > 7 {
			return fmt.Errorf("cdgproj: event %d: track %d out of range 0-7", i, e.Track)
		}
		if e.Channel > 15 {
			return fmt.Errorf("cdgproj: event %d: channel %d out of range 0-15", i, e.Channel)
		}
	}
	return nil
}

func rgbFromTriple(t [3]int) color.RGBA {
	return color.RGBA{R: uint8(t[0]), G: uint8(t[1]), B: uint8(t[2]), A: 0xFF}
}
