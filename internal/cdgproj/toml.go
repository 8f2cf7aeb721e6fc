package cdgproj

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"cdgforge/internal/cdgbmp"
	"cdgforge/internal/cdgpalette"
	"cdgforge/internal/obslog"
)

// tomlDocument mirrors SPEC_FULL.md §6.3a's on-disk project format.
type tomlDocument struct {
	DurationSeconds    float64     `toml:"duration_seconds"`
	InitialPalette     [16][3]int  `toml:"initial_palette"`
	InitialBorder      int         `toml:"initial_border"`
	InitialClearColor  int         `toml:"initial_clear_color"`
	InitialTransparent int         `toml:"initial_transparent"`
	Event              []tomlEvent `toml:"event"`
}

type tomlEvent struct {
	Track             int    `toml:"track"`
	Channel           int    `toml:"channel"`
	StartPack         uint32 `toml:"start_pack"`
	DurationPack      uint32 `toml:"duration_pack"`
	BorderIndex       int    `toml:"border_index"`
	MemoryPresetIndex int    `toml:"memory_preset_index"`

	BitmapPath string      `toml:"bitmap_path"`
	Palette    *[16][3]int `toml:"palette"`
	Scroll     *tomlScroll `toml:"scroll"`
	Clear      *bool       `toml:"clear"`
	Text       *tomlText   `toml:"text"`
}

type tomlScroll struct {
	Copy       bool  `toml:"copy"`
	HOffset    uint8 `toml:"h_offset"`
	HDirection uint8 `toml:"h_direction"`
	VOffset    uint8 `toml:"v_offset"`
	VDirection uint8 `toml:"v_direction"`
}

type tomlText struct {
	Value string `toml:"value"`
	X     int    `toml:"x"`
	Y     int    `toml:"y"`
	Layer int    `toml:"layer"`
}

// BmpReader abstracts reading a bitmap file's bytes, so Load's caller
// can supply a real filesystem or, in tests, an in-memory map.
type BmpReader interface {
	ReadBmp(path string) ([]byte, error)
}

// Load parses a TOML document already read into memory, resolving any
// bitmap_path references through reader. glyphs is used for text events;
// pass nil if the project has none. logger may be nil; when set, loading a
// referenced bitmap that fails validation logs at obslog.LevelError.
func Load(data []byte, reader BmpReader, glyphs GlyphSource, logger *obslog.Logger) (*Project, error) {
	var doc tomlDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("cdgproj: parse: %w", err)
	}

	pal := cdgpalette.New()
	for i, triple := range doc.InitialPalette {
		if triple == [3]int{} {
			continue
		}
		if err := pal.Set(i, rgbFromTriple(triple)); err != nil {
			return nil, fmt.Errorf("cdgproj: initial_palette[%d]: %w", i, err)
		}
	}

	p := &Project{
		DurationSeconds:    doc.DurationSeconds,
		InitialPalette:     pal,
		InitialBorder:      uint8(doc.InitialBorder),
		InitialClearColor:  uint8(doc.InitialClearColor),
		InitialTransparent: uint8(doc.InitialTransparent),
	}

	for i, te := range doc.Event {
		ev, err := buildEvent(te, reader, glyphs, logger)
		if err != nil {
			return nil, fmt.Errorf("cdgproj: event[%d]: %w", i, err)
		}
		p.Events = append(p.Events, ev)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func buildEvent(te tomlEvent, reader BmpReader, glyphs GlyphSource, logger *obslog.Logger) (Event, error) {
	ev := Event{
		StartOffsetPacks:  te.StartPack,
		DurationPacks:     te.DurationPack,
		BorderIndex:       uint8(te.BorderIndex),
		MemoryPresetIndex: uint8(te.MemoryPresetIndex),
		Track:             uint8(te.Track),
		Channel:           uint8(te.Channel),
	}

	switch {
	case te.BitmapPath != "":
		if reader == nil {
			return Event{}, fmt.Errorf("no bitmap reader configured for bitmap_path %q", te.BitmapPath)
		}
		raw, err := reader.ReadBmp(te.BitmapPath)
		if err != nil {
			return Event{}, fmt.Errorf("reading %q: %w", te.BitmapPath, err)
		}
		bmp, err := cdgbmp.Load(raw, logger)
		if err != nil {
			return Event{}, fmt.Errorf("loading %q: %w", te.BitmapPath, err)
		}
		ev.Payload = Payload{Kind: PayloadBitmap, Bitmap: bmp}
	case te.Palette != nil:
		pal := cdgpalette.New()
		for i, triple := range *te.Palette {
			if err := pal.Set(i, rgbFromTriple(triple)); err != nil {
				return Event{}, err
			}
		}
		ev.Payload = Payload{Kind: PayloadPalette, Palette: pal}
	case te.Scroll != nil:
		ev.Payload = Payload{Kind: PayloadScroll, Scroll: ScrollPayload{
			Copy:       te.Scroll.Copy,
			HOffset:    te.Scroll.HOffset,
			HDirection: te.Scroll.HDirection,
			VOffset:    te.Scroll.VOffset,
			VDirection: te.Scroll.VDirection,
		}}
	case te.Clear != nil && *te.Clear:
		ev.Payload = Payload{Kind: PayloadClear}
	case te.Text != nil:
		ev.Payload = Payload{Kind: PayloadText, Text: TextPayload{
			Text:   te.Text.Value,
			X:      te.Text.X,
			Y:      te.Text.Y,
			Layer:  te.Text.Layer,
			Glyphs: glyphs,
		}}
	default:
		return Event{}, fmt.Errorf("no payload variant set (need one of bitmap_path/palette/scroll/clear/text)")
	}

	return ev, nil
}
