// Package fixturefont implements a deterministic GlyphSource for tests and
// demos: every ASCII byte other than space renders to the same fixed 6x12
// solid block (space renders fully transparent), sized
// to exactly one CD+G tile so the scheduler never has to scale or clip it.
package fixturefont

import (
	"cdgforge/internal/cdgbitmap"
	"cdgforge/internal/cdgproj"
	"cdgforge/internal/cdgtile"
)

// Source is a GlyphSource that paints every character as a solid block of
// Color, except the space character (0x20) which renders fully transparent.
type Source struct {
	Color uint8
}

var _ cdgproj.GlyphSource = Source{}

// Render implements cdgproj.GlyphSource.
func (s Source) Render(ch byte) (*cdgbitmap.Bitmap, error) {
	fill := s.Color
	if ch == ' ' {
		fill = cdgtile.Transparent
	}
	b, err := cdgbitmap.New(cdgtile.Width, cdgtile.Height, fill)
	if err != nil {
		return nil, err
	}
	if fill == cdgtile.Transparent {
		b.TransparentIndex = int(cdgtile.Transparent)
	}
	return b, nil
}
