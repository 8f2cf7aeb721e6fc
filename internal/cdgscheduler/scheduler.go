// Package cdgscheduler turns a project's event timeline into a dense packet
// stream, per spec.md §4.8.
package cdgscheduler

import (
	"fmt"

	"cdgforge/internal/cdgbitmap"
	"cdgforge/internal/cdgcompositor"
	"cdgforge/internal/cdgpacket"
	"cdgforge/internal/cdgpalette"
	"cdgforge/internal/cdgproj"
	"cdgforge/internal/cdgtile"
	"cdgforge/internal/cdgtimeline"
	"cdgforge/internal/obslog"
)

// OverbudgetError reports that the scheduler ran out of pack slots while
// placing an event's packets.
type OverbudgetError struct {
	EventIndex int
	Track      uint8
	Reason     string
}

func (e *OverbudgetError) Error() string {
	return fmt.Sprintf("cdgscheduler: overbudget on event %d (track %d): %s", e.EventIndex, e.Track, e.Reason)
}

// InvalidEventError reports an event the scheduler cannot place as given.
type InvalidEventError struct {
	EventIndex int
	Reason     string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("cdgscheduler: invalid event %d: %s", e.EventIndex, e.Reason)
}

// Options configures a Schedule call.
type Options struct {
	InitialPalette           *cdgpalette.Palette
	InitialBorder            uint8
	InitialClearColor        uint8
	InitialTransparent       uint8
	PackBudgetPerBitmapEvent uint32 // not read by Schedule: a bitmap event's packets are bounded only by its duration
	RepeatIntervalPacks      uint32 // 0 disables the repetition policy
	Logger                   *obslog.Logger
}

// EventReport is per-event bookkeeping the CLI's verbose flag prints.
type EventReport struct {
	EventIndex      int
	Track           uint8
	PacketsBudgeted uint32
	PacketsUsed     int
}

// Schedule renders timeline into a dense stream of exactly totalPacks
// packets, per spec.md §4.8's algorithm.
func Schedule(timeline *cdgtimeline.Timeline, totalPacks uint32, opts Options) ([]cdgpacket.Packet, []EventReport, error) {
	logErr := func(err error) error {
		if opts.Logger != nil && err != nil {
			opts.Logger.Log(obslog.ComponentScheduler, obslog.LevelError, err.Error(), nil)
		}
		return err
	}

	if opts.InitialPalette == nil {
		return nil, nil, logErr(fmt.Errorf("cdgscheduler: initial palette is required"))
	}

	packets := make([]cdgpacket.Packet, totalPacks)
	occupied := make([]bool, totalPacks)
	comp := cdgcompositor.New()
	comp.SetLogger(opts.Logger)
	if err := comp.SetPresetColor(opts.InitialClearColor); err != nil {
		return nil, nil, logErr(err)
	}

	place := func(slot int, p cdgpacket.Packet) {
		packets[slot] = p
		occupied[slot] = true
	}

	// Step 1: five-packet prelude at slots 0..4.
	if totalPacks < 5 {
		return nil, nil, logErr(&OverbudgetError{Reason: fmt.Sprintf("total_packs %d too small for 5-packet prelude", totalPacks)})
	}
	lo, hi := opts.InitialPalette.QuantizeToCDG()
	place(0, cdgpacket.NewCLUT(true, lo))
	place(1, cdgpacket.NewCLUT(false, hi))
	borderPkt, err := cdgpacket.NewBorderPreset(opts.InitialBorder)
	if err != nil {
		return nil, nil, logErr(err)
	}
	place(2, borderPkt)
	memPkt, err := cdgpacket.NewMemoryPreset(opts.InitialClearColor, 0)
	if err != nil {
		return nil, nil, logErr(err)
	}
	place(3, memPkt)
	transPkt, err := cdgpacket.NewDefineTransparent(opts.InitialTransparent)
	if err != nil {
		return nil, nil, logErr(err)
	}
	place(4, transPkt)

	findSlot := func(from, limit int) (int, bool) {
		for s := from; s < limit && s < len(occupied); s++ {
			if !occupied[s] {
				return s, true
			}
		}
		return 0, false
	}

	var reports []EventReport
	events := timeline.AllSortedByStart()

	for idx, ev := range events {
		start := int(ev.StartOffsetPacks)
		limit := int(ev.EndPack())
		if limit > len(packets) {
			return nil, nil, logErr(&OverbudgetError{EventIndex: idx, Track: ev.Track, Reason: "event extends past total_packs"})
		}

		used := 0

		// Ordering within an event, per spec.md §4.8: CLUT before border
		// before memory-preset before scroll before tile packets. A
		// PayloadPalette's CLUT_LO/CLUT_HI packets must therefore be placed
		// before this event's border/memory-preset packets, so palette and
		// preset changes on the same event land in the wire-correct order.
		if ev.Payload.Kind == cdgproj.PayloadPalette {
			clutUsed, err := scheduleClut(ev, idx, start, limit, findSlot, place)
			if err != nil {
				return nil, nil, logErr(err)
			}
			used += clutUsed
		}

		// a. border
		if ev.BorderIndex < cdgproj.PresetNone {
			pkt, err := cdgpacket.NewBorderPreset(ev.BorderIndex)
			if err != nil {
				return nil, nil, logErr(&InvalidEventError{EventIndex: idx, Reason: err.Error()})
			}
			if !occupied[start] {
				place(start, pkt)
				used++
			} else if slot, ok := findSlot(start, limit); ok {
				place(slot, pkt)
				used++
			} else {
				return nil, nil, logErr(&OverbudgetError{EventIndex: idx, Track: ev.Track, Reason: "no free slot for border preset"})
			}
		}

		// b. memory preset
		if ev.MemoryPresetIndex < cdgproj.PresetNone {
			slot, ok := findSlot(start, limit)
			if !ok {
				return nil, nil, logErr(&OverbudgetError{EventIndex: idx, Track: ev.Track, Reason: "no free slot for memory preset"})
			}
			pkt, err := cdgpacket.NewMemoryPreset(ev.MemoryPresetIndex, 0)
			if err != nil {
				return nil, nil, logErr(&InvalidEventError{EventIndex: idx, Reason: err.Error()})
			}
			place(slot, pkt)
			used++
			if err := comp.SetPresetColor(ev.MemoryPresetIndex); err != nil {
				return nil, nil, logErr(err)
			}
		}

		// c/d/e. payload-specific packets (palette already handled above)
		payloadUsed, err := schedulePayload(comp, ev, idx, start, limit, findSlot, place, opts.Logger)
		if err != nil {
			return nil, nil, logErr(err)
		}
		used += payloadUsed

		reports = append(reports, EventReport{
			EventIndex:      idx,
			Track:           ev.Track,
			PacketsBudgeted: ev.DurationPacks,
			PacketsUsed:     used,
		})
	}

	if opts.RepeatIntervalPacks > 0 {
		applyRepetition(packets, occupied, opts.RepeatIntervalPacks)
	}

	return packets, reports, nil
}

// scheduleClut places an event's PayloadPalette CLUT_LO/CLUT_HI packets.
// Called ahead of border/memory-preset reservation so those packets never
// land earlier in the wire stream than this event's CLUT, per spec.md
// §4.8's ordering rule.
func scheduleClut(
	ev cdgproj.Event,
	idx, start, limit int,
	findSlot func(from, limit int) (int, bool),
	place func(slot int, p cdgpacket.Packet),
) (int, error) {
	if ev.Payload.Palette == nil {
		return 0, &InvalidEventError{EventIndex: idx, Reason: "palette payload missing palette"}
	}
	lo, hi := ev.Payload.Palette.QuantizeToCDG()
	slot, ok := findSlot(start, limit)
	if !ok {
		return 0, &OverbudgetError{EventIndex: idx, Track: ev.Track, Reason: "no free slot for CLUT_LO"}
	}
	place(slot, cdgpacket.NewCLUT(true, lo))
	used := 1
	slot2, ok := findSlot(slot+1, limit)
	if !ok {
		return used, &OverbudgetError{EventIndex: idx, Track: ev.Track, Reason: "no free slot for CLUT_HI"}
	}
	place(slot2, cdgpacket.NewCLUT(false, hi))
	used++
	return used, nil
}

func schedulePayload(
	comp *cdgcompositor.Compositor,
	ev cdgproj.Event,
	idx, start, limit int,
	findSlot func(from, limit int) (int, bool),
	place func(slot int, p cdgpacket.Packet),
	logger *obslog.Logger,
) (int, error) {
	switch ev.Payload.Kind {
	case cdgproj.PayloadPalette:
		// Handled by scheduleClut before border/memory-preset reservation.
		return 0, nil

	case cdgproj.PayloadScroll:
		slot, ok := findSlot(start, limit)
		if !ok {
			return 0, &OverbudgetError{EventIndex: idx, Track: ev.Track, Reason: "no free slot for scroll"}
		}
		s := ev.Payload.Scroll
		h := cdgpacket.ScrollDirection{Offset: s.HOffset, Command: s.HDirection}
		v := cdgpacket.ScrollDirection{Offset: s.VOffset, Command: s.VDirection}
		place(slot, cdgpacket.NewScroll(s.Copy, h, v))
		return 1, nil

	case cdgproj.PayloadClear:
		layer := int(ev.Track)
		touched := touchedTiles(0, 0, cdgtile.ColumnsPerRow*cdgtile.Width, cdgtile.RowsPerScreen*cdgtile.Height)
		return encodeTileDeltas(comp, layer, nil, touched, true, ev, idx, start, limit, findSlot, place, logger)

	case cdgproj.PayloadBitmap:
		b := ev.Payload.Bitmap
		if b == nil {
			return 0, &InvalidEventError{EventIndex: idx, Reason: "bitmap payload missing bitmap"}
		}
		touched := touchedTiles(b.OffsetX, b.OffsetY, b.Width, b.Height)
		return encodeTileDeltas(comp, b.Layer, b, touched, false, ev, idx, start, limit, findSlot, place, logger)

	case cdgproj.PayloadText:
		return scheduleText(comp, ev, idx, start, limit, findSlot, place, logger)

	default:
		return 0, nil
	}
}

// touchedTiles returns the tile-grid positions a region of width x height
// pixels placed at (offsetX, offsetY) overlaps.
func touchedTiles(offsetX, offsetY, width, height int) []cdgtile.Position {
	minCol := clampDiv(offsetX, cdgtile.Width, cdgtile.ColumnsPerRow)
	maxCol := clampDiv(offsetX+width-1, cdgtile.Width, cdgtile.ColumnsPerRow)
	minRow := clampDiv(offsetY, cdgtile.Height, cdgtile.RowsPerScreen)
	maxRow := clampDiv(offsetY+height-1, cdgtile.Height, cdgtile.RowsPerScreen)

	var out []cdgtile.Position
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			out = append(out, cdgtile.Position{Col: col, Row: row})
		}
	}
	return out
}

func clampDiv(pixel, unit, max int) int {
	v := pixel / unit
	if v < 0 {
		return 0
	}
	if v >= max {
		return max - 1
	}
	return v
}

// encodeTileDeltas paints a bitmap (or clears a layer, when bitmap is nil)
// onto the compositor, computes a before/after diff per touched tile, and
// distributes the resulting packets uniformly across [start, limit), per
// spec.md §4.8 step 2e.
func encodeTileDeltas(
	comp *cdgcompositor.Compositor,
	layer int,
	bitmap *cdgbitmap.Bitmap,
	touched []cdgtile.Position,
	clear bool,
	ev cdgproj.Event,
	idx, start, limit int,
	findSlot func(from, limit int) (int, bool),
	place func(slot int, p cdgpacket.Packet),
	logger *obslog.Logger,
) (int, error) {
	if len(touched) == 0 {
		return 0, nil
	}

	baselines := make([]cdgtile.Tile, len(touched))
	for i, pos := range touched {
		t, err := comp.ReadCompositedTile(pos.Col, pos.Row)
		if err != nil {
			return 0, &InvalidEventError{EventIndex: idx, Reason: err.Error()}
		}
		baselines[i] = t
	}

	if clear {
		if err := comp.ClearLayer(layer); err != nil {
			return 0, &InvalidEventError{EventIndex: idx, Reason: err.Error()}
		}
	} else if err := paintBitmap(comp, bitmap); err != nil {
		return 0, &InvalidEventError{EventIndex: idx, Reason: err.Error()}
	}

	span := limit - start
	if span <= 0 {
		return 0, &OverbudgetError{EventIndex: idx, Track: ev.Track, Reason: "zero-length event window"}
	}

	used := 0
	for i, pos := range touched {
		target, err := comp.ReadCompositedTile(pos.Col, pos.Row)
		if err != nil {
			return used, &InvalidEventError{EventIndex: idx, Reason: err.Error()}
		}
		if target == baselines[i] {
			continue
		}
		pkts, err := cdgtile.Encode(target, baselines[i], pos, logger)
		if err != nil {
			return used, &InvalidEventError{EventIndex: idx, Reason: err.Error()}
		}
		if len(pkts) == 0 {
			continue
		}
		slotHint := start + (i * span / len(touched))
		for _, pkt := range pkts {
			slot, ok := findSlot(slotHint, limit)
			if !ok {
				return used, &OverbudgetError{EventIndex: idx, Track: ev.Track, Reason: "no free slot for tile packet"}
			}
			place(slot, pkt)
			used++
			slotHint = slot + 1
		}
	}
	return used, nil
}

// paintBitmap writes a bitmap's pixels onto its declared compositor layer,
// translating its transparent index (if any) to the compositor's
// transparent sentinel. Pixel indices beyond 0-15 are rejected: spec.md §3
// notes only the first 16 palette entries are CD+G-reachable and leaves the
// remapping algorithm for values above that unspecified, so this loader
// treats an out-of-range index as a caller error rather than guessing a
// remapping.
func paintBitmap(comp *cdgcompositor.Compositor, b *cdgbitmap.Bitmap) error {
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			fx, fy := b.OffsetX+x, b.OffsetY+y
			if fx < 0 || fy < 0 || fx >= cdgtile.ColumnsPerRow*cdgtile.Width || fy >= cdgtile.RowsPerScreen*cdgtile.Height {
				continue
			}
			if b.IsTransparent(x, y) {
				if err := comp.WritePixel(fx, fy, b.Layer, cdgtile.Transparent); err != nil {
					return err
				}
				continue
			}
			idx := b.At(x, y)
			if idx > 15 {
				return fmt.Errorf("cdgscheduler: bitmap pixel (%d,%d) index %d is not CD+G-reachable (0-15)", x, y, idx)
			}
			if err := comp.WritePixel(fx, fy, b.Layer, idx); err != nil {
				return err
			}
		}
	}
	return nil
}

func scheduleText(
	comp *cdgcompositor.Compositor,
	ev cdgproj.Event,
	idx, start, limit int,
	findSlot func(from, limit int) (int, bool),
	place func(slot int, p cdgpacket.Packet),
	logger *obslog.Logger,
) (int, error) {
	tp := ev.Payload.Text
	if tp.Glyphs == nil {
		return 0, &InvalidEventError{EventIndex: idx, Reason: "text payload missing glyph source"}
	}
	used := 0
	span := limit - start
	for i := 0; i < len(tp.Text); i++ {
		glyph, err := tp.Glyphs.Render(tp.Text[i])
		if err != nil {
			return used, &InvalidEventError{EventIndex: idx, Reason: err.Error()}
		}
		glyph.OffsetX = tp.X + i*cdgtile.Width
		glyph.OffsetY = tp.Y
		glyph.Layer = tp.Layer

		touched := touchedTiles(glyph.OffsetX, glyph.OffsetY, glyph.Width, glyph.Height)
		charStart := start + (i * span / maxInt(len(tp.Text), 1))
		charLimit := limit
		n, err := encodeTileDeltas(comp, glyph.Layer, glyph, touched, false, ev, idx, charStart, charLimit, findSlot, place, logger)
		if err != nil {
			return used, err
		}
		used += n
	}
	return used, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func applyRepetition(packets []cdgpacket.Packet, occupied []bool, interval uint32) {
	if interval == 0 {
		return
	}
	var lastTile cdgpacket.Packet
	haveTile := false
	for i := range packets {
		if occupied[i] {
			switch packets[i].Instruction() {
			case cdgpacket.CopyFont, cdgpacket.XorFont:
				lastTile = packets[i]
				haveTile = true
			}
			continue
		}
		if haveTile && uint32(i)%interval == 0 {
			packets[i] = lastTile
			occupied[i] = true
		}
	}
}
