package cdgtile

import (
	"cdgforge/internal/cdgpacket"
	"cdgforge/internal/obslog"
)

// Encode turns a target tile into the minimal packet sequence that
// reproduces it on its non-transparent pixels, per spec.md §4.3's
// per-color-count dispatch, leaving any transparent pixel's baseline value
// untouched. baseline is the compositor-below pixel content the packets
// will be applied on top of by a decoder (spec.md §4.3's "current
// compositor-below pixels"); it only matters when target has transparent
// pixels, since the COPY_FONT instruction has no way to skip a pixel and
// the only way to truly leave a pixel alone is to never include it in a
// COPY_FONT's 72-pixel write. pos is the tile's position in the 50x18 grid.
// logger may be nil; when set, a failing call logs at obslog.LevelError
// before returning.
func Encode(target, baseline Tile, pos Position, logger *obslog.Logger) ([]cdgpacket.Packet, error) {
	if err := pos.Validate(); err != nil {
		logError(logger, err)
		return nil, err
	}

	counts := target.colorCounts()
	if len(counts) == 0 {
		return nil, nil
	}

	var pkts []cdgpacket.Packet
	var err error
	if target.hasTransparent() {
		pkts, err = encodeAgainstBaseline(target, baseline, pos)
	} else {
		switch len(counts) {
		case 1:
			var c uint8
			for k := range counts {
				c = k
			}
			pkts, err = encodeUniform(target, pos, c)
		case 2:
			colors := rankedColors(counts)
			pkts, err = encodeTwoColor(target, pos, colors[0], colors[1])
		case 3:
			colors := rankedColors(counts)
			pkts, err = encodeThreeColor(target, pos, colors[0], colors[1], colors[2])
		default:
			pkts, err = encodeBitPlanes(target, pos)
		}
	}
	if err != nil {
		logError(logger, err)
		return nil, err
	}
	return pkts, nil
}

func logError(logger *obslog.Logger, err error) {
	if logger != nil {
		logger.Log(obslog.ComponentEncoder, obslog.LevelError, err.Error(), nil)
	}
}

func (t Tile) hasTransparent() bool {
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if t[y][x] == Transparent {
				return true
			}
		}
	}
	return false
}

// twoColorMask builds the row-mask COPY_FONT representation where bit 5-x
// is set iff the pixel at (x, row) satisfies isColor1. Transparent pixels
// never set a mask bit.
func twoColorMask(t Tile, isColor1 func(v uint8) bool) cdgpacket.TileMask {
	var mask cdgpacket.TileMask
	for y := 0; y < Height; y++ {
		var row uint8
		for x := 0; x < Width; x++ {
			v := t[y][x]
			if v == Transparent {
				continue
			}
			if isColor1(v) {
				row |= 1 << uint(Width-1-x)
			}
		}
		mask[y] = row
	}
	return mask
}

func encodeUniform(t Tile, pos Position, c uint8) ([]cdgpacket.Packet, error) {
	mask := twoColorMask(t, func(v uint8) bool { return true })
	pkt, err := cdgpacket.NewTile(false, c, c, uint8(pos.Row), uint8(pos.Col), mask)
	if err != nil {
		return nil, err
	}
	return []cdgpacket.Packet{pkt}, nil
}

func encodeTwoColor(t Tile, pos Position, color0, color1 uint8) ([]cdgpacket.Packet, error) {
	mask := twoColorMask(t, func(v uint8) bool { return v == color1 })
	pkt, err := cdgpacket.NewTile(false, color0, color1, uint8(pos.Row), uint8(pos.Col), mask)
	if err != nil {
		return nil, err
	}
	return []cdgpacket.Packet{pkt}, nil
}

// encodeThreeColor paints c0 vs c1 (treating c2 as c1), then XORs in the
// c1<->c2 flip on exactly the c2 pixels, per spec.md §4.3.
func encodeThreeColor(t Tile, pos Position, c0, c1, c2 uint8) ([]cdgpacket.Packet, error) {
	base := twoColorMask(t, func(v uint8) bool { return v != c0 })
	basePkt, err := cdgpacket.NewTile(false, c0, c1, uint8(pos.Row), uint8(pos.Col), base)
	if err != nil {
		return nil, err
	}

	flip := c1 ^ c2
	xorMask := twoColorMask(t, func(v uint8) bool { return v == c2 })
	xorPkt, err := cdgpacket.NewTile(true, 0, flip, uint8(pos.Row), uint8(pos.Col), xorMask)
	if err != nil {
		return nil, err
	}
	return []cdgpacket.Packet{basePkt, xorPkt}, nil
}

// encodeBitPlanes decomposes a 4+-color, fully-opaque tile into up to four
// bit-plane packets, one per bit of the 4-bit palette index, skipping
// planes whose mask is entirely zero. The first emitted packet is
// COPY_FONT (establishing the plane against a cleared baseline);
// subsequent packets are XOR_FONT.
func encodeBitPlanes(t Tile, pos Position) ([]cdgpacket.Packet, error) {
	var packets []cdgpacket.Packet
	first := true
	for bit := 0; bit < 4; bit++ {
		plane := uint8(1) << uint(bit)
		mask := twoColorMask(t, func(v uint8) bool { return v&plane != 0 })
		if mask == (cdgpacket.TileMask{}) {
			continue
		}
		pkt, err := cdgpacket.NewTile(!first, 0, plane, uint8(pos.Row), uint8(pos.Col), mask)
		if err != nil {
			return nil, err
		}
		packets = append(packets, pkt)
		first = false
	}
	return packets, nil
}

// encodeAgainstBaseline handles tiles with transparent pixels by emitting
// only XOR_FONT packets, one per bit plane, each carrying the bit positions
// where the target's bit differs from the baseline's bit for that plane.
// Transparent target pixels always contribute a zero bit (baseline XOR 0 =
// baseline, unchanged); non-transparent pixels converge to the target
// value after all four planes are applied, regardless of what content the
// baseline held there. No COPY_FONT is used, since COPY_FONT has no way to
// exempt a pixel from being overwritten.
func encodeAgainstBaseline(target, baseline Tile, pos Position) ([]cdgpacket.Packet, error) {
	var packets []cdgpacket.Packet
	for bit := 0; bit < 4; bit++ {
		plane := uint8(1) << uint(bit)
		mask := diffMask(target, baseline, plane)
		if mask == (cdgpacket.TileMask{}) {
			continue
		}
		pkt, err := cdgpacket.NewTile(true, 0, plane, uint8(pos.Row), uint8(pos.Col), mask)
		if err != nil {
			return nil, err
		}
		packets = append(packets, pkt)
	}
	return packets, nil
}

func diffMask(target, baseline Tile, plane uint8) cdgpacket.TileMask {
	var mask cdgpacket.TileMask
	for y := 0; y < Height; y++ {
		var row uint8
		for x := 0; x < Width; x++ {
			tv := target[y][x]
			if tv == Transparent {
				continue
			}
			bv := baseline[y][x]
			if (tv^bv)&plane != 0 {
				row |= 1 << uint(Width-1-x)
			}
		}
		mask[y] = row
	}
	return mask
}
