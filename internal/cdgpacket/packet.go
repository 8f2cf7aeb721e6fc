// Package cdgpacket implements the 16-byte CD+Graphics subcode packet: the
// wire format shared by the tile encoder, the decoder, and the scheduler.
package cdgpacket

import "fmt"

// Size is the fixed wire length of a CD+G packet in bytes.
const Size = 16

// Command is the CD+G subchannel command byte. Graphics packets always
// carry CommandGraphics; any other command byte is not modeled here.
const CommandGraphics = 0x09

// Instruction enumerates the nine opcodes the codec understands. No other
// opcode is emitted by the encoder, and any other opcode is silently
// ignored by the decoder.
type Instruction uint8

const (
	MemoryPreset       Instruction = 1
	BorderPreset       Instruction = 2
	CopyFont           Instruction = 6
	ScrollPreset       Instruction = 20
	ScrollCopy         Instruction = 24
	DefineTransparent  Instruction = 28
	LoadCLUTLo         Instruction = 30
	LoadCLUTHi         Instruction = 31
	XorFont            Instruction = 38
)

// TileRows is the number of pixel rows a COPY_FONT/XOR_FONT packet carries.
const TileRows = 12

// Packet is a single 16-byte CD+G subcode frame. The zero value is the
// "empty" packet: no graphics update for that pack-slot.
type Packet struct {
	raw [Size]byte
}

// Empty reports whether p carries no instruction (an all-zero packet).
func (p Packet) Empty() bool {
	return p.raw == [Size]byte{}
}

// Instruction returns the packet's opcode (low 6 bits of byte 1). Only
// meaningful when the command byte is CommandGraphics; callers should check
// Empty first.
func (p Packet) Instruction() Instruction {
	return Instruction(p.raw[1] & 0x3F)
}

// Data returns the 16 data bytes (bytes 4..19 of the wire frame).
func (p Packet) Data() [16]byte {
	var d [16]byte
	copy(d[:], p.raw[4:20])
	return d
}

// Bytes returns the 16-byte wire representation.
func (p Packet) Bytes() [Size]byte {
	return p.raw
}

// newGraphics builds a packet with CommandGraphics and the given
// instruction, zeroing the parity bytes (not computed by this encoder) and
// the data bytes.
func newGraphics(instr Instruction, data [16]byte) Packet {
	var p Packet
	p.raw[0] = CommandGraphics
	p.raw[1] = byte(instr) & 0x3F
	// bytes 2-3: parity Q, intentionally left zero
	copy(p.raw[4:20], data[:])
	return p
}

// NewMemoryPreset builds a MEMORY_PRESET packet filling the framebuffer
// with colorIndex (0-15); repeat is the informational repeat count some
// hardware relies on for error resilience.
func NewMemoryPreset(colorIndex, repeat uint8) (Packet, error) {
	if colorIndex > 15 {
		return Packet{}, fmt.Errorf("cdgpacket: memory preset color index %d out of range 0-15", colorIndex)
	}
	var data [16]byte
	data[0] = colorIndex & 0x0F
	data[1] = repeat & 0x0F
	return newGraphics(MemoryPreset, data), nil
}

// MemoryPresetColor decodes the color index carried by a MEMORY_PRESET packet.
func (p Packet) MemoryPresetColor() uint8 {
	return p.raw[4] & 0x0F
}

// NewBorderPreset builds a BORDER_PRESET packet.
func NewBorderPreset(colorIndex uint8) (Packet, error) {
	if colorIndex > 15 {
		return Packet{}, fmt.Errorf("cdgpacket: border preset color index %d out of range 0-15", colorIndex)
	}
	var data [16]byte
	data[0] = colorIndex & 0x0F
	return newGraphics(BorderPreset, data), nil
}

// BorderPresetColor decodes the color index carried by a BORDER_PRESET packet.
func (p Packet) BorderPresetColor() uint8 {
	return p.raw[4] & 0x0F
}

// NewDefineTransparent builds a DEFINE_TRANSPARENT packet.
func NewDefineTransparent(colorIndex uint8) (Packet, error) {
	if colorIndex > 15 {
		return Packet{}, fmt.Errorf("cdgpacket: transparent color index %d out of range 0-15", colorIndex)
	}
	var data [16]byte
	data[0] = colorIndex & 0x0F
	return newGraphics(DefineTransparent, data), nil
}

// DefineTransparentColor decodes the index carried by a DEFINE_TRANSPARENT packet.
func (p Packet) DefineTransparentColor() uint8 {
	return p.raw[4] & 0x0F
}

// ScrollDirection encodes the two independent scroll axes carried by
// SCROLL_PRESET/SCROLL_COPY: a 0-5 (or 0-11) offset plus a -1/0/+1 command.
type ScrollDirection struct {
	Offset  uint8 // horizontal: 0-5, vertical: 0-11
	Command uint8 // 0 = none, 1 = +1 (right/down), 2 = -1 (left/up)
}

// NewScroll builds a SCROLL_PRESET or SCROLL_COPY packet from horizontal
// and vertical scroll directions.
func NewScroll(copy bool, h, v ScrollDirection) Packet {
	var data [16]byte
	data[0] = (h.Command&0x3)<<4 | (h.Offset & 0x0F)
	data[1] = (v.Command&0x3)<<4 | (v.Offset & 0x0F)
	instr := ScrollPreset
	if copy {
		instr = ScrollCopy
	}
	return newGraphics(instr, data)
}

// ScrollDirections decodes the horizontal and vertical scroll fields
// carried by a SCROLL_PRESET/SCROLL_COPY packet.
func (p Packet) ScrollDirections() (h, v ScrollDirection) {
	h = ScrollDirection{Offset: p.raw[4] & 0x0F, Command: (p.raw[4] >> 4) & 0x3}
	v = ScrollDirection{Offset: p.raw[5] & 0x0F, Command: (p.raw[5] >> 4) & 0x3}
	return h, v
}

// CLUTPayload is eight packed 4-bit-per-channel colors, as carried by a
// LOAD_CLUT_LO/LOAD_CLUT_HI packet. Byte packing (see cdgpalette.packEntry):
// byte0 = (R&0xF)<<4 | (G&0xF), byte1 = (B&0xF)<<4. Both bytes use their
// full 8 bits — byte0's top nibble carries R, byte1's top nibble carries B —
// so packet data bytes must round-trip whole, not truncated to 6 bits.
type CLUTPayload [8][2]uint8

// NewCLUT builds a LOAD_CLUT_LO (lo=true, indices 0-7) or LOAD_CLUT_HI
// (indices 8-15) packet from eight packed color entries.
func NewCLUT(lo bool, entries CLUTPayload) Packet {
	var data [16]byte
	for i, e := range entries {
		data[i*2] = e[0]
		data[i*2+1] = e[1]
	}
	instr := LoadCLUTHi
	if lo {
		instr = LoadCLUTLo
	}
	return newGraphics(instr, data)
}

// CLUTEntries decodes the eight packed color entries from a
// LOAD_CLUT_LO/LOAD_CLUT_HI packet.
func (p Packet) CLUTEntries() CLUTPayload {
	var out CLUTPayload
	for i := range out {
		out[i][0] = p.raw[4+i*2]
		out[i][1] = p.raw[4+i*2+1]
	}
	return out
}

// TileMask is the 12 row masks (6 bits each, MSB-first within the low 6
// bits) for a single COPY_FONT/XOR_FONT tile.
type TileMask [TileRows]uint8

// NewTile builds a COPY_FONT (xor=false) or XOR_FONT (xor=true) packet at
// tile coordinate (col, row) with the given two colors and row masks.
func NewTile(xor bool, color0, color1, row, col uint8, mask TileMask) (Packet, error) {
	if color0 > 15 || color1 > 15 {
		return Packet{}, fmt.Errorf("cdgpacket: tile colors %d/%d out of range 0-15", color0, color1)
	}
	if row > 17 {
		return Packet{}, fmt.Errorf("cdgpacket: tile row %d out of range 0-17", row)
	}
	if col > 49 {
		return Packet{}, fmt.Errorf("cdgpacket: tile col %d out of range 0-49", col)
	}
	var data [16]byte
	data[0] = color0 & 0x0F
	data[1] = color1 & 0x0F
	data[2] = row & 0x1F
	data[3] = col & 0x3F
	for y := 0; y < TileRows; y++ {
		data[4+y] = mask[y] & 0x3F
	}
	instr := CopyFont
	if xor {
		instr = XorFont
	}
	return newGraphics(instr, data), nil
}

// TileColors decodes the two palette colors carried by a COPY_FONT/XOR_FONT packet.
func (p Packet) TileColors() (color0, color1 uint8) {
	return p.raw[4] & 0x0F, p.raw[5] & 0x0F
}

// TilePosition decodes the (row, col) tile coordinate carried by a
// COPY_FONT/XOR_FONT packet.
func (p Packet) TilePosition() (row, col uint8) {
	return p.raw[6] & 0x1F, p.raw[7] & 0x3F
}

// TileMaskRows decodes the 12 row masks carried by a COPY_FONT/XOR_FONT packet.
func (p Packet) TileMaskRows() TileMask {
	var m TileMask
	for y := 0; y < TileRows; y++ {
		m[y] = p.raw[8+y] & 0x3F
	}
	return m
}
