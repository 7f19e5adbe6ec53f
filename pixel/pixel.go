// Package pixel packs colours into integer grid cells.
package pixel

import "image/color"

// RGBA is a non-premultiplied colour packed as 0xAABBGGRR, which is the byte order R, G, B, A on
// little-endian machines.
type RGBA uint32

var _ color.Color = RGBA(0)

func PackRGBA(r, g, b, a uint8) RGBA {
	return RGBA(uint32(a)<<24 | uint32(b)<<16 | uint32(g)<<8 | uint32(r))
}

// FromColor converts c to its packed non-premultiplied form.
func FromColor(c color.Color) RGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return PackRGBA(n.R, n.G, n.B, n.A)
}

func (p RGBA) Unpack() (r, g, b, a uint8) {
	return uint8(p), uint8(p >> 8), uint8(p >> 16), uint8(p >> 24)
}

func (p RGBA) NRGBA() color.NRGBA {
	r, g, b, a := p.Unpack()
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

// RGBA implements color.Color.
func (p RGBA) RGBA() (r, g, b, a uint32) {
	return p.NRGBA().RGBA()
}

// Pack5551 packs an opaque colour as BGRA5551, that is BBBBBGGGGGRRRRRA, keeping the top five
// bits of each channel.
func Pack5551(r, g, b uint8) uint16 {
	r5 := uint16(r>>3) & 0x1f
	g5 := uint16(g>>3) & 0x1f
	b5 := uint16(b>>3) & 0x1f
	return b5<<11 | g5<<6 | r5<<1 | 1
}
