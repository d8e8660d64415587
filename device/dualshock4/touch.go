package dualshock4

import "io"

// TouchSize is the encoded size of one Touch packet.
const TouchSize = 9

// TouchContact is one finger on the touchpad. X and Y are absolute pad
// coordinates, 0-1919 by 0-942, origin top left.
type TouchContact struct {
	// Down reports whether the finger touches the pad.
	Down bool
	// TrackingID distinguishes contacts across packets. The pad increments
	// it each time a finger goes down. Only 7 bits are encoded.
	TrackingID uint8
	X, Y       uint16
}

// Touch is one touchpad packet: a counter and up to two contacts.
type Touch struct {
	// PacketCounter increments once per packet.
	PacketCounter uint8
	Contacts      [2]TouchContact
}

// MarshalBinary encodes Touch to its 9-byte wire form. Coordinates outside
// the pad are clamped to the far edge.
func (t *Touch) MarshalBinary() ([]byte, error) {
	b := make([]byte, TouchSize)
	b[0] = t.PacketCounter
	for i, c := range t.Contacts {
		off := 1 + i*4
		track := c.TrackingID & TouchTrackingMask
		if !c.Down {
			track |= TouchInactiveMask
		}
		b[off] = track
		packTouchCoords(b[off+1:off+4], c.X, c.Y)
	}
	return b, nil
}

// UnmarshalBinary decodes 9 bytes into Touch.
func (t *Touch) UnmarshalBinary(data []byte) error {
	if len(data) < TouchSize {
		return io.ErrUnexpectedEOF
	}
	t.PacketCounter = data[0]
	for i := range t.Contacts {
		off := 1 + i*4
		t.Contacts[i].Down = data[off]&TouchInactiveMask == 0
		t.Contacts[i].TrackingID = data[off] & TouchTrackingMask
		t.Contacts[i].X, t.Contacts[i].Y = unpackTouchCoords(data[off+1 : off+4])
	}
	return nil
}

// packTouchCoords packs a clamped coordinate pair into the pad's 12-bit
// little-endian layout: 8 low bits of x, then the high nibble of x beside
// the low nibble of y, then the high 8 bits of y.
func packTouchCoords(b []byte, x, y uint16) {
	if x > TouchpadMaxX {
		x = TouchpadMaxX
	}
	if y > TouchpadMaxY {
		y = TouchpadMaxY
	}
	b[0] = uint8(x)
	b[1] = uint8(x>>8)&0x0F | uint8(y&0x0F)<<4
	b[2] = uint8(y >> 4)
}

func unpackTouchCoords(b []byte) (x, y uint16) {
	x = uint16(b[0]) | uint16(b[1]&0x0F)<<8
	y = uint16(b[1]&0xF0)>>4 | uint16(b[2])<<4
	return x, y
}
