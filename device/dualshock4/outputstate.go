package dualshock4

import "io"

// Lightbar is an RGB color for the pad's light bar.
type Lightbar struct {
	Red, Green, Blue uint8
}

// OutputState is feedback pushed by the host for a DualShock 4: rumble
// motor levels and the light bar color.
// Total size: 5 bytes (fixed).
type OutputState struct {
	// Rumble strength for the large motor (0-255)
	LargeMotor uint8
	// Rumble strength for the small motor (0-255)
	SmallMotor uint8
	Lightbar   Lightbar
}

// MarshalBinary encodes OutputState to 5 bytes.
func (o *OutputState) MarshalBinary() ([]byte, error) {
	return []byte{o.LargeMotor, o.SmallMotor, o.Lightbar.Red, o.Lightbar.Green, o.Lightbar.Blue}, nil
}

// UnmarshalBinary decodes 5 bytes into OutputState.
func (o *OutputState) UnmarshalBinary(data []byte) error {
	if len(data) < 5 {
		return io.ErrUnexpectedEOF
	}
	o.LargeMotor = data[0]
	o.SmallMotor = data[1]
	o.Lightbar.Red = data[2]
	o.Lightbar.Green = data[3]
	o.Lightbar.Blue = data[4]
	return nil
}

// OutputBufferSize is the size of a raw USB output report buffer.
const OutputBufferSize = 64

// OutputBuffer is one raw USB output report as the host sent it, undecoded.
// Byte 0 is the HID report id.
type OutputBuffer [OutputBufferSize]byte
