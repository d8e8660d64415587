package xbox360

import "io"

// OutputState is feedback pushed by the host for an Xbox 360 pad: rumble
// motor levels and the assigned player LED.
// Total size: 3 bytes (fixed).
type OutputState struct {
	// Rumble strength for the large motor (0-255)
	LargeMotor uint8
	// Rumble strength for the small motor (0-255)
	SmallMotor uint8
	// Player number (0-3) indicated by the LED ring. This is the reliable
	// way to learn the player index assigned to the pad.
	LedNumber uint8
}

// MarshalBinary encodes OutputState to 3 bytes.
func (o *OutputState) MarshalBinary() ([]byte, error) {
	return []byte{o.LargeMotor, o.SmallMotor, o.LedNumber}, nil
}

// UnmarshalBinary decodes 3 bytes into OutputState.
func (o *OutputState) UnmarshalBinary(data []byte) error {
	if len(data) < 3 {
		return io.ErrUnexpectedEOF
	}
	o.LargeMotor = data[0]
	o.SmallMotor = data[1]
	o.LedNumber = data[2]
	return nil
}
