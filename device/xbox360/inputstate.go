package xbox360

import (
	"encoding/binary"
	"io"
)

// ReportSize is the encoded size of a Report in a submit-report request.
const ReportSize = 12

// Report is the full input state of a virtual Xbox 360 pad as the bus
// driver expects it: buttons, triggers, sticks. The zero value is the
// neutral state (nothing pressed, sticks centered).
type Report struct {
	// Button bitfield, see the Button* constants
	Buttons uint16
	// Triggers: 0-255
	LeftTrigger  uint8
	RightTrigger uint8
	// Sticks: signed 16-bit values, 0 is center
	ThumbLX, ThumbLY int16
	ThumbRX, ThumbRY int16
}

// MarshalBinary encodes Report to its 12-byte wire form.
func (r *Report) MarshalBinary() ([]byte, error) {
	b := make([]byte, ReportSize)
	binary.LittleEndian.PutUint16(b[0:2], r.Buttons)
	b[2] = r.LeftTrigger
	b[3] = r.RightTrigger
	binary.LittleEndian.PutUint16(b[4:6], uint16(r.ThumbLX))
	binary.LittleEndian.PutUint16(b[6:8], uint16(r.ThumbLY))
	binary.LittleEndian.PutUint16(b[8:10], uint16(r.ThumbRX))
	binary.LittleEndian.PutUint16(b[10:12], uint16(r.ThumbRY))
	return b, nil
}

// UnmarshalBinary decodes 12 bytes into Report.
func (r *Report) UnmarshalBinary(data []byte) error {
	if len(data) < ReportSize {
		return io.ErrUnexpectedEOF
	}
	r.Buttons = binary.LittleEndian.Uint16(data[0:2])
	r.LeftTrigger = data[2]
	r.RightTrigger = data[3]
	r.ThumbLX = int16(binary.LittleEndian.Uint16(data[4:6]))
	r.ThumbLY = int16(binary.LittleEndian.Uint16(data[6:8]))
	r.ThumbRX = int16(binary.LittleEndian.Uint16(data[8:10]))
	r.ThumbRY = int16(binary.LittleEndian.Uint16(data[10:12]))
	return nil
}
