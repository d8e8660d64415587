package dualshock4

import (
	"encoding/binary"
	"io"
)

// Encoded sizes of the two report flavors in a submit-report request.
const (
	// ReportSize is the basic report: sticks, buttons, triggers.
	ReportSize = 9
	// ReportExSize is the extended report, adding timestamp, battery,
	// motion sensors and touchpad state.
	ReportExSize = 63
)

// Report is the basic input state of a virtual DualShock 4. Unlike an
// Xbox 360 report the zero value is NOT neutral: sticks rest at 0x80 and
// the D-Pad nibble must hold DPadNeutral. Use NewReport.
type Report struct {
	// Sticks: 0-255, 0x80 is center
	ThumbLX, ThumbLY uint8
	ThumbRX, ThumbRY uint8
	// Button bitfield, low nibble is the D-Pad rotary value
	Buttons uint16
	// Special button bitfield (PS, touchpad click)
	Special uint8
	// Triggers: 0-255
	TriggerL, TriggerR uint8
}

// NewReport returns a Report in the neutral state: sticks centered, D-Pad
// released, nothing pressed.
func NewReport() *Report {
	return &Report{
		ThumbLX: 0x80,
		ThumbLY: 0x80,
		ThumbRX: 0x80,
		ThumbRY: 0x80,
		Buttons: uint16(DPadNeutral),
	}
}

// SetDPad stores d in the D-Pad nibble without touching the button bits.
func (r *Report) SetDPad(d DPad) {
	r.Buttons = r.Buttons&^DPadMask | uint16(d)&DPadMask
}

// DPad returns the D-Pad value stored in the Buttons field.
func (r *Report) DPad() DPad {
	return DPad(r.Buttons & DPadMask)
}

// MarshalBinary encodes Report to its 9-byte wire form.
func (r *Report) MarshalBinary() ([]byte, error) {
	b := make([]byte, ReportSize)
	b[0] = r.ThumbLX
	b[1] = r.ThumbLY
	b[2] = r.ThumbRX
	b[3] = r.ThumbRY
	binary.LittleEndian.PutUint16(b[4:6], r.Buttons)
	b[6] = r.Special
	b[7] = r.TriggerL
	b[8] = r.TriggerR
	return b, nil
}

// UnmarshalBinary decodes 9 bytes into Report.
func (r *Report) UnmarshalBinary(data []byte) error {
	if len(data) < ReportSize {
		return io.ErrUnexpectedEOF
	}
	r.ThumbLX = data[0]
	r.ThumbLY = data[1]
	r.ThumbRX = data[2]
	r.ThumbRY = data[3]
	r.Buttons = binary.LittleEndian.Uint16(data[4:6])
	r.Special = data[6]
	r.TriggerL = data[7]
	r.TriggerR = data[8]
	return nil
}

// ReportEx is the extended input state: the basic report plus timestamp,
// battery, motion sensors and up to three touchpad packets. The zero value
// is not neutral, use NewReportEx.
type ReportEx struct {
	Report

	// Timestamp in 5.33us units, wrapping
	Timestamp uint16
	// Battery level as reported in HID input reports
	BatteryLevel uint8

	// Motion sensors, raw signed sensor units
	GyroX, GyroY, GyroZ    int16
	AccelX, AccelY, AccelZ int16

	// BatteryLevelSpecial mirrors the battery/cable nibbles of the
	// extended HID report.
	BatteryLevelSpecial uint8

	// TouchPackets is how many touchpad packets are valid: CurrentTouch
	// first, then PreviousTouch in most-recent-first order (0-3).
	TouchPackets  uint8
	CurrentTouch  Touch
	PreviousTouch [2]Touch
}

// NewReportEx returns a ReportEx in the neutral state.
func NewReportEx() *ReportEx {
	return &ReportEx{Report: *NewReport()}
}

// MarshalBinary encodes ReportEx to its 63-byte wire form.
func (r *ReportEx) MarshalBinary() ([]byte, error) {
	b := make([]byte, ReportExSize)
	basic, err := r.Report.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(b[0:ReportSize], basic)
	binary.LittleEndian.PutUint16(b[9:11], r.Timestamp)
	b[11] = r.BatteryLevel
	binary.LittleEndian.PutUint16(b[12:14], uint16(r.GyroX))
	binary.LittleEndian.PutUint16(b[14:16], uint16(r.GyroY))
	binary.LittleEndian.PutUint16(b[16:18], uint16(r.GyroZ))
	binary.LittleEndian.PutUint16(b[18:20], uint16(r.AccelX))
	binary.LittleEndian.PutUint16(b[20:22], uint16(r.AccelY))
	binary.LittleEndian.PutUint16(b[22:24], uint16(r.AccelZ))
	// b[24:29] is reserved and stays zero
	b[29] = r.BatteryLevelSpecial
	// b[30:32] is reserved and stays zero
	b[32] = r.TouchPackets
	current, err := r.CurrentTouch.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(b[33:42], current)
	for i, t := range r.PreviousTouch {
		prev, err := t.MarshalBinary()
		if err != nil {
			return nil, err
		}
		copy(b[42+i*TouchSize:42+(i+1)*TouchSize], prev)
	}
	return b, nil
}

// UnmarshalBinary decodes 63 bytes into ReportEx.
func (r *ReportEx) UnmarshalBinary(data []byte) error {
	if len(data) < ReportExSize {
		return io.ErrUnexpectedEOF
	}
	if err := r.Report.UnmarshalBinary(data[0:ReportSize]); err != nil {
		return err
	}
	r.Timestamp = binary.LittleEndian.Uint16(data[9:11])
	r.BatteryLevel = data[11]
	r.GyroX = int16(binary.LittleEndian.Uint16(data[12:14]))
	r.GyroY = int16(binary.LittleEndian.Uint16(data[14:16]))
	r.GyroZ = int16(binary.LittleEndian.Uint16(data[16:18]))
	r.AccelX = int16(binary.LittleEndian.Uint16(data[18:20]))
	r.AccelY = int16(binary.LittleEndian.Uint16(data[20:22]))
	r.AccelZ = int16(binary.LittleEndian.Uint16(data[22:24]))
	r.BatteryLevelSpecial = data[29]
	r.TouchPackets = data[32]
	if err := r.CurrentTouch.UnmarshalBinary(data[33:42]); err != nil {
		return err
	}
	for i := range r.PreviousTouch {
		if err := r.PreviousTouch[i].UnmarshalBinary(data[42+i*TouchSize : 42+(i+1)*TouchSize]); err != nil {
			return err
		}
	}
	return nil
}
