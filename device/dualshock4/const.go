package dualshock4

// Default USB identifiers for a virtual DualShock 4 (CUH-ZCT1).
const (
	DefaultVID = 0x054C
	DefaultPID = 0x05C4
)

// Button bitmasks for the Buttons field. The low nibble is not a bitmask:
// it holds the D-Pad rotary value, see DPad and Report.SetDPad.
const (
	ButtonSquare   uint16 = 0x0010
	ButtonCross    uint16 = 0x0020
	ButtonCircle   uint16 = 0x0040
	ButtonTriangle uint16 = 0x0080

	ButtonL1      uint16 = 0x0100 // Left shoulder
	ButtonR1      uint16 = 0x0200 // Right shoulder
	ButtonL2      uint16 = 0x0400 // Left trigger (digital)
	ButtonR2      uint16 = 0x0800 // Right trigger (digital)
	ButtonShare   uint16 = 0x1000
	ButtonOptions uint16 = 0x2000
	ButtonL3      uint16 = 0x4000 // Left stick button
	ButtonR3      uint16 = 0x8000 // Right stick button
)

// Special button bitmasks for the Special field.
const (
	SpecialPS       uint8 = 0x01
	SpecialTouchpad uint8 = 0x02 // Touchpad click
)

// DPad is the D-Pad state: a rotary value occupying the low nibble of the
// Buttons field, not a bitmask.
type DPad uint8

const (
	DPadNorth     DPad = 0
	DPadNorthEast DPad = 1
	DPadEast      DPad = 2
	DPadSouthEast DPad = 3
	DPadSouth     DPad = 4
	DPadSouthWest DPad = 5
	DPadWest      DPad = 6
	DPadNorthWest DPad = 7
	DPadNeutral   DPad = 8
)

// DPadMask selects the D-Pad nibble inside the Buttons field.
const DPadMask uint16 = 0x000F

// Touchpad coordinate space and contact encoding.
const (
	TouchpadMaxX uint16 = 1919
	TouchpadMaxY uint16 = 942

	// TouchInactiveMask is the "up" bit of a contact's tracking byte.
	// It is active-low: 0 means the finger is down.
	TouchInactiveMask uint8 = 0x80
	// TouchTrackingMask selects the 7-bit tracking id.
	TouchTrackingMask uint8 = 0x7F
)
