package dualshock4_test

import (
	"testing"

	"github.com/Alia5/vigem/device/dualshock4"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportMarshalBinary(t *testing.T) {
	tests := []struct {
		name     string
		report   *dualshock4.Report
		expected []byte
	}{
		{
			name:     "neutral state",
			report:   dualshock4.NewReport(),
			expected: []byte{0x80, 0x80, 0x80, 0x80, 0x08, 0x00, 0x00, 0x00, 0x00},
		},
		{
			name: "buttons and triggers",
			report: &dualshock4.Report{
				ThumbLX: 0x80, ThumbLY: 0x80, ThumbRX: 0x80, ThumbRY: 0x80,
				Buttons:  dualshock4.ButtonCross | dualshock4.ButtonR1 | uint16(dualshock4.DPadNeutral),
				Special:  dualshock4.SpecialPS,
				TriggerL: 0x40,
				TriggerR: 0xFF,
			},
			expected: []byte{0x80, 0x80, 0x80, 0x80, 0x28, 0x02, 0x01, 0x40, 0xFF},
		},
		{
			name: "sticks",
			report: &dualshock4.Report{
				ThumbLX: 0x00, ThumbLY: 0xFF, ThumbRX: 0x12, ThumbRY: 0x80,
				Buttons: uint16(dualshock4.DPadWest),
			},
			expected: []byte{0x00, 0xFF, 0x12, 0x80, 0x06, 0x00, 0x00, 0x00, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := tt.report.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, b)
			assert.Len(t, b, dualshock4.ReportSize)

			var back dualshock4.Report
			require.NoError(t, back.UnmarshalBinary(b))
			assert.Equal(t, *tt.report, back)
		})
	}
}

func TestReportSetDPad(t *testing.T) {
	r := dualshock4.NewReport()
	r.Buttons |= dualshock4.ButtonTriangle | dualshock4.ButtonOptions

	r.SetDPad(dualshock4.DPadSouthWest)
	assert.Equal(t, dualshock4.DPadSouthWest, r.DPad())
	assert.Equal(t, dualshock4.ButtonTriangle|dualshock4.ButtonOptions, r.Buttons&^dualshock4.DPadMask,
		"setting the D-Pad must not disturb button bits")

	r.SetDPad(dualshock4.DPadNeutral)
	assert.Equal(t, dualshock4.DPadNeutral, r.DPad())
	assert.Equal(t, dualshock4.ButtonTriangle|dualshock4.ButtonOptions, r.Buttons&^dualshock4.DPadMask)
}

func TestTouchMarshalBinary(t *testing.T) {
	touch := dualshock4.Touch{
		PacketCounter: 7,
		Contacts: [2]dualshock4.TouchContact{
			{Down: true, TrackingID: 3, X: 123, Y: 456},
			{Down: false, TrackingID: 0x7F, X: 1919, Y: 942},
		},
	}

	b, err := touch.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, dualshock4.TouchSize)

	assert.Equal(t, uint8(7), b[0])
	// Contact 0: down (bit 7 clear), id 3, 123x456 packed 12-bit
	assert.Equal(t, []byte{0x03, 0x7B, 0x80, 0x1C}, b[1:5])
	// Contact 1: up (bit 7 set), id 0x7F, far corner
	assert.Equal(t, []byte{0xFF, 0x7F, 0xE7, 0x3A}, b[5:9])

	var back dualshock4.Touch
	require.NoError(t, back.UnmarshalBinary(b))
	assert.Equal(t, touch, back)
}

func TestTouchClampsCoordinates(t *testing.T) {
	touch := dualshock4.Touch{
		Contacts: [2]dualshock4.TouchContact{
			{Down: true, X: 5000, Y: 5000},
		},
	}

	b, err := touch.MarshalBinary()
	require.NoError(t, err)

	var back dualshock4.Touch
	require.NoError(t, back.UnmarshalBinary(b))
	assert.Equal(t, dualshock4.TouchpadMaxX, back.Contacts[0].X)
	assert.Equal(t, dualshock4.TouchpadMaxY, back.Contacts[0].Y)
}

func TestTouchTrackingIDTruncated(t *testing.T) {
	touch := dualshock4.Touch{
		Contacts: [2]dualshock4.TouchContact{
			{Down: true, TrackingID: 0xF5},
		},
	}

	b, err := touch.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x75), b[1], "tracking id keeps only 7 bits, down keeps bit 7 clear")
}

func TestReportExMarshalBinary(t *testing.T) {
	r := dualshock4.NewReportEx()
	r.TriggerR = 0xAA
	r.Timestamp = 0x1234
	r.BatteryLevel = 0x0B
	r.GyroX = -2
	r.AccelZ = 0x0102
	r.BatteryLevelSpecial = 0x11
	r.TouchPackets = 1
	r.CurrentTouch = dualshock4.Touch{
		PacketCounter: 1,
		Contacts: [2]dualshock4.TouchContact{
			{Down: true, TrackingID: 9, X: 123, Y: 456},
			{},
		},
	}

	b, err := r.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, dualshock4.ReportExSize)

	// Basic report leads the layout
	assert.Equal(t, []byte{0x80, 0x80, 0x80, 0x80, 0x08, 0x00, 0x00, 0x00, 0xAA}, b[0:9])
	assert.Equal(t, []byte{0x34, 0x12}, b[9:11], "timestamp")
	assert.Equal(t, uint8(0x0B), b[11], "battery")
	assert.Equal(t, []byte{0xFE, 0xFF}, b[12:14], "gyro x")
	assert.Equal(t, []byte{0x02, 0x01}, b[22:24], "accel z")
	assert.Equal(t, []byte{0, 0, 0, 0, 0}, b[24:29], "reserved stays zero")
	assert.Equal(t, uint8(0x11), b[29])
	assert.Equal(t, uint8(1), b[32], "touch packet count")
	assert.Equal(t, []byte{0x01, 0x09, 0x7B, 0x80, 0x1C}, b[33:38], "current touch")
	assert.Equal(t, []byte{0, 0, 0}, b[60:63], "tail padding stays zero")

	back := dualshock4.ReportEx{}
	require.NoError(t, back.UnmarshalBinary(b))
	// The inactive contacts come back with Down false and zero coordinates,
	// which is exactly what went in, so the round trip is lossless here.
	assert.Equal(t, r.Report, back.Report)
	assert.Equal(t, r.Timestamp, back.Timestamp)
	assert.Equal(t, r.CurrentTouch, back.CurrentTouch)
	assert.Equal(t, r.PreviousTouch, back.PreviousTouch)
}

func TestUnmarshalShortInput(t *testing.T) {
	var r dualshock4.Report
	assert.Error(t, r.UnmarshalBinary(make([]byte, dualshock4.ReportSize-1)))

	var rx dualshock4.ReportEx
	assert.Error(t, rx.UnmarshalBinary(make([]byte, dualshock4.ReportExSize-1)))

	var touch dualshock4.Touch
	assert.Error(t, touch.UnmarshalBinary(make([]byte, dualshock4.TouchSize-1)))

	var o dualshock4.OutputState
	assert.Error(t, o.UnmarshalBinary([]byte{1, 2, 3, 4}))
}

func TestOutputStateUnmarshalBinary(t *testing.T) {
	var o dualshock4.OutputState
	require.NoError(t, o.UnmarshalBinary([]byte{0xDE, 0x22, 0x10, 0x20, 0x30}))
	assert.Equal(t, dualshock4.OutputState{
		LargeMotor: 0xDE,
		SmallMotor: 0x22,
		Lightbar:   dualshock4.Lightbar{Red: 0x10, Green: 0x20, Blue: 0x30},
	}, o)
}
