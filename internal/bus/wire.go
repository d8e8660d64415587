// Package bus implements the wire protocol of the ViGEm virtual gamepad
// bus driver: device discovery, overlapped control requests and the fixed
// little-endian records the driver exchanges for plugging, input reports
// and host feedback.
package bus

import (
	"encoding/binary"
	"fmt"

	"github.com/Alia5/vigem/device/dualshock4"
	"github.com/Alia5/vigem/device/xbox360"
)

// protocolVersion is sent with every version check. The driver fails the
// request when it speaks a different version.
const protocolVersion = 0x0001

// Control codes for every request the driver accepts, built the way the
// CTL_CODE macro builds them: device type FILE_DEVICE_BUS_EXTENDER (0x2A),
// method buffered, function numbers starting at 0x801. Notification and
// await-output polls need read access on top of write access because the
// driver copies a record back.
const (
	deviceBusExtender = 0x2A
	methodBuffered    = 0x0
	readAccess        = 0x1
	writeAccess       = 0x2

	CodePlugTarget      = deviceBusExtender<<16 | writeAccess<<14 | 0x801<<2 | methodBuffered
	CodeUnplugTarget    = deviceBusExtender<<16 | writeAccess<<14 | 0x802<<2 | methodBuffered
	CodeCheckVersion    = deviceBusExtender<<16 | writeAccess<<14 | 0x803<<2 | methodBuffered
	CodeWaitDeviceReady = deviceBusExtender<<16 | writeAccess<<14 | 0x804<<2 | methodBuffered

	CodeXusbRequestNotification = deviceBusExtender<<16 | (readAccess|writeAccess)<<14 | 0xA01<<2 | methodBuffered
	CodeXusbSubmitReport        = deviceBusExtender<<16 | writeAccess<<14 | 0xA02<<2 | methodBuffered
	CodeDS4SubmitReport         = deviceBusExtender<<16 | writeAccess<<14 | 0xA03<<2 | methodBuffered
	// The driver registers the DS4 notification code with write access only,
	// even though it copies a record back. Historical quirk, do not "fix" it.
	CodeDS4RequestNotification = deviceBusExtender<<16 | writeAccess<<14 | 0xA04<<2 | methodBuffered
	CodeXusbGetUserIndex       = deviceBusExtender<<16 | (readAccess|writeAccess)<<14 | 0xA07<<2 | methodBuffered
	CodeDS4AwaitOutput         = deviceBusExtender<<16 | (readAccess|writeAccess)<<14 | 0xA08<<2 | methodBuffered
)

// Encoded record sizes. Every record starts with its own total size followed
// by the target serial (except the version check, which carries the version
// instead). The driver validates the size field against the buffer length,
// so these must match the driver's struct layouts byte for byte.
const (
	checkVersionSize    = 8
	plugTargetSize      = 16
	unplugTargetSize    = 8
	waitDeviceReadySize = 8

	xusbSubmitReportSize = 20
	xusbNotificationSize = 12
	xusbUserIndexSize    = 12

	ds4SubmitReportSize   = 20
	ds4SubmitReportExSize = 71
	ds4NotificationSize   = 16
	ds4AwaitOutputSize    = 72
)

// TargetKind selects which controller the driver emulates for a target.
type TargetKind uint32

const (
	KindXbox360    TargetKind = 0
	KindDualShock4 TargetKind = 2
)

func (k TargetKind) String() string {
	switch k {
	case KindXbox360:
		return "Xbox360"
	case KindDualShock4:
		return "DualShock4"
	default:
		return fmt.Sprintf("TargetKind(%d)", uint32(k))
	}
}

// Target describes one virtual device on the bus: its controller kind and
// the USB identity it reports to the host.
type Target struct {
	Kind      TargetKind
	VendorID  uint16
	ProductID uint16
}

// newRecord allocates a record of the given total size with the size field
// and target serial already filled in.
func newRecord(size int, serial uint32) []byte {
	b := make([]byte, size)
	binary.LittleEndian.PutUint32(b[0:4], uint32(size))
	binary.LittleEndian.PutUint32(b[4:8], serial)
	return b
}

func encodeCheckVersion(version uint32) []byte {
	b := make([]byte, checkVersionSize)
	binary.LittleEndian.PutUint32(b[0:4], checkVersionSize)
	binary.LittleEndian.PutUint32(b[4:8], version)
	return b
}

func encodePlugTarget(serial uint32, t Target) []byte {
	b := newRecord(plugTargetSize, serial)
	binary.LittleEndian.PutUint32(b[8:12], uint32(t.Kind))
	binary.LittleEndian.PutUint16(b[12:14], t.VendorID)
	binary.LittleEndian.PutUint16(b[14:16], t.ProductID)
	return b
}

func encodeUnplugTarget(serial uint32) []byte {
	return newRecord(unplugTargetSize, serial)
}

func encodeWaitDeviceReady(serial uint32) []byte {
	return newRecord(waitDeviceReadySize, serial)
}

func encodeXusbSubmitReport(serial uint32, r *xbox360.Report) ([]byte, error) {
	report, err := r.MarshalBinary()
	if err != nil {
		return nil, err
	}
	b := newRecord(xusbSubmitReportSize, serial)
	copy(b[8:8+xbox360.ReportSize], report)
	return b, nil
}

// encodeDS4SubmitReport wraps the 9-byte basic report. The record is padded
// to 20 bytes but the size field stays 20 either way; the driver picks the
// report flavor from the size field, so the padding must remain zero.
func encodeDS4SubmitReport(serial uint32, r *dualshock4.Report) ([]byte, error) {
	report, err := r.MarshalBinary()
	if err != nil {
		return nil, err
	}
	b := newRecord(ds4SubmitReportSize, serial)
	copy(b[8:8+dualshock4.ReportSize], report)
	return b, nil
}

func encodeDS4SubmitReportEx(serial uint32, r *dualshock4.ReportEx) ([]byte, error) {
	report, err := r.MarshalBinary()
	if err != nil {
		return nil, err
	}
	b := newRecord(ds4SubmitReportExSize, serial)
	copy(b[8:8+dualshock4.ReportExSize], report)
	return b, nil
}

func encodeXusbGetUserIndex(serial uint32) []byte {
	return newRecord(xusbUserIndexSize, serial)
}

func decodeXusbUserIndex(resp []byte) (uint32, error) {
	if len(resp) < xusbUserIndexSize {
		return 0, fmt.Errorf("user index response too short: %d bytes", len(resp))
	}
	return binary.LittleEndian.Uint32(resp[8:12]), nil
}
