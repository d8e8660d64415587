package bus

import (
	"fmt"

	"github.com/Alia5/vigem/device/dualshock4"
	"github.com/Alia5/vigem/device/xbox360"
)

// notifier is one notification poll flavor: it builds the request record
// for a target and decodes the record the driver copies back. The request
// reserves room for the response fields, which stay zero on the way in.
type notifier[N any] interface {
	code() uint32
	request(serial uint32) []byte
	decode(resp []byte) (N, error)
}

// xusbNotifier polls rumble and LED feedback for an Xbox 360 target.
type xusbNotifier struct{}

func (xusbNotifier) code() uint32 { return CodeXusbRequestNotification }

func (xusbNotifier) request(serial uint32) []byte {
	return newRecord(xusbNotificationSize, serial)
}

func (xusbNotifier) decode(resp []byte) (xbox360.OutputState, error) {
	var out xbox360.OutputState
	if len(resp) < xusbNotificationSize {
		return out, fmt.Errorf("notification response too short: %d bytes", len(resp))
	}
	if err := out.UnmarshalBinary(resp[8:11]); err != nil {
		return out, err
	}
	return out, nil
}

// ds4Notifier polls decoded rumble and lightbar feedback for a DualShock 4
// target.
type ds4Notifier struct{}

func (ds4Notifier) code() uint32 { return CodeDS4RequestNotification }

func (ds4Notifier) request(serial uint32) []byte {
	return newRecord(ds4NotificationSize, serial)
}

func (ds4Notifier) decode(resp []byte) (dualshock4.OutputState, error) {
	var out dualshock4.OutputState
	if len(resp) < ds4NotificationSize {
		return out, fmt.Errorf("notification response too short: %d bytes", len(resp))
	}
	if err := out.UnmarshalBinary(resp[8:13]); err != nil {
		return out, err
	}
	return out, nil
}

// ds4OutputNotifier polls raw undecoded USB output reports for a
// DualShock 4 target.
type ds4OutputNotifier struct{}

func (ds4OutputNotifier) code() uint32 { return CodeDS4AwaitOutput }

func (ds4OutputNotifier) request(serial uint32) []byte {
	return newRecord(ds4AwaitOutputSize, serial)
}

func (ds4OutputNotifier) decode(resp []byte) (dualshock4.OutputBuffer, error) {
	var buf dualshock4.OutputBuffer
	if len(resp) < ds4AwaitOutputSize {
		return buf, fmt.Errorf("output report response too short: %d bytes", len(resp))
	}
	copy(buf[:], resp[8:8+dualshock4.OutputBufferSize])
	return buf, nil
}
