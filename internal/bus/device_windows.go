//go:build windows

package bus

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// winDevice is an open overlapped handle to the bus device node.
type winDevice struct {
	handle windows.Handle
}

func openDevice(path string) (*winDevice, error) {
	pathUTF16, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, fmt.Errorf("Open: failed to convert device path: %w", err)
	}
	handle, err := windows.CreateFile(
		pathUTF16,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL|windows.FILE_FLAG_NO_BUFFERING|windows.FILE_FLAG_WRITE_THROUGH|windows.FILE_FLAG_OVERLAPPED,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("Open: failed to open bus device: %w", err)
	}
	return &winDevice{handle: handle}, nil
}

// Submit starts an overlapped DeviceIoControl. Each request gets its own
// completion event so any number can be in flight on the one handle.
func (d *winDevice) Submit(code uint32, req, resp []byte) (Call, error) {
	event, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("IOControl: failed to create completion event: %w", err)
	}
	call := &winCall{device: d.handle}
	call.overlapped.HEvent = event

	var in, out *byte
	var outLen uint32
	if len(req) > 0 {
		in = &req[0]
	}
	if len(resp) > 0 {
		out = &resp[0]
		outLen = uint32(len(resp))
	}

	err = windows.DeviceIoControl(d.handle, code, in, uint32(len(req)), out, outLen, &call.transferred, &call.overlapped)
	if err != nil && err != windows.ERROR_IO_PENDING {
		call.Close()
		return nil, fmt.Errorf("IOControl: DeviceIoControl failed: %w", err)
	}
	return call, nil
}

func (d *winDevice) Close() error {
	return windows.CloseHandle(d.handle)
}

// winCall is one in-flight overlapped request. It owns the completion
// event until Close.
type winCall struct {
	device      windows.Handle
	overlapped  windows.Overlapped
	transferred uint32
}

func (c *winCall) Wait() (uint32, error) {
	if err := windows.GetOverlappedResult(c.device, &c.overlapped, &c.transferred, true); err != nil {
		return 0, fmt.Errorf("IOControl: request failed: %w", err)
	}
	return c.transferred, nil
}

func (c *winCall) Close() {
	if c.overlapped.HEvent != 0 {
		_ = windows.CloseHandle(c.overlapped.HEvent)
		c.overlapped.HEvent = 0
	}
}
