// Package bustest provides an in-memory bus device so the transport,
// registry and handle logic can be exercised without the driver.
package bustest

import (
	"errors"
	"sync"

	"github.com/Alia5/vigem/internal/bus"
)

// Request is one control request the device received.
type Request struct {
	Code uint32
	In   []byte
}

// Responder produces the response record for one request. It runs on the
// caller of Call.Wait, so a Responder that blocks models a poll the driver
// holds until host feedback arrives.
type Responder func(req Request) ([]byte, error)

// Device implements bus.Device in memory. Requests without a scripted
// Responder succeed with an all-zero response. The zero value is ready to
// use.
type Device struct {
	mu         sync.Mutex
	requests   []Request
	responders map[uint32]Responder
	submitErrs map[uint32]error
	closed     bool
}

// Respond scripts the response for every request with the given code.
func (d *Device) Respond(code uint32, r Responder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.responders == nil {
		d.responders = make(map[uint32]Responder)
	}
	d.responders[code] = r
}

// Fail makes every request with the given code complete with err.
func (d *Device) Fail(code uint32, err error) {
	d.Respond(code, func(Request) ([]byte, error) { return nil, err })
}

// FailSubmit makes Submit itself reject requests with the given code.
func (d *Device) FailSubmit(code uint32, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.submitErrs == nil {
		d.submitErrs = make(map[uint32]error)
	}
	d.submitErrs[code] = err
}

// Requests returns a copy of every request received so far with the given
// code, in submission order.
func (d *Device) Requests(code uint32) []Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Request
	for _, r := range d.requests {
		if r.Code == code {
			out = append(out, r)
		}
	}
	return out
}

// CallCount returns how many requests with the given code were submitted.
func (d *Device) CallCount(code uint32) int {
	return len(d.Requests(code))
}

// Closed reports whether Close was called.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Device) Submit(code uint32, req, resp []byte) (bus.Call, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New("device closed")
	}
	if err := d.submitErrs[code]; err != nil {
		return nil, err
	}
	in := append([]byte(nil), req...)
	d.requests = append(d.requests, Request{Code: code, In: in})
	return &call{req: Request{Code: code, In: in}, resp: resp, responder: d.responders[code]}, nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

type call struct {
	req       Request
	resp      []byte
	responder Responder
}

func (c *call) Wait() (uint32, error) {
	if c.responder == nil {
		for i := range c.resp {
			c.resp[i] = 0
		}
		return uint32(len(c.resp)), nil
	}
	out, err := c.responder(c.req)
	if err != nil {
		return 0, err
	}
	return uint32(copy(c.resp, out)), nil
}

func (c *call) Close() {}
