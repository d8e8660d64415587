package vigem

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Alia5/vigem/device/dualshock4"
	"github.com/Alia5/vigem/device/xbox360"
	"github.com/Alia5/vigem/internal/bus"
	"github.com/Alia5/vigem/internal/bustest"
	"github.com/Alia5/vigem/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(dev *bustest.Device, maxTargets uint32) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := bus.New(dev, logger, log.NewRaw(nil))
	return newClient(b, Config{MaxTargets: maxTargets, Logger: logger})
}

func plugSerial(req bustest.Request) uint32 {
	return binary.LittleEndian.Uint32(req.In[4:8])
}

func TestPlugAssignsLowestFreeSerial(t *testing.T) {
	dev := &bustest.Device{}
	c := newTestClient(dev, 8)

	for want := uint32(1); want <= 3; want++ {
		pad, err := c.PlugXbox360(nil)
		require.NoError(t, err)
		assert.Equal(t, want, pad.Serial())
	}

	reqs := dev.Requests(bus.CodePlugTarget)
	require.Len(t, reqs, 3)
	for i, req := range reqs {
		assert.Equal(t, uint32(i+1), plugSerial(req))
	}
}

func TestUnplugFreesSlotForReuse(t *testing.T) {
	dev := &bustest.Device{}
	c := newTestClient(dev, 8)

	_, err := c.PlugXbox360(nil)
	require.NoError(t, err)
	second, err := c.PlugXbox360(nil)
	require.NoError(t, err)
	_, err = c.PlugXbox360(nil)
	require.NoError(t, err)

	require.NoError(t, second.Unplug())

	reused, err := c.PlugDualShock4(nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), reused.Serial(), "freed slot is reused before higher ones")
}

func TestPlugSkipsSlotsTheDriverRefuses(t *testing.T) {
	dev := &bustest.Device{}
	dev.Respond(bus.CodePlugTarget, func(req bustest.Request) ([]byte, error) {
		if plugSerial(req) == 1 {
			return nil, errors.New("slot owned by another client")
		}
		return nil, nil
	})
	c := newTestClient(dev, 8)

	pad, err := c.PlugXbox360(nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), pad.Serial())
}

func TestPlugExhaustionReturnsErrNoFreeSlot(t *testing.T) {
	dev := &bustest.Device{}
	c := newTestClient(dev, 2)

	_, err := c.PlugXbox360(nil)
	require.NoError(t, err)
	_, err = c.PlugDualShock4(nil)
	require.NoError(t, err)

	_, err = c.PlugXbox360(nil)
	assert.ErrorIs(t, err, ErrNoFreeSlot)
	assert.Equal(t, 2, dev.CallCount(bus.CodePlugTarget), "no plug attempt without a free slot")
}

func TestPlugAppliesTargetOptions(t *testing.T) {
	dev := &bustest.Device{}
	c := newTestClient(dev, 4)

	_, err := c.PlugXbox360(&TargetOptions{VendorID: 0x1234})
	require.NoError(t, err)

	reqs := dev.Requests(bus.CodePlugTarget)
	require.Len(t, reqs, 1)
	assert.Equal(t, []byte{0x34, 0x12}, reqs[0].In[12:14], "overridden vendor id")
	assert.Equal(t, []byte{0x8E, 0x02}, reqs[0].In[14:16], "default product id kept")
}

func TestCloneReleasesOnce(t *testing.T) {
	dev := &bustest.Device{}
	c := newTestClient(dev, 4)

	pad, err := c.PlugXbox360(nil)
	require.NoError(t, err)
	second := pad.Clone()
	third := second.Clone()

	require.NoError(t, pad.Close())
	require.NoError(t, second.Update(&xbox360.Report{}), "remaining clones keep working")
	require.NoError(t, second.Close())
	require.NoError(t, second.Close(), "double close is a no-op")
	assert.Zero(t, dev.CallCount(bus.CodeUnplugTarget))

	require.NoError(t, third.Close())
	assert.Equal(t, 1, dev.CallCount(bus.CodeUnplugTarget), "last close unplugs exactly once")
}

func TestUnplugInvalidatesClones(t *testing.T) {
	dev := &bustest.Device{}
	c := newTestClient(dev, 4)

	pad, err := c.PlugDualShock4(nil)
	require.NoError(t, err)
	clone := pad.Clone()

	require.NoError(t, pad.Unplug())

	err = clone.Update(dualshock4.NewReport())
	var te *TargetError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, uint32(1), te.Serial)

	require.NoError(t, clone.Close(), "closing a dead clone is a no-op")
	assert.Equal(t, 1, dev.CallCount(bus.CodeUnplugTarget))
}

func TestStaleHandleCannotReachReusedSlot(t *testing.T) {
	dev := &bustest.Device{}
	c := newTestClient(dev, 4)

	pad, err := c.PlugXbox360(nil)
	require.NoError(t, err)
	stale := pad.Clone()
	require.NoError(t, pad.Unplug())

	replacement, err := c.PlugXbox360(nil)
	require.NoError(t, err)
	require.Equal(t, uint32(1), replacement.Serial(), "slot must be reused for this test")

	err = stale.Update(&xbox360.Report{})
	var te *TargetError
	assert.ErrorAs(t, err, &te, "a stale handle must not drive the slot's new owner")

	require.NoError(t, replacement.Update(&xbox360.Report{}))
	require.NoError(t, stale.Close())
	assert.Equal(t, 1, dev.CallCount(bus.CodeUnplugTarget), "stale close must not unplug the new target")
}

func TestAttached(t *testing.T) {
	dev := &bustest.Device{}
	c := newTestClient(dev, 4)

	pad, err := c.PlugXbox360(nil)
	require.NoError(t, err)

	attached, err := pad.Attached()
	require.NoError(t, err)
	assert.True(t, attached)

	require.NoError(t, pad.Unplug())
	attached, err = pad.Attached()
	require.NoError(t, err)
	assert.False(t, attached)
}

func TestOperationsAfterClientClose(t *testing.T) {
	dev := &bustest.Device{}
	c := newTestClient(dev, 4)

	pad, err := c.PlugXbox360(nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	assert.ErrorIs(t, pad.Update(&xbox360.Report{}), ErrClientClosed)
	_, err = pad.UserIndex()
	assert.ErrorIs(t, err, ErrClientClosed)
	_, err = pad.Attached()
	assert.ErrorIs(t, err, ErrClientClosed)
	_, err = c.PlugDualShock4(nil)
	assert.ErrorIs(t, err, ErrClientClosed)

	assert.NoError(t, pad.Close(), "handle close after client close is a no-op")
	assert.NoError(t, c.Close(), "closing twice is a no-op")
}

func TestCloseUnplugsEverything(t *testing.T) {
	dev := &bustest.Device{}
	dev.Fail(bus.CodeUnplugTarget, errors.New("driver gone"))
	c := newTestClient(dev, 8)

	for i := 0; i < 3; i++ {
		_, err := c.PlugXbox360(nil)
		require.NoError(t, err)
	}

	require.NoError(t, c.Close(), "unplug failures must not abort the teardown")
	assert.Equal(t, 3, dev.CallCount(bus.CodeUnplugTarget), "one attempt per plugged target")
	assert.True(t, dev.Closed())
}

func TestUserIndexThroughHandle(t *testing.T) {
	dev := &bustest.Device{}
	dev.Respond(bus.CodeXusbGetUserIndex, func(req bustest.Request) ([]byte, error) {
		resp := append([]byte(nil), req.In...)
		resp[8] = 3
		return resp, nil
	})
	c := newTestClient(dev, 4)

	pad, err := c.PlugXbox360(nil)
	require.NoError(t, err)

	idx, err := pad.UserIndex()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), idx)
}

func TestNotificationsThroughHandle(t *testing.T) {
	dev := &bustest.Device{}
	feed := make(chan []byte, 1)
	dev.Respond(bus.CodeDS4RequestNotification, func(bustest.Request) ([]byte, error) {
		rec, ok := <-feed
		if !ok {
			return nil, errors.New("poll aborted")
		}
		return rec, nil
	})
	c := newTestClient(dev, 4)

	pad, err := c.PlugDualShock4(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	values, _, err := pad.Notifications(ctx)
	require.NoError(t, err)

	feed <- []byte{0x10, 0, 0, 0, 0x01, 0, 0, 0, 0x44, 0x55, 0x01, 0x02, 0x03, 0, 0, 0}
	select {
	case got := <-values:
		assert.Equal(t, dualshock4.OutputState{
			LargeMotor: 0x44,
			SmallMotor: 0x55,
			Lightbar:   dualshock4.Lightbar{Red: 0x01, Green: 0x02, Blue: 0x03},
		}, got)
	case <-time.After(1 * time.Second):
		t.Fatal("notification was not delivered within timeout")
	}
	close(feed)
}

func TestNotificationsOnDeadHandleFail(t *testing.T) {
	dev := &bustest.Device{}
	c := newTestClient(dev, 4)

	pad, err := c.PlugXbox360(nil)
	require.NoError(t, err)
	require.NoError(t, pad.Unplug())

	_, _, err = pad.Notifications(context.Background())
	var te *TargetError
	assert.ErrorAs(t, err, &te)
}

func TestWaitReadyOnQuietTarget(t *testing.T) {
	dev := &bustest.Device{}
	hold := make(chan struct{})
	defer close(hold)
	dev.Respond(bus.CodeXusbRequestNotification, func(bustest.Request) ([]byte, error) {
		<-hold
		return nil, errors.New("poll aborted")
	})
	c := newTestClient(dev, 4)

	pad, err := c.PlugXbox360(nil)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, pad.WaitReady())
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 450*time.Millisecond, "a quiet target is ready after the first window")
	assert.Less(t, elapsed, 3*time.Second)
}
