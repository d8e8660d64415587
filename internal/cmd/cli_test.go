package cmd

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUSBID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    uint16
		wantErr bool
	}{
		{name: "plain hex", in: "045E", want: 0x045E},
		{name: "0x prefix", in: "0x054C", want: 0x054C},
		{name: "lowercase", in: "28e", want: 0x028E},
		{name: "not hex", in: "xyz", wantErr: true},
		{name: "too wide", in: "12345", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseUSBID(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTargetOptions(t *testing.T) {
	opts, err := targetOptions("045E", "")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x045E), opts.VendorID)
	assert.Zero(t, opts.ProductID, "empty override keeps the kind default")

	_, err = targetOptions("", "nope")
	require.Error(t, err)
}

func TestConsumeStopsAtCount(t *testing.T) {
	values := make(chan int, 4)
	errs := make(chan error, 1)
	values <- 1
	values <- 2
	values <- 3

	var seen []int
	err := consume(context.Background(), 2, values, errs, func(v int) { seen = append(seen, v) })
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestConsumeReturnsStreamError(t *testing.T) {
	values := make(chan int)
	errs := make(chan error, 1)
	streamErr := errors.New("poll failed")
	errs <- streamErr
	close(values)
	close(errs)

	err := consume(context.Background(), 0, values, errs, func(int) {})
	assert.ErrorIs(t, err, streamErr)
}

func TestConsumeEndsWithClosedStream(t *testing.T) {
	values := make(chan int)
	errs := make(chan error)
	close(values)
	close(errs)

	emitted := false
	err := consume(context.Background(), 0, values, errs, func(int) { emitted = true })
	require.NoError(t, err)
	assert.False(t, emitted)
}

func TestConsumeStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	values := make(chan int)
	errs := make(chan error)
	err := consume(ctx, 0, values, errs, func(int) {})
	assert.NoError(t, err)
}

func TestConfigTemplateCoversCommandFlags(t *testing.T) {
	root := buildMapFromStruct(reflect.TypeOf(Plug{}))
	assert.Equal(t, "x360", root["kind"])
	assert.Equal(t, int64(1), root["count"])
	assert.Contains(t, root, "vid")
	assert.Contains(t, root, "noWait")

	root = buildMapFromStruct(reflect.TypeOf(Drive{}))
	assert.Equal(t, "16ms", root["rate"], "durations keep their kong default spelling")
}
