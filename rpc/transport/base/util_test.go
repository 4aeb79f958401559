package base

import (
	"bytes"
	"errors"
	"math"
	"net"
	"testing"
)

func TestFrameLength(t *testing.T) {
	for _, n := range []uint64{0, 1, 512 * 1024, math.MaxUint32} {
		got, err := frameLength(n)
		if err != nil || uint64(got) != n {
			t.Errorf("frameLength(%d) = %d, %v", n, got, err)
		}
	}
	for _, n := range []uint64{math.MaxUint32 + 1, 6 << 30} {
		if _, err := frameLength(n); !errors.Is(err, ErrFrameTooLarge) {
			t.Errorf("frameLength(%d): expected ErrFrameTooLarge, got %v", n, err)
		}
	}
}

func TestFrameRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload := bytes.Repeat([]byte{0x5A}, 3000)
	errCh := make(chan error, 1)
	go func() {
		errCh <- writeFrame(client, 7, 42, 3, payload)
	}()

	// the buffer is smaller than the payload and must be replaced
	f, err := readFrame(server, make([]byte, 64))
	if err != nil {
		t.Fatalf("readFrame failed: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}
	if f.context != 7 || f.seq != 42 || f.src != 3 || !bytes.Equal(f.data, payload) {
		t.Errorf("unexpected frame: context=%d seq=%d src=%d len=%d", f.context, f.seq, f.src, len(f.data))
	}
}
