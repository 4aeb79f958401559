package base

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
)

const headerSize = 24

// maxPayload is the largest payload one frame can carry
const maxPayload = math.MaxUint32

// ErrFrameTooLarge is returned for a payload that does not fit the length
// field of a frame
var ErrFrameTooLarge = errors.New("payload exceeds the frame size limit")

// frameLength returns the length field for a payload of n bytes
func frameLength(n uint64) (uint32, error) {
	if n > maxPayload {
		return 0, fmt.Errorf("%w: %d bytes, at most %d per frame", ErrFrameTooLarge, n, uint64(maxPayload))
	}
	return uint32(n), nil
}

// writeFrame writes a frame to the connection with the format:
// - 8 bytes: communicator context (uint64, big endian)
// - 8 bytes: collective sequence number (uint64, big endian)
// - 4 bytes: source rank (uint32, big endian)
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func writeFrame(conn net.Conn, context, seq uint64, src int, data []byte) error {
	length, err := frameLength(uint64(len(data)))
	if err != nil {
		return err
	}

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint64(header[:8], context)
	binary.BigEndian.PutUint64(header[8:16], seq)
	binary.BigEndian.PutUint32(header[16:20], uint32(src))
	binary.BigEndian.PutUint32(header[20:24], length)

	b := net.Buffers{header, data}
	_, err = b.WriteTo(conn)
	return err
}

// frame is one decoded message
type frame struct {
	context uint64
	seq     uint64
	src     int
	data    []byte
}

// readFrame reads a frame from the connection using the provided buffer.
// The returned data aliases buf when it is large enough, so callers that keep
// the payload must copy it.
func readFrame(conn net.Conn, buf []byte) (frame, error) {
	if len(buf) < headerSize {
		buf = make([]byte, headerSize)
	}

	if _, err := io.ReadFull(conn, buf[:headerSize]); err != nil {
		return frame{}, err
	}

	f := frame{
		context: binary.BigEndian.Uint64(buf[:8]),
		seq:     binary.BigEndian.Uint64(buf[8:16]),
		src:     int(binary.BigEndian.Uint32(buf[16:20])),
	}
	contentLength := binary.BigEndian.Uint32(buf[20:24])

	if contentLength == 0 {
		f.data = []byte{}
		return f, nil
	}

	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}

	if _, err := io.ReadFull(conn, buf[:contentLength]); err != nil {
		return frame{}, err
	}

	f.data = buf[:contentLength]
	return f, nil
}
