// Package wire implements the cips length-prefixed packet framing: a
// 4-byte big-endian length header followed by exactly that many
// payload bytes, no terminator. This replaces the line-oriented
// framing of the teacher's protocol with the binary framing this
// protocol's clients require.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxPacket is the default cap on a single packet's payload size.
const DefaultMaxPacket = 1 << 20 // 1 MiB

// ErrProtocol indicates a malformed frame (short header, read past EOF
// mid-payload).
var ErrProtocol = errors.New("wire: protocol error")

// ErrTooLarge indicates a frame's declared length exceeds the configured cap.
var ErrTooLarge = errors.New("wire: packet too large")

const headerLen = 4

// Send writes payload as a single framed packet: a 4-byte big-endian
// length header followed by payload. Handles short writes by looping
// until the full frame is written or an error occurs.
func Send(w io.Writer, payload []byte) error {
	var header [headerLen]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))

	if err := writeFull(w, header[:]); err != nil {
		return fmt.Errorf("wire: write header: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if err := writeFull(w, payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

// Recv reads a single framed packet from r, enforcing maxPacket as the
// cap on the declared payload length. A maxPacket of 0 uses
// DefaultMaxPacket. Returns io.EOF only when the connection is closed
// cleanly before any byte of a new frame is read; a partial header or
// payload read that hits EOF is reported as ErrProtocol.
func Recv(r io.Reader, maxPacket int) ([]byte, error) {
	if maxPacket <= 0 {
		maxPacket = DefaultMaxPacket
	}

	var header [headerLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: reading header: %v", ErrProtocol, err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if int(length) > maxPacket {
		// Drain the declared payload so the stream stays frame-aligned
		// for the caller's next Recv, even though this frame is rejected.
		if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
			return nil, fmt.Errorf("%w: draining oversized payload: %v", ErrProtocol, err)
		}
		return nil, fmt.Errorf("%w: declared length %d exceeds cap %d", ErrTooLarge, length, maxPacket)
	}
	if length == 0 {
		return []byte{}, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: reading payload: %v", ErrProtocol, err)
	}
	return payload, nil
}

func writeFull(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}
