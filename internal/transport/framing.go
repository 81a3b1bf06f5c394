// internal/transport/framing.go
package transport

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize is the largest payload a 2-byte length prefix can carry.
const MaxFrameSize = 1<<16 - 1

// WriteFrame writes payload preceded by its big-endian uint16 length.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds %d", len(payload), MaxFrameSize)
	}

	frame := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(frame, uint16(len(payload)))
	copy(frame[2:], payload)

	n, err := w.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("expected %d sent %d bytes", len(frame), n)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame into buf and returns the number
// of bytes stored. Bytes beyond len(buf) are consumed and dropped so the
// stream stays aligned on frame boundaries.
func ReadFrame(r io.Reader, buf []byte) (int, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	size := int(binary.BigEndian.Uint16(hdr[:]))

	keep := min(size, len(buf))
	if _, err := io.ReadFull(r, buf[:keep]); err != nil {
		return 0, fmt.Errorf("expected frame of %d bytes: %w", size, err)
	}
	if rest := size - keep; rest > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(rest)); err != nil {
			return 0, fmt.Errorf("expected frame of %d bytes: %w", size, err)
		}
	}
	return keep, nil
}
