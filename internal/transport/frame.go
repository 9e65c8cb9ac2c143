// internal/transport/frame.go
package transport

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFrameBytes bounds a single frame; a full-screen PNG is far below it.
const DefaultMaxFrameBytes = 64 << 20

var (
	// ErrFrameTooLarge is returned when a length prefix exceeds the limit.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	// ErrBadFrame is returned for payloads whose inner structure is inconsistent.
	ErrBadFrame = errors.New("malformed frame payload")
)

// Metadata travels alongside the image bytes.
type Metadata struct {
	FrameID string `json:"frame_id"`
	VMEvent string `json:"vm_event"`
	Hash    string `json:"hash"`
	TsMs    int64  `json:"ts_ms"`
}

// Frame is one screenshot on the wire.
type Frame struct {
	Meta  Metadata
	Image []byte
}

// EncodePayload lays out [4-byte BE meta length][meta JSON][image].
func EncodePayload(f Frame) ([]byte, error) {
	meta, err := json.Marshal(f.Meta)
	if err != nil {
		return nil, fmt.Errorf("encode frame metadata: %w", err)
	}
	buf := make([]byte, 4+len(meta)+len(f.Image))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(meta)))
	copy(buf[4:], meta)
	copy(buf[4+len(meta):], f.Image)
	return buf, nil
}

// DecodePayload is the inverse of EncodePayload.
func DecodePayload(p []byte) (Frame, error) {
	if len(p) < 4 {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrBadFrame, len(p))
	}
	n := binary.BigEndian.Uint32(p[:4])
	if uint64(n) > uint64(len(p)-4) {
		return Frame{}, fmt.Errorf("%w: metadata length %d exceeds payload", ErrBadFrame, n)
	}
	var f Frame
	if err := json.Unmarshal(p[4:4+n], &f.Meta); err != nil {
		return Frame{}, fmt.Errorf("%w: metadata: %v", ErrBadFrame, err)
	}
	f.Image = p[4+n:]
	return f, nil
}

// WriteFrame writes the outer 4-byte big-endian length and the payload.
func WriteFrame(w io.Writer, f Frame, maxBytes uint32) error {
	payload, err := EncodePayload(f)
	if err != nil {
		return err
	}
	if uint64(len(payload)) > uint64(maxBytes) {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(payload), maxBytes)
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// ReadFrame reads one frame, refusing lengths above maxBytes before allocating.
func ReadFrame(r io.Reader, maxBytes uint32) (Frame, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxBytes {
		return Frame{}, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, maxBytes)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("read frame payload: %w", err)
	}
	return DecodePayload(payload)
}
