package http2

import (
	"encoding/binary"
	"fmt"
	"io"
)

// FrameHeader is the fixed 9-byte header that precedes every frame payload.
type FrameHeader struct {
	Length   uint32 // 24-bit payload byte count
	Type     byte
	Flags    byte
	StreamID uint32 // 31-bit, the reserved top wire bit is always masked off
}

// Frame is a decoded header plus its owned payload of exactly Length bytes.
type Frame struct {
	FrameHeader
	Payload []byte
}

// DecodeFrameHeader parses a 9-byte frame header. Any 9 bytes decode to a
// structurally valid header; whether the result makes sense for the current
// connection state is the dispatcher's concern.
func DecodeFrameHeader(buf [9]byte) FrameHeader {
	return FrameHeader{
		Length:   uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2]),
		Type:     buf[3],
		Flags:    buf[4],
		StreamID: binary.BigEndian.Uint32(buf[5:9]) & 0x7FFFFFFF,
	}
}

// EncodeFrameHeader is the inverse of DecodeFrameHeader. The reserved stream
// id bit is always written as zero. Every outgoing frame goes through here.
func EncodeFrameHeader(h FrameHeader) [9]byte {
	var buf [9]byte
	buf[0] = byte(h.Length >> 16)
	buf[1] = byte(h.Length >> 8)
	buf[2] = byte(h.Length)
	buf[3] = h.Type
	buf[4] = h.Flags
	binary.BigEndian.PutUint32(buf[5:9], h.StreamID&0x7FFFFFFF)
	return buf
}

// ReadFrame reads one whole frame: the 9-byte header, then exactly Length
// payload bytes. The payload buffer is freshly allocated and owned by the
// caller.
func ReadFrame(r io.Reader) (*Frame, error) {
	return readFrameLimit(r, 1<<24-1)
}

// readFrameLimit is ReadFrame with a payload cap, checked after the header
// so an oversized frame is rejected before any of its payload is read.
func readFrameLimit(r io.Reader, max uint32) (*Frame, error) {
	var hdr [9]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	f := &Frame{FrameHeader: DecodeFrameHeader(hdr)}
	if f.Length > max {
		return nil, connError(ErrCodeFrameSize, "%s frame of %d bytes exceeds the %d byte limit", FrameName(f.Type), f.Length, max)
	}
	if f.Length > 0 {
		f.Payload = make([]byte, f.Length)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return nil, fmt.Errorf("short %s payload: %w", FrameName(f.Type), err)
		}
	}
	return f, nil
}

// WriteFrame writes one whole frame to the given writer. The header length
// is always taken from len(payload).
func WriteFrame(w io.Writer, ft byte, flags byte, streamID uint32, payload []byte) error {
	hdr := EncodeFrameHeader(FrameHeader{
		Length:   uint32(len(payload)),
		Type:     ft,
		Flags:    flags,
		StreamID: streamID,
	})
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(payload) > 0 {
		_, err := w.Write(payload)
		return err
	}
	return nil
}
