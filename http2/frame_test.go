package http2

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameHeaderRoundTrip(t *testing.T) {
	headers := []FrameHeader{
		{Length: 0, Type: SettingsFrameType, Flags: 0, StreamID: 0},
		{Length: 13, Type: DataFrameType, Flags: EndStreamFlag, StreamID: 1},
		{Length: 16384, Type: HeadersFrameType, Flags: EndHeadersFlag | EndStreamFlag, StreamID: 7},
		{Length: 1<<24 - 1, Type: GoAwayFrameType, Flags: 0xff, StreamID: 1<<31 - 1},
	}
	for _, h := range headers {
		buf := EncodeFrameHeader(h)
		if got := DecodeFrameHeader(buf); got != h {
			t.Errorf("DecodeFrameHeader(EncodeFrameHeader(%+v)) = %+v", h, got)
		}
	}
}

func TestFrameHeaderRoundTripBytes(t *testing.T) {
	// any 9 bytes with a zero reserved bit must survive decode then encode
	bufs := [][9]byte{
		{0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00},
		{0x00, 0x00, 0x0d, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01},
		{0x12, 0x34, 0x56, 0x08, 0xa5, 0x7f, 0xff, 0xff, 0xff},
	}
	for _, buf := range bufs {
		if got := EncodeFrameHeader(DecodeFrameHeader(buf)); got != buf {
			t.Errorf("EncodeFrameHeader(DecodeFrameHeader(% x)) = % x", buf, got)
		}
	}
}

func TestDecodeFrameHeaderMasksReservedBit(t *testing.T) {
	buf := [9]byte{0x00, 0x00, 0x00, 0x08, 0x00, 0xff, 0xff, 0xff, 0xff}
	if got := DecodeFrameHeader(buf).StreamID; got != 0x7fffffff {
		t.Errorf("StreamID = 0x%x, want 0x7fffffff", got)
	}
}

func TestEncodeFrameHeaderClearsReservedBit(t *testing.T) {
	buf := EncodeFrameHeader(FrameHeader{Type: DataFrameType, StreamID: 1<<31 | 5})
	if buf[5]&0x80 != 0 {
		t.Errorf("reserved bit set in wire header % x", buf)
	}
	if got := DecodeFrameHeader(buf).StreamID; got != 5 {
		t.Errorf("StreamID = %d, want 5", got)
	}
}

func TestWriteReadFrame(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello frame")
	if err := WriteFrame(&buf, HeadersFrameType, EndHeadersFlag, 3, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	f, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.Type != HeadersFrameType || f.Flags != EndHeadersFlag || f.StreamID != 3 {
		t.Errorf("frame header = %+v", f.FrameHeader)
	}
	if f.Length != uint32(len(payload)) || !bytes.Equal(f.Payload, payload) {
		t.Errorf("payload = %q (declared %d), want %q", f.Payload, f.Length, payload)
	}
}

func TestWriteFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, SettingsFrameType, AckFlag, 0, nil); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if buf.Len() != 9 {
		t.Fatalf("wrote %d bytes, want 9", buf.Len())
	}
	f, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.Length != 0 || len(f.Payload) != 0 {
		t.Errorf("length = %d payload = %q, want empty", f.Length, f.Payload)
	}
}

func TestReadFrameShortHeader(t *testing.T) {
	if _, err := ReadFrame(bytes.NewReader([]byte{0x00, 0x00})); err == nil {
		t.Fatal("ReadFrame accepted a truncated header")
	}
}

func TestReadFrameShortPayload(t *testing.T) {
	var buf bytes.Buffer
	hdr := EncodeFrameHeader(FrameHeader{Length: 10, Type: DataFrameType, StreamID: 1})
	buf.Write(hdr[:])
	buf.WriteString("abc")
	_, err := ReadFrame(&buf)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestReadFrameLimit(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, DataFrameType, 0, 1, make([]byte, 100)); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	_, err := readFrameLimit(&buf, 50)
	var ce ConnError
	if !errors.As(err, &ce) || ce.Code != ErrCodeFrameSize {
		t.Fatalf("err = %v, want FRAME_SIZE_ERROR", err)
	}
}
