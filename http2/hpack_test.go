package http2

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/net/http2/hpack"
)

// encodeHeaders encodes fields into one header block using enc, which
// writes into buf.
func encodeHeaders(t *testing.T, enc *hpack.Encoder, buf *bytes.Buffer, fields ...hpack.HeaderField) []byte {
	t.Helper()
	buf.Reset()
	for _, f := range fields {
		if err := enc.WriteField(f); err != nil {
			t.Fatalf("WriteField(%v): %v", f, err)
		}
	}
	block := make([]byte, buf.Len())
	copy(block, buf.Bytes())
	return block
}

func TestHeaderDecoderOrder(t *testing.T) {
	var buf bytes.Buffer
	enc := hpack.NewEncoder(&buf)
	want := []hpack.HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":path", Value: "/"},
		{Name: ":scheme", Value: "http"},
		{Name: "user-agent", Value: "osmium-test"},
	}
	block := encodeHeaders(t, enc, &buf, want...)

	got, err := NewHeaderDecoder().Decode(block)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("decoded %d fields, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Name != want[i].Name || got[i].Value != want[i].Value {
			t.Errorf("field %d = %s: %s, want %s: %s", i, got[i].Name, got[i].Value, want[i].Name, want[i].Value)
		}
	}
}

func TestHeaderDecoderDynamicTablePersists(t *testing.T) {
	var buf bytes.Buffer
	enc := hpack.NewEncoder(&buf)
	dec := NewHeaderDecoder()

	field := hpack.HeaderField{Name: "x-request-id", Value: "abc123"}
	first := encodeHeaders(t, enc, &buf, field)
	if _, err := dec.Decode(first); err != nil {
		t.Fatalf("Decode(first block): %v", err)
	}

	// the second block references the entry the first one indexed; it only
	// decodes if the decoder kept its dynamic table between blocks
	second := encodeHeaders(t, enc, &buf, field)
	if len(second) >= len(first) {
		t.Fatalf("second block is %d bytes, first %d; encoder did not index the field", len(second), len(first))
	}
	got, err := dec.Decode(second)
	if err != nil {
		t.Fatalf("Decode(second block): %v", err)
	}
	if len(got) != 1 || got[0].Name != field.Name || got[0].Value != field.Value {
		t.Fatalf("decoded %v, want %v", got, field)
	}
}

func TestHeaderDecoderMalformedBlock(t *testing.T) {
	// 0xff opens an indexed field whose prefix-coded index never terminates
	_, err := NewHeaderDecoder().Decode([]byte{0xff})
	var ce ConnError
	if !errors.As(err, &ce) {
		t.Fatalf("Decode(truncated block) = %v, want ConnError", err)
	}
	if ce.Code != ErrCodeCompression {
		t.Errorf("code = %s, want COMPRESSION_ERROR", ce.Code)
	}
}

func TestHeaderDecoderEmptyBlock(t *testing.T) {
	got, err := NewHeaderDecoder().Decode(nil)
	if err != nil {
		t.Fatalf("Decode(nil) = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("decoded %v from an empty block", got)
	}
}
