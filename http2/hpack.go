package http2

import (
	"golang.org/x/net/http2/hpack"
)

// HeaderDecoder turns HPACK header block fragments into ordered header
// lists. Implementations are stateful: one decoder serves a whole
// connection so the dynamic table carries over between header blocks.
// A decode failure poisons the compression state and is fatal for the
// connection.
type HeaderDecoder interface {
	Decode(block []byte) ([]hpack.HeaderField, error)
}

type hpackDecoder struct {
	dec    *hpack.Decoder
	fields []hpack.HeaderField
}

// NewHeaderDecoder returns the hpack-backed decoder a Conn uses unless
// Options.Decoder swaps in another implementation.
func NewHeaderDecoder() HeaderDecoder {
	d := &hpackDecoder{}
	d.dec = hpack.NewDecoder(4096, func(f hpack.HeaderField) {
		d.fields = append(d.fields, f)
	})
	return d
}

func (d *hpackDecoder) Decode(block []byte) ([]hpack.HeaderField, error) {
	d.fields = nil
	if _, err := d.dec.Write(block); err != nil {
		return nil, connError(ErrCodeCompression, "hpack: %v", err)
	}
	if err := d.dec.Close(); err != nil {
		return nil, connError(ErrCodeCompression, "hpack: %v", err)
	}
	return d.fields, nil
}
