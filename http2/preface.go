package http2

import (
	"fmt"
	"io"
)

// ReadPreface consumes and checks the fixed 24-byte client connection
// preface. It must be the first read on every accepted connection, TLS
// included: ALPN selects the protocol but does not replace the preface
// (RFC 9113 §3.4). On error the caller closes the connection without any
// further protocol activity.
func ReadPreface(r io.Reader) error {
	buf := make([]byte, len(ClientPreface))
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("reading connection preface: %w", err)
	}
	if string(buf) != ClientPreface {
		return fmt.Errorf("invalid connection preface %q", buf)
	}
	return nil
}
