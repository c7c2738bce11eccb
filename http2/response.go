package http2

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/http2/hpack"
)

// Request is one decoded HEADERS frame with the pseudo-headers lifted out.
type Request struct {
	Method    string
	Path      string
	Scheme    string
	Authority string
	Headers   map[string]string
	StreamID  uint32
}

// Response is what a Handler returns. A zero Status is served as 200, and a
// content-length header is filled in from Body unless already present.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// Handler produces the response for one request. Handlers run on the
// connection's goroutine, one request at a time; returning nil serves an
// empty 200.
type Handler func(*Request) *Response

// DefaultHandler answers every request with a small plain-text page. It is
// used when Options.Handler is nil.
func DefaultHandler(req *Request) *Response {
	return &Response{
		Status:  200,
		Headers: map[string]string{"content-type": "text/plain; charset=utf-8"},
		Body:    []byte("Hello, world!"),
	}
}

// newRequest assembles a Request from a decoded header list. Pseudo-headers
// become struct fields; :authority doubles as the host header the way
// HTTP/1.1 handlers expect it.
func newRequest(streamID uint32, fields []hpack.HeaderField) *Request {
	req := &Request{StreamID: streamID, Headers: make(map[string]string, len(fields))}
	for _, hf := range fields {
		if strings.HasPrefix(hf.Name, ":") {
			switch hf.Name {
			case ":method":
				req.Method = hf.Value
			case ":path":
				req.Path = hf.Value
			case ":scheme":
				req.Scheme = hf.Value
			case ":authority":
				req.Authority = hf.Value
				req.Headers["host"] = hf.Value
			}
			continue
		}
		req.Headers[hf.Name] = hf.Value
	}
	return req
}

// writeResponse hpack-encodes the response headers and emits a HEADERS
// frame (END_HEADERS) followed by the DATA frames carrying the body, the
// last one flagged END_STREAM. Bodies larger than the peer's window or the
// frame-size limit are split.
func (c *Conn) writeResponse(streamID uint32, resp *Response) error {
	if resp == nil {
		resp = &Response{}
	}
	status := resp.Status
	if status == 0 {
		status = 200
	}

	c.hbuf.Reset()
	c.henc.WriteField(hpack.HeaderField{Name: ":status", Value: strconv.Itoa(status)})
	hasLength := false
	for name, value := range resp.Headers {
		name = strings.ToLower(name)
		if name == "content-length" {
			hasLength = true
		}
		c.henc.WriteField(hpack.HeaderField{Name: name, Value: value})
	}
	if !hasLength {
		c.henc.WriteField(hpack.HeaderField{Name: "content-length", Value: strconv.Itoa(len(resp.Body))})
	}

	if err := WriteFrame(c.conn, HeadersFrameType, EndHeadersFlag, streamID, c.hbuf.Bytes()); err != nil {
		return fmt.Errorf("writing HEADERS for stream %d: %w", streamID, err)
	}

	max := int(DefaultMaxFrameSize)
	if w := int(c.settings.InitialWindowSize); w > 0 && w < max {
		max = w
	}
	body := resp.Body
	for {
		chunk := body
		if len(chunk) > max {
			chunk = chunk[:max]
		}
		body = body[len(chunk):]
		var flags byte
		if len(body) == 0 {
			flags = EndStreamFlag
		}
		if err := WriteFrame(c.conn, DataFrameType, flags, streamID, chunk); err != nil {
			return fmt.Errorf("writing DATA for stream %d: %w", streamID, err)
		}
		if len(body) == 0 {
			return nil
		}
	}
}
