package http2

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"golang.org/x/net/http2/hpack"
)

// State tracks where a connection is in its lifecycle. It only ever moves
// forward; Closed is terminal.
type State int

const (
	StateAwaitingPreface State = iota
	StateAwaitingServerSettings
	StateAwaitingClientSettings
	StateEstablished
	StateClosed
)

var stateNames = map[State]string{
	StateAwaitingPreface:        "AwaitingPreface",
	StateAwaitingServerSettings: "AwaitingServerSettings",
	StateAwaitingClientSettings: "AwaitingClientSettings",
	StateEstablished:            "Established",
	StateClosed:                 "Closed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type streamState int

const (
	stateOpen streamState = iota
	stateHalfClosedRemote
	stateClosed
)

// stream is the per-stream bookkeeping the dispatcher keeps. Idle streams
// have no entry in the connection's map.
type stream struct {
	state  streamState
	window int64
}

// Options configures a Conn. The zero value is usable.
type Options struct {
	// Handler produces responses for decoded requests. Nil serves
	// DefaultHandler.
	Handler Handler

	// Advertised in the server's opening SETTINGS frame when non-zero.
	// Zero leaves the frame's payload empty.
	MaxConcurrentStreams uint32
	InitialWindowSize    uint32

	// ReadTimeout bounds every blocking read. Zero disables deadlines.
	ReadTimeout time.Duration

	// Decoder replaces the hpack-backed header decoder. Nil uses
	// NewHeaderDecoder.
	Decoder HeaderDecoder

	// VerboseFrames logs every frame the connection processes.
	VerboseFrames bool

	// Logger receives engine log lines. Nil uses the log package default.
	Logger *log.Logger
}

// Conn runs the HTTP/2 connection protocol over one accepted socket. It is
// not safe for concurrent use: each connection gets its own goroutine and
// owns its Conn exclusively.
type Conn struct {
	conn net.Conn
	br   *bufio.Reader
	opts Options

	state    State
	settings *Settings
	handler  Handler
	decoder  HeaderDecoder

	henc *hpack.Encoder
	hbuf bytes.Buffer

	streams      map[uint32]*stream
	maxStreamID  uint32 // highest stream id the client has opened
	lastStreamID uint32 // highest stream id answered, reported in GOAWAY
	connWindow   int64
	sentGoAway   bool
}

// NewConn wraps an accepted socket. Serve does the rest.
func NewConn(nc net.Conn, opts Options) *Conn {
	c := &Conn{
		conn:       nc,
		br:         bufio.NewReader(nc),
		opts:       opts,
		state:      StateAwaitingPreface,
		settings:   NewSettings(),
		handler:    opts.Handler,
		decoder:    opts.Decoder,
		streams:    make(map[uint32]*stream),
		connWindow: int64(DefaultInitialWindowSize),
	}
	if c.handler == nil {
		c.handler = DefaultHandler
	}
	if c.decoder == nil {
		c.decoder = NewHeaderDecoder()
	}
	c.henc = hpack.NewEncoder(&c.hbuf)
	return c
}

// State reports where the connection is in its lifecycle.
func (c *Conn) State() State {
	return c.state
}

// Settings returns a snapshot of the negotiated connection parameters.
func (c *Conn) Settings() Settings {
	return *c.settings
}

// Serve runs the connection to completion: preface, settings exchange, then
// the frame dispatch loop. It always releases the socket before returning.
// The returned error is nil when the client shut the connection down
// cleanly, by GOAWAY or by closing its end between frames.
func (c *Conn) Serve() error {
	defer c.close()

	if err := c.handshake(); err != nil {
		return c.fatal(err)
	}
	for c.state == StateEstablished {
		f, err := c.readFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.vlogf("http2: client closed the connection")
				return nil
			}
			return c.fatal(err)
		}
		if err := c.dispatch(f); err != nil {
			return c.fatal(err)
		}
	}
	return nil
}

// handshake walks the connection from AwaitingPreface to Established:
// validate the preface, send the server SETTINGS, require the client
// SETTINGS, apply it, acknowledge it.
func (c *Conn) handshake() error {
	if err := ReadPreface(c.deadlineReader()); err != nil {
		return err
	}
	c.state = StateAwaitingServerSettings

	if err := WriteFrame(c.conn, SettingsFrameType, 0, 0, c.serverSettingsPayload()); err != nil {
		return fmt.Errorf("writing server SETTINGS: %w", err)
	}
	c.state = StateAwaitingClientSettings

	f, err := c.readFrame()
	if err != nil {
		return err
	}
	if f.Type != SettingsFrameType || f.StreamID != 0 || f.Flags&AckFlag != 0 {
		return connError(ErrCodeProtocol, "expected client SETTINGS on stream 0, got %s flags=0x%x stream=%d",
			FrameName(f.Type), f.Flags, f.StreamID)
	}
	if err := c.settings.ApplyPayload(f.Payload); err != nil {
		return err
	}
	if err := WriteFrame(c.conn, SettingsFrameType, AckFlag, 0, nil); err != nil {
		return fmt.Errorf("writing SETTINGS ACK: %w", err)
	}
	c.state = StateEstablished
	c.vlogf("http2: connection established, settings %+v", *c.settings)
	return nil
}

func (c *Conn) serverSettingsPayload() []byte {
	var payload []byte
	if c.opts.MaxConcurrentStreams > 0 {
		payload = appendSetting(payload, SettingMaxConcurrentStreams, c.opts.MaxConcurrentStreams)
	}
	if c.opts.InitialWindowSize > 0 {
		payload = appendSetting(payload, SettingInitialWindowSize, c.opts.InitialWindowSize)
	}
	return payload
}

// deadlineReader arms the read deadline when one is configured and returns
// the connection's buffered reader.
func (c *Conn) deadlineReader() io.Reader {
	if c.opts.ReadTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	}
	return c.br
}

// readFrame reads one frame, refusing payloads above the frame-size limit
// before they are read. The server never advertises a larger limit than the
// protocol default.
func (c *Conn) readFrame() (*Frame, error) {
	f, err := readFrameLimit(c.deadlineReader(), DefaultMaxFrameSize)
	if err != nil {
		return nil, err
	}
	c.vlogf("http2: read %s flags=0x%x stream=%d len=%d", FrameName(f.Type), f.Flags, f.StreamID, f.Length)
	return f, nil
}

func (c *Conn) dispatch(f *Frame) error {
	switch f.Type {
	case SettingsFrameType:
		return c.processSettings(f)
	case HeadersFrameType:
		return c.processHeaders(f)
	case WindowUpdateFrameType:
		return c.processWindowUpdate(f)
	case PingFrameType:
		return c.processPing(f)
	case GoAwayFrameType:
		return c.processGoAway(f)
	default:
		return connError(ErrCodeProtocol, "unexpected %s frame", FrameName(f.Type))
	}
}

func (c *Conn) processSettings(f *Frame) error {
	if f.StreamID != 0 {
		return connError(ErrCodeProtocol, "SETTINGS on stream %d", f.StreamID)
	}
	if f.Flags&AckFlag != 0 {
		// the client acknowledging our settings, nothing to apply
		return nil
	}
	if err := c.settings.ApplyPayload(f.Payload); err != nil {
		return err
	}
	return WriteFrame(c.conn, SettingsFrameType, AckFlag, 0, nil)
}

func (c *Conn) processHeaders(f *Frame) error {
	if f.StreamID == 0 {
		return connError(ErrCodeProtocol, "HEADERS on stream 0")
	}
	if f.StreamID%2 == 0 {
		return connError(ErrCodeProtocol, "HEADERS on even stream %d", f.StreamID)
	}
	if f.StreamID <= c.maxStreamID {
		return connError(ErrCodeProtocol, "stream %d does not exceed previously opened stream %d", f.StreamID, c.maxStreamID)
	}
	if f.Flags&EndHeadersFlag == 0 {
		return connError(ErrCodeProtocol, "HEADERS without END_HEADERS; CONTINUATION is not supported")
	}
	c.maxStreamID = f.StreamID

	block, err := headerBlock(f)
	if err != nil {
		return err
	}
	fields, err := c.decoder.Decode(block)
	if err != nil {
		return err
	}

	st := &stream{state: stateOpen, window: int64(c.settings.InitialWindowSize)}
	if f.Flags&EndStreamFlag != 0 {
		st.state = stateHalfClosedRemote
	}
	c.streams[f.StreamID] = st

	req := newRequest(f.StreamID, fields)
	c.vlogf("http2: request %s %s on stream %d", req.Method, req.Path, f.StreamID)
	if err := c.writeResponse(f.StreamID, c.handler(req)); err != nil {
		return err
	}
	c.lastStreamID = f.StreamID
	st.state = stateClosed
	return nil
}

// headerBlock strips padding and priority material from a HEADERS payload,
// leaving the raw header block fragment.
func headerBlock(f *Frame) ([]byte, error) {
	block := f.Payload
	if f.Flags&PaddedFlag != 0 {
		if len(block) < 1 {
			return nil, connError(ErrCodeProtocol, "padded HEADERS with no pad length")
		}
		pad := int(block[0])
		block = block[1:]
		if pad > len(block) {
			return nil, connError(ErrCodeProtocol, "pad length %d exceeds %d remaining payload bytes", pad, len(block))
		}
		block = block[:len(block)-pad]
	}
	if f.Flags&PriorityFlag != 0 {
		// 5 bytes: 4 for stream dependency + 1 for weight
		if len(block) < 5 {
			return nil, connError(ErrCodeFrameSize, "HEADERS too short for its priority fields")
		}
		block = block[5:]
	}
	return block, nil
}

func (c *Conn) processWindowUpdate(f *Frame) error {
	if len(f.Payload) != 4 {
		return connError(ErrCodeFrameSize, "WINDOW_UPDATE payload is %d bytes, want 4", len(f.Payload))
	}
	// tracked but not enforced; the top bit is reserved
	incr := binary.BigEndian.Uint32(f.Payload) & 0x7FFFFFFF
	if f.StreamID == 0 {
		c.connWindow += int64(incr)
		c.vlogf("http2: connection window +%d = %d", incr, c.connWindow)
		return nil
	}
	if st, ok := c.streams[f.StreamID]; ok {
		st.window += int64(incr)
		c.vlogf("http2: stream %d window +%d = %d", f.StreamID, incr, st.window)
	} else {
		// a WINDOW_UPDATE may legally trail a stream that already finished
		c.vlogf("http2: window update for unknown stream %d (+%d)", f.StreamID, incr)
	}
	return nil
}

func (c *Conn) processPing(f *Frame) error {
	if f.StreamID != 0 {
		return connError(ErrCodeProtocol, "PING on stream %d", f.StreamID)
	}
	if len(f.Payload) != 8 {
		return connError(ErrCodeFrameSize, "PING payload is %d bytes, want 8", len(f.Payload))
	}
	if f.Flags&AckFlag != 0 {
		return nil
	}
	return WriteFrame(c.conn, PingFrameType, AckFlag, 0, f.Payload)
}

func (c *Conn) processGoAway(f *Frame) error {
	if len(f.Payload) < 8 {
		return connError(ErrCodeFrameSize, "GOAWAY payload is %d bytes, want at least 8", len(f.Payload))
	}
	last := binary.BigEndian.Uint32(f.Payload[0:4]) & 0x7FFFFFFF
	code := ErrCode(binary.BigEndian.Uint32(f.Payload[4:8]))
	if debug := f.Payload[8:]; len(debug) > 0 {
		c.logf("http2: GOAWAY from client: last_stream=%d code=%s debug=%q", last, code, debug)
	} else {
		c.vlogf("http2: GOAWAY from client: last_stream=%d code=%s", last, code)
	}
	c.state = StateClosed
	return nil
}

// fatal answers a protocol violation with a best-effort GOAWAY, then marks
// the connection closed. Transport errors skip the GOAWAY.
func (c *Conn) fatal(err error) error {
	var ce ConnError
	if errors.As(err, &ce) {
		c.goAway(ce.Code, ce.Reason)
	}
	c.state = StateClosed
	return err
}

// goAway makes one attempt to tell the peer why the connection is ending.
// Write failures are ignored; the socket is closing either way.
func (c *Conn) goAway(code ErrCode, debug string) {
	if c.sentGoAway {
		return
	}
	c.sentGoAway = true
	payload := make([]byte, 8, 8+len(debug))
	binary.BigEndian.PutUint32(payload[0:4], c.lastStreamID)
	binary.BigEndian.PutUint32(payload[4:8], uint32(code))
	payload = append(payload, debug...)
	if err := WriteFrame(c.conn, GoAwayFrameType, 0, 0, payload); err != nil {
		c.vlogf("http2: GOAWAY write failed: %v", err)
	}
}

func (c *Conn) close() {
	c.state = StateClosed
	c.conn.Close()
}

func (c *Conn) logf(format string, args ...interface{}) {
	if c.opts.Logger != nil {
		c.opts.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (c *Conn) vlogf(format string, args ...interface{}) {
	if c.opts.VerboseFrames {
		c.logf(format, args...)
	}
}
