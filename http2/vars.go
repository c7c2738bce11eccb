package http2

import "fmt"

/*
HTTP/2 protocol as defined in RFC 7540.

The basic flow is:
- Client connects and sends a connection preface (see ClientPreface)
- Server responds with a SETTINGS frame
- Client sends its own SETTINGS frame, which the server acknowledges
- Communication proceeds with frames (see frame types below)

Each frame has a 9-byte header:
- Length (24 bits): Length of the frame payload
- Type (8 bits): Frame type (e.g., DATA, SETTINGS, PING, etc.)
- Flags (8 bits): Frame flags (e.g., ACK, END_STREAM, etc.)
- R (1 bit): Reserved bit
- Stream Identifier (31 bits): Identifies the stream the frame belongs to
*/

// Frame types (RFC 7540 §6)
const (
	DataFrameType         byte = 0x0
	HeadersFrameType      byte = 0x1
	PriorityFrameType     byte = 0x2
	RstStreamFrameType    byte = 0x3
	SettingsFrameType     byte = 0x4
	PushPromiseFrameType  byte = 0x5
	PingFrameType         byte = 0x6
	GoAwayFrameType       byte = 0x7
	WindowUpdateFrameType byte = 0x8
	ContinuationFrameType byte = 0x9
)

var frameNames = map[byte]string{
	DataFrameType:         "DATA",
	HeadersFrameType:      "HEADERS",
	PriorityFrameType:     "PRIORITY",
	RstStreamFrameType:    "RST_STREAM",
	SettingsFrameType:     "SETTINGS",
	PushPromiseFrameType:  "PUSH_PROMISE",
	PingFrameType:         "PING",
	GoAwayFrameType:       "GOAWAY",
	WindowUpdateFrameType: "WINDOW_UPDATE",
	ContinuationFrameType: "CONTINUATION",
}

// FrameName returns the RFC name of a frame type, for logs and errors.
func FrameName(ft byte) string {
	if name, ok := frameNames[ft]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_FRAME_TYPE_0x%x", ft)
}

// Flags for SETTINGS and PING frames
const AckFlag byte = 0x1

// Flags for HEADERS and DATA frames
const (
	EndStreamFlag  byte = 0x1
	EndHeadersFlag byte = 0x4
	PaddedFlag     byte = 0x8
	PriorityFlag   byte = 0x20
)

// Settings identifiers (RFC 7540 §6.5.2)
const (
	SettingEnablePush           uint16 = 0x2
	SettingMaxConcurrentStreams uint16 = 0x3
	SettingInitialWindowSize    uint16 = 0x4
)

// Defaults negotiated until a SETTINGS frame says otherwise
const (
	DefaultMaxConcurrentStreams uint32 = 100
	DefaultInitialWindowSize    uint32 = 65535
	DefaultMaxFrameSize         uint32 = 16384
)

const (
	ClientPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"
)
