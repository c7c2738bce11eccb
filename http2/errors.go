package http2

import "fmt"

// ErrCode is an HTTP/2 error code, carried in GOAWAY frames (RFC 7540 §7).
type ErrCode uint32

const (
	ErrCodeNo          ErrCode = 0x0
	ErrCodeProtocol    ErrCode = 0x1
	ErrCodeInternal    ErrCode = 0x2
	ErrCodeFlowControl ErrCode = 0x3
	ErrCodeFrameSize   ErrCode = 0x6
	ErrCodeCompression ErrCode = 0x9
)

var errCodeNames = map[ErrCode]string{
	ErrCodeNo:          "NO_ERROR",
	ErrCodeProtocol:    "PROTOCOL_ERROR",
	ErrCodeInternal:    "INTERNAL_ERROR",
	ErrCodeFlowControl: "FLOW_CONTROL_ERROR",
	ErrCodeFrameSize:   "FRAME_SIZE_ERROR",
	ErrCodeCompression: "COMPRESSION_ERROR",
}

func (c ErrCode) String() string {
	if name, ok := errCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_ERROR_CODE_0x%x", uint32(c))
}

// ConnError is a protocol violation that terminates the whole connection.
// The dispatcher answers it with a best-effort GOAWAY carrying Code and
// Reason before releasing the socket. Plain I/O errors are not ConnErrors;
// the peer is assumed gone and gets no GOAWAY.
type ConnError struct {
	Code   ErrCode
	Reason string
}

func (e ConnError) Error() string {
	return fmt.Sprintf("connection error (%s): %s", e.Code, e.Reason)
}

func connError(code ErrCode, format string, args ...interface{}) ConnError {
	return ConnError{Code: code, Reason: fmt.Sprintf(format, args...)}
}
