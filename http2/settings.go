package http2

import "encoding/binary"

// Settings holds the connection parameters negotiated through SETTINGS
// frames. Each Conn owns exactly one and mutates it from its own goroutine
// only.
type Settings struct {
	MaxConcurrentStreams uint32
	InitialWindowSize    uint32
	EnablePush           bool
}

// NewSettings returns a store carrying the RFC 7540 §6.5.2 defaults.
func NewSettings() *Settings {
	return &Settings{
		MaxConcurrentStreams: DefaultMaxConcurrentStreams,
		InitialWindowSize:    DefaultInitialWindowSize,
		EnablePush:           true,
	}
}

// Apply updates the field matching id. Unknown identifiers are accepted and
// ignored, as the protocol requires. Out-of-range values for known
// identifiers are connection errors.
func (s *Settings) Apply(id uint16, value uint32) error {
	switch id {
	case SettingEnablePush:
		if value > 1 {
			return connError(ErrCodeProtocol, "ENABLE_PUSH must be 0 or 1, got %d", value)
		}
		s.EnablePush = value == 1
	case SettingMaxConcurrentStreams:
		s.MaxConcurrentStreams = value
	case SettingInitialWindowSize:
		if value > (1<<31 - 1) {
			return connError(ErrCodeFlowControl, "INITIAL_WINDOW_SIZE %d exceeds 2^31-1", value)
		}
		s.InitialWindowSize = value
	}
	return nil
}

// ApplyPayload applies a SETTINGS frame payload: any number of 6-byte
// entries, each a 2-byte identifier followed by a 4-byte value, applied in
// wire order.
func (s *Settings) ApplyPayload(payload []byte) error {
	if len(payload)%6 != 0 {
		return connError(ErrCodeFrameSize, "SETTINGS payload of %d bytes is not a multiple of 6", len(payload))
	}
	for i := 0; i+6 <= len(payload); i += 6 {
		id := binary.BigEndian.Uint16(payload[i : i+2])
		value := binary.BigEndian.Uint32(payload[i+2 : i+6])
		if err := s.Apply(id, value); err != nil {
			return err
		}
	}
	return nil
}

// appendSetting appends one 6-byte SETTINGS entry to b, for building the
// server's own SETTINGS payload.
func appendSetting(b []byte, id uint16, value uint32) []byte {
	var entry [6]byte
	binary.BigEndian.PutUint16(entry[:2], id)
	binary.BigEndian.PutUint32(entry[2:], value)
	return append(b, entry[:]...)
}
