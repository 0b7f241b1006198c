package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// HeaderSize is the fixed envelope prefix: 4-byte big-endian command id
// followed by 4-byte big-endian payload length.
const HeaderSize = 8

// MaxFrameSize bounds the payload length a peer may declare.
const MaxFrameSize = 1024 * 1024

// DecodeError reports a frame that failed to parse. The connection stays
// open; the dispatcher answers with an error envelope instead.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode error: " + e.Reason
}

// Encode serializes payload as JSON and prepends the envelope header.
func Encode(commandID uint32, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode command 0x%04x: %w", commandID, err)
	}
	if len(body) > MaxFrameSize {
		return nil, fmt.Errorf("encode command 0x%04x: payload exceeds %d bytes", commandID, MaxFrameSize)
	}

	buf := make([]byte, HeaderSize+len(body))
	binary.BigEndian.PutUint32(buf[0:4], commandID)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(body)))
	copy(buf[HeaderSize:], body)
	return buf, nil
}

// Decode splits a complete frame into command id and raw payload bytes.
func Decode(frame []byte) (uint32, []byte, error) {
	if len(frame) < HeaderSize {
		return 0, nil, &DecodeError{Reason: "frame shorter than header"}
	}

	commandID := binary.BigEndian.Uint32(frame[0:4])
	length := binary.BigEndian.Uint32(frame[4:8])

	if length > MaxFrameSize {
		return 0, nil, &DecodeError{Reason: fmt.Sprintf("declared payload length %d exceeds maximum", length)}
	}
	if uint32(len(frame)-HeaderSize) != length {
		return 0, nil, &DecodeError{Reason: "payload length mismatch"}
	}

	return commandID, frame[HeaderSize:], nil
}

// ReadFrame reads one complete frame from a byte stream. Used by the TCP
// transport; websocket messages arrive already delimited.
func ReadFrame(r io.Reader) (uint32, []byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	commandID := binary.BigEndian.Uint32(header[0:4])
	length := binary.BigEndian.Uint32(header[4:8])
	if length > MaxFrameSize {
		return 0, nil, &DecodeError{Reason: fmt.Sprintf("declared payload length %d exceeds maximum", length)}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return commandID, payload, nil
}
