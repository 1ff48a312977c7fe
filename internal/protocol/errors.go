package protocol

import "errors"

var (
	ErrShortPayload       = errors.New("protocol: short payload")
	ErrMatrixTooLarge     = errors.New("protocol: matrix too large for 32-bit length")
	ErrProtocolViolation  = errors.New("protocol: protocol violation")
	ErrUnknownMessageType = errors.New("protocol: unknown message type")
)
