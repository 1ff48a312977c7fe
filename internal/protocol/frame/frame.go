package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
)

const HeaderLen = 8

var (
	ErrTruncated        = errors.New("frame: truncated data")
	ErrConnectionClosed = fmt.Errorf("%w: connection closed before header", ErrTruncated)
	ErrShortHeader      = fmt.Errorf("%w: short header", ErrTruncated)
	ErrPayloadTooLarge  = errors.New("frame: payload too large")
)

// Header is the fixed wire header.
type Header struct {
	Type       uint32
	PayloadLen uint32
}

// Frame is one complete wire message.
type Frame struct {
	Type    uint32
	Payload []byte
}

// Limits constrains frame decode/encode memory use. Zero disables the cap.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 1 << 30,
	}
}

func (l Limits) allows(n uint64) bool {
	return l.MaxPayloadBytes == 0 || n <= uint64(l.MaxPayloadBytes)
}

// Encode returns the header and payload as one contiguous buffer.
func Encode(msgType uint32, payload []byte) []byte {
	buf := make([]byte, HeaderLen+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], msgType)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[HeaderLen:], payload)
	return buf
}

func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return Frame{}, ErrConnectionClosed
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if !limits.allows(uint64(h.PayloadLen)) {
		return Frame{}, fmt.Errorf("%w: declared=%d max=%d", ErrPayloadTooLarge, h.PayloadLen, limits.MaxPayloadBytes)
	}

	payload := make([]byte, h.PayloadLen)
	if h.PayloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Frame{}, fmt.Errorf("%w: payload want=%d", ErrTruncated, h.PayloadLen)
			}
			return Frame{}, err
		}
	}
	return Frame{Type: h.Type, Payload: payload}, nil
}

// WriteFrame writes header and payload as one vectored write without copying the payload.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	if uint64(len(f.Payload)) > uint64(^uint32(0)) || !limits.allows(uint64(len(f.Payload))) {
		return ErrPayloadTooLarge
	}
	bufs := net.Buffers{EncodeHeader(Header{Type: f.Type, PayloadLen: uint32(len(f.Payload))})}
	if len(f.Payload) > 0 {
		bufs = append(bufs, f.Payload)
	}
	_, err := bufs.WriteTo(w)
	return err
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.Type)
	binary.BigEndian.PutUint32(buf[4:8], h.PayloadLen)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderLen {
		return Header{}, fmt.Errorf("frame: invalid header length: %d", len(b))
	}
	return Header{
		Type:       binary.BigEndian.Uint32(b[0:4]),
		PayloadLen: binary.BigEndian.Uint32(b[4:8]),
	}, nil
}
