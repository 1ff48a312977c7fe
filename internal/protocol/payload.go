package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Config is the CONFIG payload: matrix size and worker-count hint.
type Config struct {
	MatrixSize uint32
	Workers    uint32
}

// Result is the RESULT payload returned once a matrix has been computed.
type Result struct {
	MatrixSize     uint32
	Workers        uint32
	ElapsedSeconds float64
}

func EncodeConfig(c Config) []byte {
	buf := make([]byte, configPayloadLen)
	binary.BigEndian.PutUint32(buf[0:4], c.MatrixSize)
	binary.BigEndian.PutUint32(buf[4:8], c.Workers)
	return buf
}

func DecodeConfig(b []byte) (Config, error) {
	if len(b) < configPayloadLen {
		return Config{}, fmt.Errorf("%w: config got=%d want=%d", ErrShortPayload, len(b), configPayloadLen)
	}
	return Config{
		MatrixSize: binary.BigEndian.Uint32(b[0:4]),
		Workers:    binary.BigEndian.Uint32(b[4:8]),
	}, nil
}

// MatrixPayloadLen returns the DATA payload length for an n x n matrix.
func MatrixPayloadLen(n uint32) (int, error) {
	if n > MaxMatrixSize {
		return 0, fmt.Errorf("%w: n=%d", ErrMatrixTooLarge, n)
	}
	return int(n) * int(n) * 4, nil
}

// EncodeMatrix serializes row-major cells as big-endian int32.
func EncodeMatrix(cells []int32) []byte {
	buf := make([]byte, 4*len(cells))
	for i, v := range cells {
		binary.BigEndian.PutUint32(buf[4*i:], uint32(v))
	}
	return buf
}

// DecodeMatrix reads n*n big-endian int32 values. Trailing bytes are ignored.
func DecodeMatrix(n uint32, b []byte) ([]int32, error) {
	want, err := MatrixPayloadLen(n)
	if err != nil {
		return nil, err
	}
	if len(b) < want {
		return nil, fmt.Errorf("%w: data got=%d want=%d", ErrShortPayload, len(b), want)
	}
	cells := make([]int32, int(n)*int(n))
	for i := range cells {
		cells[i] = int32(binary.BigEndian.Uint32(b[4*i:]))
	}
	return cells, nil
}

func EncodeStatus(s Status) []byte {
	return []byte{byte(s)}
}

func DecodeStatus(b []byte) (Status, error) {
	if len(b) < 1 {
		return 0, fmt.Errorf("%w: status is empty", ErrShortPayload)
	}
	return Status(b[0]), nil
}

func EncodeResult(r Result) []byte {
	buf := make([]byte, resultPayloadLen)
	binary.BigEndian.PutUint32(buf[0:4], r.MatrixSize)
	binary.BigEndian.PutUint32(buf[4:8], r.Workers)
	encodeSwappedFloat64(buf[8:16], r.ElapsedSeconds)
	return buf
}

func DecodeResult(b []byte) (Result, error) {
	if len(b) < resultPayloadLen {
		return Result{}, fmt.Errorf("%w: result got=%d want=%d", ErrShortPayload, len(b), resultPayloadLen)
	}
	return Result{
		MatrixSize:     binary.BigEndian.Uint32(b[0:4]),
		Workers:        binary.BigEndian.Uint32(b[4:8]),
		ElapsedSeconds: decodeSwappedFloat64(b[8:16]),
	}, nil
}

// encodeSwappedFloat64 writes the elapsed-time field. Peers convert each 32-bit half of the
// IEEE-754 bits to network order and swap the halves; on the wire that leaves the high half
// first and the low half second, each big-endian.
func encodeSwappedFloat64(dst []byte, v float64) {
	bits := math.Float64bits(v)
	binary.BigEndian.PutUint32(dst[0:4], uint32(bits>>32))
	binary.BigEndian.PutUint32(dst[4:8], uint32(bits))
}

func decodeSwappedFloat64(src []byte) float64 {
	hi := uint64(binary.BigEndian.Uint32(src[0:4]))
	lo := uint64(binary.BigEndian.Uint32(src[4:8]))
	return math.Float64frombits(hi<<32 | lo)
}
