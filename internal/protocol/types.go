package protocol

import "fmt"

// Message type tags carried in the frame header.
const (
	MsgConfig  uint32 = 1
	MsgData    uint32 = 2
	MsgCompute uint32 = 3
	MsgStatus  uint32 = 4
	MsgResult  uint32 = 5
	MsgError   uint32 = 255
)

// Status is the one byte STATUS reply.
type Status uint8

const (
	StatusNoData   Status = 0
	StatusPending  Status = 1
	StatusComputed Status = 2
)

// MaxMatrixSize is the largest N whose DATA payload (N*N*4 bytes) fits a 32-bit length field.
const MaxMatrixSize = 32767

const (
	configPayloadLen = 8
	resultPayloadLen = 16
)

func MessageName(msgType uint32) string {
	switch msgType {
	case MsgConfig:
		return "config"
	case MsgData:
		return "data"
	case MsgCompute:
		return "compute"
	case MsgStatus:
		return "status"
	case MsgResult:
		return "result"
	case MsgError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", msgType)
	}
}

func (s Status) String() string {
	switch s {
	case StatusNoData:
		return "no_data"
	case StatusPending:
		return "pending"
	case StatusComputed:
		return "computed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}
