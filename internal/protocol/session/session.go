package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/matrixd/internal/compute"
	"github.com/danmuck/matrixd/internal/observability"
	"github.com/danmuck/matrixd/internal/protocol"
	"github.com/danmuck/matrixd/internal/protocol/frame"
	"github.com/rs/zerolog"
)

var (
	ErrNotReady       = errors.New("session: compute requested without data")
	ErrResultNotReady = fmt.Errorf("%w: result requested before compute", protocol.ErrProtocolViolation)
)

// Kernel runs the anti-diagonal computation in place and reports its wall time.
type Kernel func(m *compute.Matrix, workers int) time.Duration

// Session is the server-side state of one client connection.
type Session struct {
	ID string

	matrixSize uint32
	workers    uint32
	matrix     *compute.Matrix
	state      State
	elapsed    time.Duration

	kernel Kernel
	logger zerolog.Logger
}

// New returns a session in NoData using the default kernel.
func New(id string, logger zerolog.Logger) *Session {
	return &Session{
		ID:      id,
		workers: 1,
		kernel:  compute.PlaceSecondaryDiagonal,
		logger:  logger.With().Str("session", id).Logger(),
	}
}

// WithKernel swaps the compute kernel; nil restores the default.
func (s *Session) WithKernel(k Kernel) *Session {
	if k == nil {
		k = compute.PlaceSecondaryDiagonal
	}
	s.kernel = k
	return s
}

func (s *Session) State() State {
	return s.state
}

// Matrix exposes the owned matrix for inspection by the owning goroutine.
func (s *Session) Matrix() *compute.Matrix {
	return s.matrix
}

// Result returns the compute result once the session reached Computed.
func (s *Session) Result() (protocol.Result, bool) {
	if s.state != StateComputed {
		return protocol.Result{}, false
	}
	return protocol.Result{
		MatrixSize:     s.matrixSize,
		Workers:        s.workers,
		ElapsedSeconds: s.elapsed.Seconds(),
	}, true
}

// Handle applies one request frame and returns the reply to send. A non-nil error describes a
// rejected or ignored request; the reply is still valid and the connection stays open.
func (s *Session) Handle(f frame.Frame) (frame.Frame, error) {
	observability.RecordFrame(protocol.MessageName(f.Type))
	switch f.Type {
	case protocol.MsgConfig:
		return s.handleConfig(f.Payload)
	case protocol.MsgData:
		return s.handleData(f.Payload)
	case protocol.MsgCompute:
		return s.handleCompute()
	case protocol.MsgStatus:
		return frame.Frame{Type: protocol.MsgStatus, Payload: protocol.EncodeStatus(s.state.WireStatus())}, nil
	case protocol.MsgResult:
		res, ok := s.Result()
		if !ok {
			return errorFrame(), ErrResultNotReady
		}
		s.logger.Info().Uint32("n", res.MatrixSize).Uint32("workers", res.Workers).Msg("result sent")
		return frame.Frame{Type: protocol.MsgResult, Payload: protocol.EncodeResult(res)}, nil
	default:
		return errorFrame(), fmt.Errorf("%w: %w: tag=%d", protocol.ErrProtocolViolation, protocol.ErrUnknownMessageType, f.Type)
	}
}

func (s *Session) handleConfig(payload []byte) (frame.Frame, error) {
	cfg, err := protocol.DecodeConfig(payload)
	if err != nil {
		return errorFrame(), err
	}
	s.matrixSize = cfg.MatrixSize
	s.workers = cfg.Workers
	s.matrix = nil
	s.elapsed = 0
	s.state = StateConfigured
	s.logger.Info().Uint32("n", cfg.MatrixSize).Uint32("workers", cfg.Workers).Msg("config")
	return ack(protocol.MsgConfig), nil
}

func (s *Session) handleData(payload []byte) (frame.Frame, error) {
	cells, err := protocol.DecodeMatrix(s.matrixSize, payload)
	if err != nil {
		return errorFrame(), err
	}
	m, err := compute.FromCells(int(s.matrixSize), cells)
	if err != nil {
		return errorFrame(), err
	}
	s.matrix = m
	s.elapsed = 0
	s.state = StateDataLoaded
	s.logger.Info().Uint32("n", s.matrixSize).Msg("data received")
	return ack(protocol.MsgData), nil
}

func (s *Session) handleCompute() (frame.Frame, error) {
	if !s.state.hasMatrix() {
		s.logger.Warn().Str("state", s.state.String()).Msg("compute ignored: no data")
		return ack(protocol.MsgCompute), ErrNotReady
	}
	s.elapsed = s.kernel(s.matrix, int(s.workers))
	s.state = StateComputed
	effective := compute.EffectiveWorkers(s.matrix.N, int(s.workers))
	observability.RecordCompute(effective, s.elapsed)
	s.logger.Info().
		Int("n", s.matrix.N).
		Int("workers", effective).
		Float64("elapsed_s", s.elapsed.Seconds()).
		Msg("computed")
	return ack(protocol.MsgCompute), nil
}

func ack(msgType uint32) frame.Frame {
	return frame.Frame{Type: msgType, Payload: []byte{}}
}

func errorFrame() frame.Frame {
	return frame.Frame{Type: protocol.MsgError, Payload: []byte{}}
}
