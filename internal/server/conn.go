package server

import (
	"errors"
	"net"
	"time"

	"github.com/danmuck/matrixd/internal/observability"
	"github.com/danmuck/matrixd/internal/protocol"
	"github.com/danmuck/matrixd/internal/protocol/frame"
	"github.com/danmuck/matrixd/internal/protocol/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// handleConn decodes one frame at a time and writes exactly one reply per frame. Any decode or
// write failure ends the session; nothing is sent on teardown.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	id := uuid.NewString()
	remote := conn.RemoteAddr().String()
	logger := s.logger.With().Str("remote", remote).Logger()

	active := s.active.Add(1)
	s.served.Add(1)
	observability.ConnectionOpened()
	logger.Info().Str("session", id).Int64("active_clients", active).Msg("client connected")
	defer func() {
		remaining := s.active.Add(-1)
		observability.ConnectionClosed()
		logger.Info().Str("session", id).Int64("active_clients", remaining).Msg("client disconnected")
	}()

	sess := session.New(id, logger).WithKernel(s.kernel)
	cfg := s.cfg.Session
	for {
		if cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		}
		req, err := frame.ReadFrame(conn, cfg.Limits)
		if err != nil {
			logReadErr(logger, id, err)
			return
		}

		reply, herr := sess.Handle(req)
		if herr != nil {
			logHandleErr(logger, id, req.Type, herr)
		}

		if cfg.WriteTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
		}
		if err := frame.WriteFrame(conn, reply, frame.Limits{}); err != nil {
			observability.RecordProtocolError("write")
			logger.Warn().Str("session", id).Err(err).Msg("write reply")
			return
		}
	}
}

func logReadErr(logger zerolog.Logger, id string, err error) {
	switch {
	case errors.Is(err, frame.ErrConnectionClosed):
		return
	case errors.Is(err, frame.ErrPayloadTooLarge):
		observability.RecordProtocolError("payload_too_large")
	case errors.Is(err, frame.ErrTruncated):
		observability.RecordProtocolError("truncated")
	default:
		observability.RecordProtocolError("read")
	}
	logger.Warn().Str("session", id).Err(err).Msg("read frame")
}

func logHandleErr(logger zerolog.Logger, id string, msgType uint32, err error) {
	reason := "rejected"
	switch {
	case errors.Is(err, session.ErrNotReady):
		reason = "not_ready"
	case errors.Is(err, protocol.ErrUnknownMessageType):
		reason = "unknown_type"
	case errors.Is(err, session.ErrResultNotReady):
		reason = "result_not_ready"
	case errors.Is(err, protocol.ErrShortPayload), errors.Is(err, protocol.ErrMatrixTooLarge):
		reason = "bad_payload"
	}
	observability.RecordProtocolError(reason)
	logger.Warn().
		Str("session", id).
		Str("type", protocol.MessageName(msgType)).
		Str("reason", reason).
		Err(err).
		Msg("request rejected")
}
