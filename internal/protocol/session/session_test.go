package session

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/matrixd/internal/compute"
	"github.com/danmuck/matrixd/internal/protocol"
	"github.com/danmuck/matrixd/internal/protocol/frame"
	"github.com/danmuck/matrixd/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	testlog.Start(t)
	return New("sess-test", zerolog.Nop())
}

func configFrame(n, workers uint32) frame.Frame {
	return frame.Frame{Type: protocol.MsgConfig, Payload: protocol.EncodeConfig(protocol.Config{MatrixSize: n, Workers: workers})}
}

func dataFrame(cells []int32) frame.Frame {
	return frame.Frame{Type: protocol.MsgData, Payload: protocol.EncodeMatrix(cells)}
}

func mustHandle(t *testing.T, s *Session, f frame.Frame) frame.Frame {
	t.Helper()
	reply, err := s.Handle(f)
	if err != nil {
		t.Fatalf("handle %s: %v", protocol.MessageName(f.Type), err)
	}
	return reply
}

func statusOf(t *testing.T, s *Session) protocol.Status {
	t.Helper()
	reply := mustHandle(t, s, frame.Frame{Type: protocol.MsgStatus})
	if reply.Type != protocol.MsgStatus {
		t.Fatalf("unexpected status reply type=%d", reply.Type)
	}
	st, err := protocol.DecodeStatus(reply.Payload)
	if err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return st
}

func TestConfigDataComputeReachesComputed(t *testing.T) {
	s := newTestSession(t)
	if got := statusOf(t, s); got != protocol.StatusNoData {
		t.Fatalf("initial status got=%v", got)
	}

	reply := mustHandle(t, s, configFrame(3, 2))
	if reply.Type != protocol.MsgConfig || len(reply.Payload) != 0 {
		t.Fatalf("unexpected config ack: %+v", reply)
	}
	if got := statusOf(t, s); got != protocol.StatusPending {
		t.Fatalf("configured status got=%v", got)
	}

	reply = mustHandle(t, s, dataFrame([]int32{1, 2, 3, 4, 5, 6, 7, 8, 9}))
	if reply.Type != protocol.MsgData || len(reply.Payload) != 0 {
		t.Fatalf("unexpected data ack: %+v", reply)
	}
	if got := statusOf(t, s); got != protocol.StatusPending {
		t.Fatalf("loaded status got=%v", got)
	}

	reply = mustHandle(t, s, frame.Frame{Type: protocol.MsgCompute})
	if reply.Type != protocol.MsgCompute || len(reply.Payload) != 0 {
		t.Fatalf("unexpected compute ack: %+v", reply)
	}
	if got := statusOf(t, s); got != protocol.StatusComputed {
		t.Fatalf("computed status got=%v", got)
	}

	m := s.Matrix()
	if m.At(0, 2) != 6 || m.At(1, 1) != 120 || m.At(2, 0) != 504 {
		t.Fatalf("unexpected anti-diagonal: %v", m.Cells)
	}
}

func TestResultBeforeComputeIsError(t *testing.T) {
	s := newTestSession(t)
	mustHandle(t, s, configFrame(2, 1))
	mustHandle(t, s, dataFrame([]int32{1, 2, 3, 4}))

	reply, err := s.Handle(frame.Frame{Type: protocol.MsgResult})
	if !errors.Is(err, ErrResultNotReady) || !errors.Is(err, protocol.ErrProtocolViolation) {
		t.Fatalf("expected ErrResultNotReady, got %v", err)
	}
	if reply.Type != protocol.MsgError || len(reply.Payload) != 0 {
		t.Fatalf("expected empty ERROR frame, got %+v", reply)
	}
}

func TestResultAfterComputeEchoesConfig(t *testing.T) {
	s := newTestSession(t)
	s.WithKernel(func(m *compute.Matrix, workers int) time.Duration {
		return 1500 * time.Millisecond
	})
	mustHandle(t, s, configFrame(2, 7))
	mustHandle(t, s, dataFrame([]int32{1, 2, 3, 4}))
	mustHandle(t, s, frame.Frame{Type: protocol.MsgCompute})

	reply := mustHandle(t, s, frame.Frame{Type: protocol.MsgResult})
	if reply.Type != protocol.MsgResult || len(reply.Payload) != 16 {
		t.Fatalf("unexpected result reply: type=%d len=%d", reply.Type, len(reply.Payload))
	}
	res, err := protocol.DecodeResult(reply.Payload)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.MatrixSize != 2 || res.Workers != 7 || res.ElapsedSeconds != 1.5 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestComputeWithoutDataAcksWithoutChangingState(t *testing.T) {
	s := newTestSession(t)
	called := false
	s.WithKernel(func(m *compute.Matrix, workers int) time.Duration {
		called = true
		return 0
	})

	for _, setup := range []frame.Frame{{Type: protocol.MsgStatus}, configFrame(4, 2)} {
		if _, err := s.Handle(setup); err != nil {
			t.Fatalf("setup: %v", err)
		}
		before := s.State()
		reply, err := s.Handle(frame.Frame{Type: protocol.MsgCompute})
		if !errors.Is(err, ErrNotReady) {
			t.Fatalf("expected ErrNotReady, got %v", err)
		}
		if reply.Type != protocol.MsgCompute || len(reply.Payload) != 0 {
			t.Fatalf("expected compute ack, got %+v", reply)
		}
		if s.State() != before {
			t.Fatalf("state changed from %v to %v", before, s.State())
		}
	}
	if called {
		t.Fatalf("kernel must not run without data")
	}
}

func TestUnknownTagIsErrorAndSessionSurvives(t *testing.T) {
	s := newTestSession(t)
	mustHandle(t, s, configFrame(1, 1))

	reply, err := s.Handle(frame.Frame{Type: 42, Payload: []byte{1, 2}})
	if !errors.Is(err, protocol.ErrUnknownMessageType) {
		t.Fatalf("expected ErrUnknownMessageType, got %v", err)
	}
	if reply.Type != protocol.MsgError || len(reply.Payload) != 0 {
		t.Fatalf("expected empty ERROR frame, got %+v", reply)
	}
	if s.State() != StateConfigured {
		t.Fatalf("unknown tag changed state to %v", s.State())
	}
}

func TestReconfigureResetsToConfigured(t *testing.T) {
	s := newTestSession(t)
	mustHandle(t, s, configFrame(1, 1))
	mustHandle(t, s, dataFrame([]int32{5}))
	mustHandle(t, s, frame.Frame{Type: protocol.MsgCompute})
	if s.State() != StateComputed {
		t.Fatalf("expected computed, got %v", s.State())
	}

	mustHandle(t, s, configFrame(2, 2))
	if s.State() != StateConfigured {
		t.Fatalf("expected configured after re-config, got %v", s.State())
	}
	if _, ok := s.Result(); ok {
		t.Fatalf("result must not survive re-config")
	}
	mustHandle(t, s, dataFrame([]int32{1, 2, 3, 4}))
	if s.State() != StateDataLoaded || s.Matrix().N != 2 {
		t.Fatalf("unexpected state after reload: %v", s.State())
	}
}

func TestMalformedPayloadsAreRejected(t *testing.T) {
	s := newTestSession(t)
	reply, err := s.Handle(frame.Frame{Type: protocol.MsgConfig, Payload: []byte{0, 0, 0, 3}})
	if !errors.Is(err, protocol.ErrShortPayload) || reply.Type != protocol.MsgError {
		t.Fatalf("expected short config rejection, reply=%+v err=%v", reply, err)
	}
	if s.State() != StateNoData {
		t.Fatalf("rejected config changed state to %v", s.State())
	}

	mustHandle(t, s, configFrame(3, 1))
	reply, err = s.Handle(dataFrame([]int32{1, 2, 3}))
	if !errors.Is(err, protocol.ErrShortPayload) || reply.Type != protocol.MsgError {
		t.Fatalf("expected short data rejection, reply=%+v err=%v", reply, err)
	}
	if s.State() != StateConfigured {
		t.Fatalf("rejected data changed state to %v", s.State())
	}
}

func TestRecomputeRunsKernelAgain(t *testing.T) {
	s := newTestSession(t)
	runs := 0
	s.WithKernel(func(m *compute.Matrix, workers int) time.Duration {
		runs++
		return time.Duration(runs) * time.Millisecond
	})
	mustHandle(t, s, configFrame(1, 1))
	mustHandle(t, s, dataFrame([]int32{3}))
	mustHandle(t, s, frame.Frame{Type: protocol.MsgCompute})
	mustHandle(t, s, frame.Frame{Type: protocol.MsgCompute})
	res, ok := s.Result()
	if !ok || runs != 2 || res.ElapsedSeconds != 0.002 {
		t.Fatalf("unexpected recompute: runs=%d res=%+v", runs, res)
	}
}

func TestNextBackoffDelayDeterministicNoJitter(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
	}
	if got := NextBackoffDelay(cfg, 1, nil); got != 250*time.Millisecond {
		t.Fatalf("attempt1 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 2, nil); got != 500*time.Millisecond {
		t.Fatalf("attempt2 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 6, nil); got != 5*time.Second {
		t.Fatalf("attempt6 got=%v", got)
	}
}

func TestDefaultPollIsFixedInterval(t *testing.T) {
	testlog.Start(t)
	b := DefaultConfig().Poll.PollBackoff()
	for attempt := 1; attempt <= 5; attempt++ {
		if got := NextBackoffDelay(b, attempt, nil); got != 100*time.Millisecond {
			t.Fatalf("attempt%d got=%v", attempt, got)
		}
	}
}

func TestWithDefaultsFillsUnset(t *testing.T) {
	testlog.Start(t)
	cfg := Config{}.WithDefaults()
	if cfg.ConnectTimeout != 5*time.Second || cfg.Poll.Interval != 100*time.Millisecond || cfg.Poll.Backoff.Multiplier != 1.0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ReadTimeout != 0 || cfg.WriteTimeout != 0 {
		t.Fatalf("read/write timeouts should default to none: %+v", cfg)
	}
}
