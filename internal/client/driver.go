package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/danmuck/matrixd/internal/compute"
	"github.com/danmuck/matrixd/internal/logging"
	"github.com/danmuck/matrixd/internal/protocol"
	"github.com/danmuck/matrixd/internal/protocol/frame"
	"github.com/danmuck/matrixd/internal/protocol/session"
	"github.com/rs/zerolog"
)

var (
	ErrAddrRequired      = errors.New("client: server addr required")
	ErrResultUnavailable = errors.New("client: result unavailable")
	ErrPollTimeout       = errors.New("client: poll timeout")
	ErrMatrixMismatch    = errors.New("client: matrix does not match matrix_size")
	ErrInvalidWorkers    = errors.New("client: workers must not be negative")
)

// Config configures the connection and default run parameters.
type Config struct {
	Addr       string
	MatrixSize int
	Workers    int
	// Seed feeds the matrix generator; zero seeds from the clock.
	Seed    int64
	Session session.Config
}

func DefaultConfig() Config {
	return Config{
		Addr:       "127.0.0.1:8888",
		MatrixSize: 10000,
		Workers:    128,
		Session:    session.DefaultConfig(),
	}
}

// Params describes one run. A nil Matrix is generated from Config.Seed.
type Params struct {
	MatrixSize int
	Workers    int
	Matrix     *compute.Matrix
}

// Driver owns one connection to the server.
type Driver struct {
	conn   net.Conn
	cfg    Config
	logger zerolog.Logger
	rng    *rand.Rand
}

// Dial connects to cfg.Addr.
func Dial(ctx context.Context, cfg Config) (*Driver, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, ErrAddrRequired
	}
	cfg.Session = cfg.Session.WithDefaults()
	dialer := net.Dialer{Timeout: cfg.Session.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, err
	}
	return NewDriver(conn, cfg), nil
}

// NewDriver wraps an established connection.
func NewDriver(conn net.Conn, cfg Config) *Driver {
	cfg.Session = cfg.Session.WithDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Driver{
		conn:   conn,
		cfg:    cfg,
		logger: logging.Component("client").With().Str("remote", conn.RemoteAddr().String()).Logger(),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (d *Driver) Close() error {
	return d.conn.Close()
}

// Run executes the full five-step sequence.
func (d *Driver) Run(ctx context.Context, p Params) (protocol.Result, error) {
	if p.MatrixSize < 0 || p.MatrixSize > protocol.MaxMatrixSize {
		return protocol.Result{}, fmt.Errorf("%w: n=%d", protocol.ErrMatrixTooLarge, p.MatrixSize)
	}
	if p.Workers < 0 {
		return protocol.Result{}, fmt.Errorf("%w: workers=%d", ErrInvalidWorkers, p.Workers)
	}
	m := p.Matrix
	if m == nil {
		m = compute.RandomMatrix(p.MatrixSize, d.rng)
	}
	if m.N != p.MatrixSize {
		return protocol.Result{}, fmt.Errorf("%w: n=%d matrix=%d", ErrMatrixMismatch, p.MatrixSize, m.N)
	}

	if err := d.Configure(ctx, p.MatrixSize, p.Workers); err != nil {
		return protocol.Result{}, fmt.Errorf("configure: %w", err)
	}
	if err := d.Upload(ctx, m); err != nil {
		return protocol.Result{}, fmt.Errorf("upload: %w", err)
	}
	if err := d.Compute(ctx); err != nil {
		return protocol.Result{}, fmt.Errorf("compute: %w", err)
	}
	if err := d.WaitComputed(ctx); err != nil {
		return protocol.Result{}, fmt.Errorf("poll: %w", err)
	}
	res, err := d.FetchResult(ctx)
	if err != nil {
		return protocol.Result{}, fmt.Errorf("result: %w", err)
	}
	return res, nil
}

func (d *Driver) Configure(ctx context.Context, n, workers int) error {
	payload := protocol.EncodeConfig(protocol.Config{MatrixSize: uint32(n), Workers: uint32(workers)})
	return d.await(ctx, protocol.MsgConfig, payload)
}

func (d *Driver) Upload(ctx context.Context, m *compute.Matrix) error {
	return d.await(ctx, protocol.MsgData, protocol.EncodeMatrix(m.Cells))
}

func (d *Driver) Compute(ctx context.Context) error {
	return d.await(ctx, protocol.MsgCompute, nil)
}

// Status sends one STATUS request. A non-STATUS reply reports StatusNoData.
func (d *Driver) Status(ctx context.Context) (protocol.Status, error) {
	reply, err := d.roundTrip(ctx, protocol.MsgStatus, nil)
	if err != nil {
		return 0, err
	}
	if reply.Type != protocol.MsgStatus || len(reply.Payload) == 0 {
		return protocol.StatusNoData, nil
	}
	return protocol.DecodeStatus(reply.Payload)
}

// WaitComputed polls STATUS until the server reports computed.
func (d *Driver) WaitComputed(ctx context.Context) error {
	pollCtx := ctx
	poll := d.cfg.Session.Poll
	if poll.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, poll.Timeout)
		defer cancel()
	}
	backoff := poll.PollBackoff()

	for attempt := 1; ; attempt++ {
		st, err := d.Status(pollCtx)
		if err != nil {
			return d.pollErr(ctx, pollCtx, err)
		}
		if st == protocol.StatusComputed {
			d.logger.Debug().Int("polls", attempt).Msg("computed")
			return nil
		}

		timer := time.NewTimer(session.NextBackoffDelay(backoff, attempt, d.rng))
		select {
		case <-pollCtx.Done():
			timer.Stop()
			return d.pollErr(ctx, pollCtx, pollCtx.Err())
		case <-timer.C:
		}
	}
}

func (d *Driver) pollErr(parent, pollCtx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrPollTimeout, d.cfg.Session.Poll.Timeout)
	}
	return err
}

// FetchResult requests RESULT; anything but a RESULT frame of at least 16 bytes is
// ErrResultUnavailable.
func (d *Driver) FetchResult(ctx context.Context) (protocol.Result, error) {
	reply, err := d.roundTrip(ctx, protocol.MsgResult, nil)
	if err != nil {
		return protocol.Result{}, err
	}
	if reply.Type != protocol.MsgResult {
		return protocol.Result{}, fmt.Errorf("%w: reply type=%s", ErrResultUnavailable, protocol.MessageName(reply.Type))
	}
	res, err := protocol.DecodeResult(reply.Payload)
	if err != nil {
		return protocol.Result{}, fmt.Errorf("%w: %w", ErrResultUnavailable, err)
	}
	return res, nil
}

// await sends a request and waits for any reply; the reply contents are not inspected.
func (d *Driver) await(ctx context.Context, msgType uint32, payload []byte) error {
	reply, err := d.roundTrip(ctx, msgType, payload)
	if err != nil {
		return err
	}
	if reply.Type != msgType {
		d.logger.Debug().
			Str("request", protocol.MessageName(msgType)).
			Str("reply", protocol.MessageName(reply.Type)).
			Msg("unexpected ack type")
	}
	return nil
}

// roundTrip writes one frame and reads one reply. Cancelling ctx unblocks the connection by
// expiring its deadline.
func (d *Driver) roundTrip(ctx context.Context, msgType uint32, payload []byte) (frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return frame.Frame{}, err
	}
	deadline, _ := ctx.Deadline()
	_ = d.conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = d.conn.SetDeadline(time.Now())
	})
	defer stop()

	if payload == nil {
		payload = []byte{}
	}
	if err := frame.WriteFrame(d.conn, frame.Frame{Type: msgType, Payload: payload}, d.cfg.Session.Limits); err != nil {
		return frame.Frame{}, d.ctxErr(ctx, err)
	}
	reply, err := frame.ReadFrame(d.conn, d.cfg.Session.Limits)
	if err != nil {
		return frame.Frame{}, d.ctxErr(ctx, err)
	}
	return reply, nil
}

func (d *Driver) ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
