// Package session runs a Processor behind a request/response boundary.
// One goroutine owns the Processor; callers submit a frame and wait for
// its snapshot. A frame submitted while another is in flight is dropped
// rather than queued, so callers never build up stale work.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/pose.stabilizer/internal/filter"
	"github.com/banshee-data/pose.stabilizer/internal/landmark"
	"github.com/banshee-data/pose.stabilizer/internal/processor"
)

var (
	// ErrBusy is returned when a frame arrives while another is being processed.
	ErrBusy = errors.New("session busy, frame dropped")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
)

// Frame is one unit of work: detector output plus the measured time since
// the previous frame, in seconds.
type Frame struct {
	Result       landmark.DetectorResult
	DeltaSeconds float64
}

// Result is the reply to one Frame. Err carries non-fatal processing
// errors such as malformed input; Snapshot is valid either way.
type Result struct {
	Snapshot processor.Snapshot
	Err      error
}

// Stats summarises session throughput.
type Stats struct {
	Processed uint64
	Dropped   uint64
}

type request struct {
	frame Frame
	reply chan Result
}

type control struct {
	fn   func(*processor.Processor) error
	done chan error
}

// Session owns a Processor on its own goroutine.
type Session struct {
	id       string
	requests chan request
	controls chan control
	quit     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once

	inFlight  atomic.Bool
	processed atomic.Uint64
	dropped   atomic.Uint64
}

// New creates the session's Processor and starts its worker.
func New(cfg processor.Config) (*Session, error) {
	p, err := processor.New(cfg)
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:       p.ID(),
		requests: make(chan request),
		controls: make(chan control),
		quit:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run(p)
	diagf("session %s: worker started", s.id)
	return s, nil
}

// ID returns the session identifier, shared with the Processor.
func (s *Session) ID() string { return s.id }

func (s *Session) run(p *processor.Processor) {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case req := <-s.requests:
			err := p.Process(req.frame.Result, req.frame.DeltaSeconds)
			res := Result{Snapshot: p.Snapshot(), Err: err}
			s.processed.Add(1)
			s.inFlight.Store(false)
			// reply is buffered; an abandoned waiter does not block the worker
			req.reply <- res
		case c := <-s.controls:
			c.done <- c.fn(p)
		}
	}
}

// Submit hands f to the worker and waits for its result. If a frame is
// already in flight the new one is dropped and ErrBusy returned
// immediately. Cancelling ctx before the worker takes the frame abandons
// it; once taken, the frame is always processed and ctx only bounds the
// wait for its result.
func (s *Session) Submit(ctx context.Context, f Frame) (Result, error) {
	select {
	case <-s.quit:
		return Result{}, ErrClosed
	default:
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		total := s.dropped.Add(1)
		tracef("session %s: frame dropped (total dropped: %d)", s.id, total)
		return Result{}, ErrBusy
	}

	req := request{frame: f, reply: make(chan Result, 1)}
	select {
	case s.requests <- req:
	case <-s.quit:
		s.inFlight.Store(false)
		return Result{}, ErrClosed
	case <-ctx.Done():
		// not handed over; release the slot
		s.inFlight.Store(false)
		return Result{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res, nil
	case <-ctx.Done():
		opsf("session %s: caller stopped waiting for frame: %v", s.id, ctx.Err())
		return Result{}, ctx.Err()
	}
}

// Reconfigure updates filter parameters between frames.
func (s *Session) Reconfigure(ctx context.Context, u filter.Update) error {
	return s.do(ctx, func(p *processor.Processor) error { return p.Reconfigure(u) })
}

// ResetCalibration re-arms hip calibration between frames.
func (s *Session) ResetCalibration(ctx context.Context) error {
	return s.do(ctx, func(p *processor.Processor) error {
		p.ResetCalibration()
		return nil
	})
}

// Snapshot returns the latest output without processing a frame.
func (s *Session) Snapshot(ctx context.Context) (processor.Snapshot, error) {
	var snap processor.Snapshot
	err := s.do(ctx, func(p *processor.Processor) error {
		snap = p.Snapshot()
		return nil
	})
	return snap, err
}

// do runs fn on the worker goroutine, waiting for any frame in flight.
func (s *Session) do(ctx context.Context, fn func(*processor.Processor) error) error {
	c := control{fn: fn, done: make(chan error, 1)}
	select {
	case s.controls <- c:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns processed and dropped frame counts.
func (s *Session) Stats() Stats {
	return Stats{Processed: s.processed.Load(), Dropped: s.dropped.Load()}
}

// Close stops the worker after any frame in flight completes.
func (s *Session) Close() error {
	s.once.Do(func() {
		close(s.quit)
		s.wg.Wait()
		st := s.Stats()
		diagf("session %s: closed (processed=%d dropped=%d)", s.id, st.Processed, st.Dropped)
	})
	return nil
}
